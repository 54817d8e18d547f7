package usecase

import (
	"time"

	"github.com/dkurbatov/ai-assistant-bot/config"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

type DenyReason string

const (
	ReasonNone          = DenyReason("")
	ReasonQuotaExceeded = DenyReason("quota_exceeded")
)

type Decision struct {
	Permitted bool
	Reason    DenyReason
}

// QuotaUsecase is the pure permit policy: premium users are unlimited, free
// users are capped per UTC day.
type QuotaUsecase struct {
	dailyFreeLimit int
}

func NewQuotaUsecase(cfg config.Quota) *QuotaUsecase {
	return &QuotaUsecase{
		dailyFreeLimit: cfg.DailyFreeLimit,
	}
}

// CanProceed decides whether user may make a request today. It never mutates
// state; callers reset the daily counter beforehand and increment only after
// a fully successful provider response. A record stamped on an earlier day is
// treated as a fresh counter.
func (q *QuotaUsecase) CanProceed(user model.User, today time.Time) Decision {
	if user.IsPremium() {
		return Decision{Permitted: true}
	}
	requestsToday := user.RequestsToday
	if !date.SameDay(user.LastRequestDate, today) {
		requestsToday = 0
	}
	if requestsToday < q.dailyFreeLimit {
		return Decision{Permitted: true}
	}
	return Decision{Reason: ReasonQuotaExceeded}
}

func (q *QuotaUsecase) DailyFreeLimit() int {
	return q.dailyFreeLimit
}
