package in_memory

import (
	"context"
	"sync"
	"time"

	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

// UserStorage keeps user records in process memory. Used in tests and for
// local runs without external services.
type UserStorage struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		users: make(map[int64]*model.User),
	}
}

func (u *UserStorage) GetUser(_ context.Context, telegramID int64) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[telegramID]
	if !ok {
		return model.User{}, model.ErrUserDoesNotExist
	}
	return *user, nil
}

// CreateUser is idempotent: an existing record is returned unchanged, so
// RegistrationDate is written exactly once.
func (u *UserStorage) CreateUser(_ context.Context, telegramID int64, language model.Language) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.users[telegramID]; ok {
		return *user, nil
	}
	today := date.Today()
	user := &model.User{
		TelegramID:         telegramID,
		Language:           language,
		RequestsToday:      0,
		LastRequestDate:    today,
		RegistrationDate:   today,
		SubscriptionStatus: model.SubscriptionFree,
	}
	u.users[telegramID] = user
	return *user, nil
}

func (u *UserStorage) SetLanguage(_ context.Context, telegramID int64, language model.Language) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[telegramID]
	if !ok {
		return model.ErrUserDoesNotExist
	}
	user.Language = language
	return nil
}

func (u *UserStorage) ResetDailyIfStale(_ context.Context, telegramID int64, today time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[telegramID]
	if !ok {
		return model.ErrUserDoesNotExist
	}
	if !date.SameDay(user.LastRequestDate, today) {
		user.RequestsToday = 0
		user.LastRequestDate = date.Day(today)
	}
	return nil
}

func (u *UserStorage) IncrementRequest(_ context.Context, telegramID int64, today time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[telegramID]
	if !ok {
		return model.ErrUserDoesNotExist
	}
	user.RequestsToday++
	user.LastRequestDate = date.Day(today)
	return nil
}

func (u *UserStorage) SetSubscription(
	_ context.Context, telegramID int64, status model.SubscriptionStatus, expire *time.Time,
) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[telegramID]
	if !ok {
		return model.ErrUserDoesNotExist
	}
	user.SubscriptionStatus = status
	if expire != nil {
		expireDay := date.Day(*expire)
		user.SubscriptionExpire = &expireDay
	} else {
		user.SubscriptionExpire = nil
	}
	return nil
}

func (u *UserStorage) ListPremium(_ context.Context) ([]model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	users := make([]model.User, 0)
	for _, user := range u.users {
		if user.IsPremium() {
			users = append(users, *user)
		}
	}
	return users, nil
}
