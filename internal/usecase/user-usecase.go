package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

// UserStorage is the persistence contract for user records. Mutations are
// atomic per user; ordering between calls for one user is provided by the
// dispatcher's per-user serialization.
type UserStorage interface {
	GetUser(ctx context.Context, telegramID int64) (model.User, error)
	// CreateUser is idempotent: creating an existing user is a no-op that
	// returns the stored record.
	CreateUser(ctx context.Context, telegramID int64, language model.Language) (model.User, error)
	SetLanguage(ctx context.Context, telegramID int64, language model.Language) error
	// ResetDailyIfStale zeroes the daily counter when the stored request date
	// is not today. Idempotent.
	ResetDailyIfStale(ctx context.Context, telegramID int64, today time.Time) error
	// IncrementRequest counts one accepted request. It is not a permit check;
	// callers decide first.
	IncrementRequest(ctx context.Context, telegramID int64, today time.Time) error
	SetSubscription(ctx context.Context, telegramID int64, status model.SubscriptionStatus, expire *time.Time) error
	ListPremium(ctx context.Context) ([]model.User, error)
}

type UserUsecaseDeps struct {
	UserStorage UserStorage
}

type UserUsecase struct {
	UserUsecaseDeps
}

func NewUserUsecase(deps UserUsecaseDeps) *UserUsecase {
	return &UserUsecase{
		UserUsecaseDeps: deps,
	}
}

// ResolveUser returns the record for a Telegram user, registering them with
// an unset language on first contact.
func (u *UserUsecase) ResolveUser(ctx context.Context, telegramID int64) (model.User, error) {
	user, err := u.UserStorage.GetUser(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, model.ErrUserDoesNotExist) {
			return model.User{}, fmt.Errorf("failed to get user: %w", err)
		}
		user, err = u.UserStorage.CreateUser(ctx, telegramID, model.LanguageUnset)
		if err != nil {
			return model.User{}, fmt.Errorf("failed to create user: %w", err)
		}
	}
	return user, nil
}

func (u *UserUsecase) SetLanguage(ctx context.Context, telegramID int64, language model.Language) error {
	return u.UserStorage.SetLanguage(ctx, telegramID, language)
}

// ResetDailyIfStale applies the daily reset to both the store and the passed
// record, so the returned record reflects today's counter.
func (u *UserUsecase) ResetDailyIfStale(ctx context.Context, user model.User, today time.Time) (model.User, error) {
	if date.SameDay(user.LastRequestDate, today) {
		return user, nil
	}
	if err := u.UserStorage.ResetDailyIfStale(ctx, user.TelegramID, today); err != nil {
		return model.User{}, fmt.Errorf("failed to reset daily counter: %w", err)
	}
	user.RequestsToday = 0
	user.LastRequestDate = date.Day(today)
	return user, nil
}

func (u *UserUsecase) IncrementRequest(ctx context.Context, telegramID int64, today time.Time) error {
	return u.UserStorage.IncrementRequest(ctx, telegramID, today)
}
