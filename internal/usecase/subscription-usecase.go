package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkurbatov/ai-assistant-bot/config"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/sl"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

type SubscriptionUsecaseDeps struct {
	UserStorage UserStorage
	Log         *slog.Logger
}

// SubscriptionUsecase owns the premium lifecycle: promotion on payment and
// demotion once the expiry date has passed.
type SubscriptionUsecase struct {
	SubscriptionUsecaseDeps
	cfg config.Premium
}

func NewSubscriptionUsecase(deps SubscriptionUsecaseDeps, cfg config.Premium) *SubscriptionUsecase {
	return &SubscriptionUsecase{
		SubscriptionUsecaseDeps: deps,
		cfg:                     cfg,
	}
}

// Reconcile demotes user to free when the premium expiry is strictly before
// today, and returns the record as it should be seen by the quota decision.
// A premium record without an expiry date violates the model invariant and is
// demoted as well.
func (s *SubscriptionUsecase) Reconcile(ctx context.Context, user model.User, today time.Time) (model.User, bool, error) {
	if !user.IsPremium() {
		return user, false, nil
	}
	if user.SubscriptionExpire != nil && !user.SubscriptionExpire.Before(date.Day(today)) {
		return user, false, nil
	}
	if err := s.UserStorage.SetSubscription(ctx, user.TelegramID, model.SubscriptionFree, nil); err != nil {
		return model.User{}, false, fmt.Errorf("failed to demote user %d: %w", user.TelegramID, err)
	}
	user.SubscriptionStatus = model.SubscriptionFree
	user.SubscriptionExpire = nil
	return user, true, nil
}

// ReconcileAll scans every premium record and demotes the expired ones.
// Covers users who stopped messaging before their subscription lapsed.
func (s *SubscriptionUsecase) ReconcileAll(ctx context.Context, today time.Time) ([]int64, error) {
	users, err := s.UserStorage.ListPremium(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list premium users: %w", err)
	}
	demoted := make([]int64, 0)
	for _, user := range users {
		_, wasDemoted, err := s.Reconcile(ctx, user, today)
		if err != nil {
			return demoted, err
		}
		if wasDemoted {
			demoted = append(demoted, user.TelegramID)
		}
	}
	return demoted, nil
}

// ApplySubscription promotes user to premium for the configured duration,
// starting today. Called by the payment-confirmation path.
func (s *SubscriptionUsecase) ApplySubscription(ctx context.Context, telegramID int64) (time.Time, error) {
	expire := date.Today().AddDate(0, 0, s.cfg.DurationDays)
	if err := s.UserStorage.SetSubscription(ctx, telegramID, model.SubscriptionPremium, &expire); err != nil {
		return time.Time{}, fmt.Errorf("failed to promote user %d: %w", telegramID, err)
	}
	return expire, nil
}

// RunReconciliation runs the full scan once and then on every tick until ctx
// is done.
func (s *SubscriptionUsecase) RunReconciliation(ctx context.Context, interval time.Duration) {
	s.runReconcileAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runReconcileAll(ctx)
		}
	}
}

func (s *SubscriptionUsecase) runReconcileAll(ctx context.Context) {
	demoted, err := s.ReconcileAll(ctx, date.Today())
	if err != nil {
		s.Log.Error("failed to reconcile subscriptions", sl.Err(err))
		return
	}
	if len(demoted) > 0 {
		s.Log.Info("demoted expired subscriptions", slog.Int("count", len(demoted)))
	}
}
