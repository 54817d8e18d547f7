package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkurbatov/ai-assistant-bot/config"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/date"
	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

func newSubscriptionUsecase(storage *StorageMock, durationDays int) *SubscriptionUsecase {
	return NewSubscriptionUsecase(
		SubscriptionUsecaseDeps{
			UserStorage: storage,
			Log:         newNoopLogger(),
		},
		config.Premium{DurationDays: durationDays},
	)
}

func TestSubscriptionUsecase_Reconcile(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	tests := []struct {
		name        string
		user        model.User
		wantDemoted bool
	}{
		{
			name: "free user untouched",
			user: model.User{
				TelegramID:         1,
				SubscriptionStatus: model.SubscriptionFree,
			},
			wantDemoted: false,
		},
		{
			name: "premium expiring yesterday demoted",
			user: model.User{
				TelegramID:         2,
				SubscriptionStatus: model.SubscriptionPremium,
				SubscriptionExpire: &yesterday,
			},
			wantDemoted: true,
		},
		{
			name: "premium expiring today kept",
			user: model.User{
				TelegramID:         3,
				SubscriptionStatus: model.SubscriptionPremium,
				SubscriptionExpire: &today,
			},
			wantDemoted: false,
		},
		{
			name: "premium expiring tomorrow kept",
			user: model.User{
				TelegramID:         4,
				SubscriptionStatus: model.SubscriptionPremium,
				SubscriptionExpire: &tomorrow,
			},
			wantDemoted: false,
		},
		{
			name: "premium without expire date demoted",
			user: model.User{
				TelegramID:         5,
				SubscriptionStatus: model.SubscriptionPremium,
			},
			wantDemoted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &StorageMock{}
			if tt.wantDemoted {
				storage.On("SetSubscription", mock.Anything, tt.user.TelegramID,
					model.SubscriptionFree, (*time.Time)(nil)).Return(nil).Once()
			}
			subscription := newSubscriptionUsecase(storage, 30)

			user, demoted, err := subscription.Reconcile(context.Background(), tt.user, today)

			require.NoError(t, err)
			assert.Equal(t, tt.wantDemoted, demoted)
			if tt.wantDemoted {
				assert.Equal(t, model.SubscriptionFree, user.SubscriptionStatus)
				assert.Nil(t, user.SubscriptionExpire)
			} else {
				assert.Equal(t, tt.user.SubscriptionStatus, user.SubscriptionStatus)
			}
			storage.AssertExpectations(t)
		})
	}
}

func TestSubscriptionUsecase_ReconcileAll(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	storage := &StorageMock{}
	storage.On("ListPremium", mock.Anything).Return([]model.User{
		{TelegramID: 1, SubscriptionStatus: model.SubscriptionPremium, SubscriptionExpire: &yesterday},
		{TelegramID: 2, SubscriptionStatus: model.SubscriptionPremium, SubscriptionExpire: &tomorrow},
		{TelegramID: 3, SubscriptionStatus: model.SubscriptionPremium, SubscriptionExpire: &yesterday},
	}, nil).Once()
	storage.On("SetSubscription", mock.Anything, int64(1),
		model.SubscriptionFree, (*time.Time)(nil)).Return(nil).Once()
	storage.On("SetSubscription", mock.Anything, int64(3),
		model.SubscriptionFree, (*time.Time)(nil)).Return(nil).Once()
	subscription := newSubscriptionUsecase(storage, 30)

	demoted, err := subscription.ReconcileAll(context.Background(), today)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, demoted)
	storage.AssertExpectations(t)
}

func TestSubscriptionUsecase_ApplySubscription(t *testing.T) {
	storage := &StorageMock{}
	var gotExpire *time.Time
	storage.On("SetSubscription", mock.Anything, int64(7),
		model.SubscriptionPremium, mock.Anything).Run(func(args mock.Arguments) {
		gotExpire = args.Get(3).(*time.Time)
	}).Return(nil).Once()
	subscription := newSubscriptionUsecase(storage, 30)

	expire, err := subscription.ApplySubscription(context.Background(), 7)

	require.NoError(t, err)
	require.NotNil(t, gotExpire)
	assert.True(t, expire.Equal(*gotExpire))
	assert.True(t, expire.Equal(date.Today().AddDate(0, 0, 30)))
	storage.AssertExpectations(t)
}
