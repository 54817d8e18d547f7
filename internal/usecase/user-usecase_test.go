package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

func TestUserUsecase_ResolveUser_Existing(t *testing.T) {
	storage := &StorageMock{}
	stored := model.User{TelegramID: 1, Language: model.LanguageEng}
	storage.On("GetUser", mock.Anything, int64(1)).Return(stored, nil).Once()
	users := NewUserUsecase(UserUsecaseDeps{UserStorage: storage})

	user, err := users.ResolveUser(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, stored, user)
	storage.AssertExpectations(t)
}

func TestUserUsecase_ResolveUser_CreatesOnFirstContact(t *testing.T) {
	storage := &StorageMock{}
	storage.On("GetUser", mock.Anything, int64(2)).
		Return(model.User{}, model.ErrUserDoesNotExist).Once()
	created := model.User{TelegramID: 2, Language: model.LanguageUnset}
	storage.On("CreateUser", mock.Anything, int64(2), model.LanguageUnset).
		Return(created, nil).Once()
	users := NewUserUsecase(UserUsecaseDeps{UserStorage: storage})

	user, err := users.ResolveUser(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, created, user)
	storage.AssertExpectations(t)
}

func TestUserUsecase_ResolveUser_StorageError(t *testing.T) {
	storage := &StorageMock{}
	storage.On("GetUser", mock.Anything, int64(3)).
		Return(model.User{}, errors.New("storage down")).Once()
	users := NewUserUsecase(UserUsecaseDeps{UserStorage: storage})

	_, err := users.ResolveUser(context.Background(), 3)

	assert.Error(t, err)
	storage.AssertExpectations(t)
}

func TestUserUsecase_ResetDailyIfStale(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	t.Run("stale record is reset", func(t *testing.T) {
		storage := &StorageMock{}
		storage.On("ResetDailyIfStale", mock.Anything, int64(1), today).Return(nil).Once()
		users := NewUserUsecase(UserUsecaseDeps{UserStorage: storage})
		user := model.User{TelegramID: 1, RequestsToday: 5, LastRequestDate: yesterday}

		user, err := users.ResetDailyIfStale(context.Background(), user, today)

		require.NoError(t, err)
		assert.Equal(t, 0, user.RequestsToday)
		assert.True(t, user.LastRequestDate.Equal(today))
		storage.AssertExpectations(t)
	})

	t.Run("fresh record is untouched", func(t *testing.T) {
		storage := &StorageMock{}
		users := NewUserUsecase(UserUsecaseDeps{UserStorage: storage})
		user := model.User{TelegramID: 1, RequestsToday: 3, LastRequestDate: today}

		user, err := users.ResetDailyIfStale(context.Background(), user, today)

		require.NoError(t, err)
		assert.Equal(t, 3, user.RequestsToday)
		storage.AssertNotCalled(t, "ResetDailyIfStale", mock.Anything, mock.Anything, mock.Anything)
	})
}
