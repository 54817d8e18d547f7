package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dkurbatov/ai-assistant-bot/internal/model"
)

type StorageMock struct{ mock.Mock }

func (m *StorageMock) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *StorageMock) CreateUser(ctx context.Context, telegramID int64, language model.Language) (model.User, error) {
	args := m.Called(ctx, telegramID, language)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *StorageMock) SetLanguage(ctx context.Context, telegramID int64, language model.Language) error {
	return m.Called(ctx, telegramID, language).Error(0)
}

func (m *StorageMock) ResetDailyIfStale(ctx context.Context, telegramID int64, today time.Time) error {
	return m.Called(ctx, telegramID, today).Error(0)
}

func (m *StorageMock) IncrementRequest(ctx context.Context, telegramID int64, today time.Time) error {
	return m.Called(ctx, telegramID, today).Error(0)
}

func (m *StorageMock) SetSubscription(
	ctx context.Context, telegramID int64, status model.SubscriptionStatus, expire *time.Time,
) error {
	return m.Called(ctx, telegramID, status, expire).Error(0)
}

func (m *StorageMock) ListPremium(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

type CompleterMock struct{ mock.Mock }

func (m *CompleterMock) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type TranscriberMock struct{ mock.Mock }

func (m *TranscriberMock) Transcribe(ctx context.Context, audio []byte) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}
