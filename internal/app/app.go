package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/redis/go-redis/v9"

	"github.com/dkurbatov/ai-assistant-bot/config"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/sl"
	"github.com/dkurbatov/ai-assistant-bot/internal/metrics"
	in_memory "github.com/dkurbatov/ai-assistant-bot/internal/storage/in-memory"
	key_value "github.com/dkurbatov/ai-assistant-bot/internal/storage/key-value"
	"github.com/dkurbatov/ai-assistant-bot/internal/storage/postgres"
	"github.com/dkurbatov/ai-assistant-bot/internal/usecase"
)

func Run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot, err := api.NewBotAPI(cfg.Telegram.TelegramAPIToken)
	if err != nil {
		return fmt.Errorf("failed to create new bot: %w", err)
	}
	log.Info("authorized on telegram", slog.String("account", bot.Self.UserName))

	userStorage, closeStorage, err := newUserStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	userUsecase := usecase.NewUserUsecase(
		usecase.UserUsecaseDeps{
			UserStorage: userStorage,
		},
	)
	quotaUsecase := usecase.NewQuotaUsecase(cfg.Quota)
	subscriptionUsecase := usecase.NewSubscriptionUsecase(
		usecase.SubscriptionUsecaseDeps{
			UserStorage: userStorage,
			Log:         log,
		}, cfg.Premium,
	)
	openAIUsecase := usecase.NewOpenAIUsecase(cfg.OpenAI)

	telegramUsecase, err := usecase.NewTelegramUsecase(
		cfg.Telegram, cfg.Premium, usecase.TelegramUsecaseDeps{
			User:         userUsecase,
			Quota:        quotaUsecase,
			Subscription: subscriptionUsecase,
			Completer:    openAIUsecase,
			Transcriber:  openAIUsecase,
			Bot:          bot,
			Log:          log,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create telegram usecase: %w", err)
	}

	go subscriptionUsecase.RunReconciliation(ctx, cfg.Premium.ReconcileInterval)

	if cfg.Metrics.Address != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				log.Error("metrics server stopped", sl.Err(err))
			}
		}()
	}

	return telegramUsecase.Run()
}

// newUserStorage builds the configured backend. Store unavailability is the
// one startup-fatal condition.
func newUserStorage(ctx context.Context, cfg config.Storage) (usecase.UserStorage, func(), error) {
	switch cfg.Kind {
	case "memory":
		return in_memory.NewUserStorage(), func() {}, nil
	case "redis":
		rdb := redis.NewClient(
			&redis.Options{
				Addr: cfg.RedisEndpoint,
			},
		)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return key_value.NewUserStorage(rdb), func() { _ = rdb.Close() }, nil
	case "postgres":
		storage, err := postgres.New(ctx, cfg.PostgresConnURL)
		if err != nil {
			return nil, nil, err
		}
		return storage, storage.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}
