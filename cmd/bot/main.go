package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/dkurbatov/ai-assistant-bot/config"
	"github.com/dkurbatov/ai-assistant-bot/internal/app"
	"github.com/dkurbatov/ai-assistant-bot/internal/lib/sl"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	log.Info("starting ai-assistant-bot")
	if err := app.Run(cfg, log); err != nil {
		log.Error("bot stopped with error", sl.Err(err))
		os.Exit(1)
	}
}
