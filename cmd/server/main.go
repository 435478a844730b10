package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/agomzy/hookrelay/internal/config"
	"github.com/agomzy/hookrelay/internal/db"
	"github.com/agomzy/hookrelay/internal/github"
	"github.com/agomzy/hookrelay/internal/onboarding"
	"github.com/agomzy/hookrelay/internal/relay"
	"github.com/agomzy/hookrelay/internal/server"
	"github.com/agomzy/hookrelay/internal/server/routes"
	"github.com/agomzy/hookrelay/internal/telegram"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	notifier := telegram.NewClient(cfg.Telegram.BotToken, "")

	repoChecker, err := github.NewRepoChecker(cfg.GitHub.Token, "")
	if err != nil {
		slog.Error("Failed to build repository checker", "error", err)
		return
	}

	sessions := onboarding.NewSessionStore(cfg.SessionTTL(), time.Now)
	machine := onboarding.NewMachine(sessions, database, repoChecker, notifier, cfg.Onboarding.PublicURL, log)
	dispatcher := relay.NewDispatcher(database, notifier, log)

	srv := server.New(log)
	srv.RegisterRouter(routes.NewWebhookRoutes(dispatcher, machine, log))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting server", "port", cfg.Server.Port, "env", cfg.Environment)
	slog.Error("Closing server", "error", srv.Start(addr))
}
