package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"modkeeper/internal/bot"
	"modkeeper/internal/config"
	"modkeeper/internal/crash"
	"modkeeper/internal/gateway"
	"modkeeper/internal/handler"
	"modkeeper/internal/logger"
	"modkeeper/internal/moderation"
	"modkeeper/internal/notifier"
	"modkeeper/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	if err := storage.Initialize(cfg); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	repo := storage.NewRestrictionRepository(storage.GetDB())
	if err := repo.MigrateTable(); err != nil {
		logger.Fatalf("Failed to migrate restrictions table: %v", err)
	}

	session, err := bot.Initialize(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize bot: %v", err)
	}
	defer session.Close()

	botID, err := bot.SelfID(session)
	if err != nil {
		logger.Fatalf("Failed to resolve bot identity: %v", err)
	}

	gw := gateway.NewDiscord(session)
	notif := notifier.NewDiscord(session, cfg.Bot.LogChannelID)
	engine := moderation.NewCoordinator(repo, gw, notif, moderation.Config{
		BotID:            botID,
		WarningThreshold: cfg.Moderation.WarningThreshold,
		AppealURL:        cfg.Bot.AppealURL,
	})

	// Re-arm expiration timers before serving any commands.
	if err := engine.RecoverOnStartup(context.Background()); err != nil {
		logger.Fatalf("Startup recovery failed: %v", err)
	}

	h := handler.New(session, engine, gw, notif, cfg)
	if err := h.Register(); err != nil {
		logger.Fatalf("Failed to register handlers: %v", err)
	}

	logger.Infof("modkeeper is running, press Ctrl+C to exit")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	engine.Shutdown()
	logger.Infof("Server gracefully stopped")
}
