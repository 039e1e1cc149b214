package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jothihub/jothi-gateway/internal/bell"
	"github.com/jothihub/jothi-gateway/internal/bus"
	"github.com/jothihub/jothi-gateway/internal/channel/telegram"
	"github.com/jothihub/jothi-gateway/internal/channel/whatsapp"
	"github.com/jothihub/jothi-gateway/internal/config"
	"github.com/jothihub/jothi-gateway/internal/directory"
	"github.com/jothihub/jothi-gateway/internal/engine"
	"github.com/jothihub/jothi-gateway/internal/events"
	"github.com/jothihub/jothi-gateway/internal/logging"
	"github.com/jothihub/jothi-gateway/internal/schedule"
	"github.com/jothihub/jothi-gateway/internal/server"
	"github.com/jothihub/jothi-gateway/internal/session"
	"github.com/jothihub/jothi-gateway/internal/tts"
	"github.com/jothihub/jothi-gateway/internal/worker"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	logger := logging.WithComponent("main")
	logger.Info("Starting JOTHI gateway", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dir, err := directory.Load(cfg.Directory.Path, cfg.Directory.AllowUnknown, logging.WithComponent("directory"))
	if err != nil {
		logger.Error("Failed to load authorized senders", "error", err)
		os.Exit(1)
	}
	logger.Info("Authorized senders loaded", "count", dir.Count())

	schedules, err := schedule.Load(cfg.Schedules.Path)
	if err != nil {
		logger.Error("Failed to load bell schedules", "error", err)
		os.Exit(1)
	}

	player := &bell.ExecPlayer{Command: cfg.Audio.Player, Logger: logging.WithComponent("player")}
	ringer := bell.NewController(player, cfg.Audio.BellFile, logging.WithComponent("bell"))
	assembly := bell.NewAssembly(cfg.Audio)

	speaker := tts.NewSpeaker(tts.Config{
		KeyPath:        cfg.OpenAI.KeyPath,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		OfflineCommand: cfg.Audio.OfflineTTSCommand,
		OutDir:         cfg.WhatsApp.MediaDir,
	}, player, logging.WithComponent("tts"))

	waClient := whatsapp.NewClient(whatsapp.Config{
		CredentialsPath: cfg.WhatsApp.CredentialsPath,
		APIBaseURL:      cfg.WhatsApp.APIBaseURL,
		MediaDir:        cfg.WhatsApp.MediaDir,
	}, logging.WithComponent("whatsapp"))

	pool := worker.New(cfg.Workers.Count, cfg.Workers.QueueSize, logging.WithComponent("worker"))
	hub := events.NewHub(logging.WithComponent("events"))

	// the audit stream is optional; a missing Redis only loses audit
	// records, never message handling
	var publisher *bus.Publisher
	if cfg.Events.RedisAddr != "" {
		publisher, err = bus.NewPublisher(cfg.Events.RedisAddr, cfg.Events.Stream, logging.WithComponent("bus"))
		if err != nil {
			logger.Warn("Audit stream unavailable, continuing without it", "error", err)
			publisher = nil
		} else {
			logger.Info("Audit stream connected", "addr", cfg.Events.RedisAddr)
		}
	}

	eng := engine.New(engine.Deps{
		Directory: dir,
		Sessions:  session.NewStore(),
		Schedules: schedules,
		Ringer:    ringer,
		Speaker:   speaker,
		Assembly:  assembly,
		WACreds:   waClient,
		Pool:      pool,
		Hub:       hub,
		Bus:       publisher,
		Logger:    logging.WithComponent("engine"),
	})

	var tg *telegram.Adapter
	if cfg.Channels.Telegram.Enabled {
		tg = telegram.NewAdapter(cfg.Channels.Telegram.Token, cfg.WhatsApp.MediaDir)
		if err := tg.Start(ctx); err != nil {
			logger.Error("Failed to start Telegram adapter", "error", err)
			tg = nil
		} else {
			go eng.ConsumeAdapter(ctx, tg)
			logger.Info("Telegram adapter started")
		}
	}

	srv := server.New(cfg, eng, waClient, hub, logging.WithComponent("server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Webhook listening", "host", cfg.Server.Host, "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if tg != nil {
		if err := tg.Stop(); err != nil {
			logger.Error("Failed to stop Telegram adapter", "error", err)
		}
	}

	ringer.Stop()
	pool.Stop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close audit stream", "error", err)
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
