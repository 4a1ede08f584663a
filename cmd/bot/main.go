package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"OilSentinel/internal/config"
	"OilSentinel/internal/fetcher"
	"OilSentinel/internal/monitor"
	"OilSentinel/internal/notifier"
	"OilSentinel/internal/recorder"
	"OilSentinel/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] OilSentinel starting...")

	// .env is optional; real deployments use environment variables.
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env file")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher
	fc := fetcher.NewClient(cfg.Oil.EndpointURL, cfg.Proxy, cfg.RequestTimeoutDuration(), cfg.Oil.MaxRetries)
	log.Printf("[INFO] polling %s every %s", cfg.Oil.EndpointURL, cfg.PollIntervalDuration())

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Oil.TitlePrefix, cfg.Proxy)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Storage.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init monitor pipeline
	mon, err := monitor.New(fc, tn, rec, cfg.Storage.StateFile, cfg.Oil.MinChange)
	if err != nil {
		log.Fatalf("[FATAL] init monitor: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.New(ctx, mon, rec, cfg.Oil.EndpointURL, cfg.Telegram.CommandPrefix, cfg.PollIntervalDuration())
	if err := sched.Register(); err != nil {
		log.Fatalf("[FATAL] register poll job: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram command polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, checking now")
		go sched.TriggerNow()
	}

	log.Println("[INFO] OilSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] OilSentinel stopped")
}
