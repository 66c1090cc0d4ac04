package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"herald/internal/config"
	"herald/internal/httpapi"
	"herald/internal/retention"
	"herald/internal/services/broadcast"
	"herald/internal/services/dispatch"
	"herald/internal/services/report"
	"herald/internal/services/trigger"
	"herald/internal/storage"
	"herald/internal/transport/telegram"
	"herald/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	// Missing .env is fine; env vars may come from the environment proper.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer log.Close()

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
		HistoryMax:  cfg.Storage.HistoryMax,
	}, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	adapter, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token}, log)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	identity := adapter.Identity()
	log.Info("bot connected",
		logx.Int64("id", identity.ID),
		logx.String("username", identity.Username))

	msgs := config.NewMessageManager(cfg.MessagesFile, log)
	if err := msgs.Load(); err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	go msgs.Watch(ctx)

	disp := dispatch.New(adapter, retention.Timers{}, log)
	rep := report.New(report.Config{
		AdminID:       cfg.Telegram.AdminID,
		AttachReached: cfg.Report.AttachReached,
	}, store, adapter, log)
	bc := broadcast.New(broadcast.Config{
		Workers:    cfg.Broadcast.Workers,
		RatePerSec: cfg.Broadcast.RatePerSec,
	}, disp, store, rep, log)

	trg, err := trigger.New(trigger.Config{
		Timezone:  cfg.Schedule.Timezone,
		DailyTime: cfg.Schedule.DailyTime,
	}, msgs, bc, log)
	if err != nil {
		return err
	}
	trg.Start()

	var api *httpapi.Server
	if cfg.HTTP.Enabled {
		api = httpapi.New(httpapi.Config{
			Addr:    cfg.HTTP.Addr,
			Secret:  cfg.HTTP.Secret,
			AdminID: cfg.Telegram.AdminID,
		}, trg, store, msgs, disp, identity, log)
		if err := api.Start(); err != nil {
			return fmt.Errorf("start http api: %w", err)
		}
	}

	log.Info("herald running",
		logx.String("timezone", trg.Location().String()),
		logx.Bool("http", cfg.HTTP.Enabled))

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if api != nil {
		api.Stop(stopCtx)
	}
	trg.Stop(stopCtx)
	log.Info("herald stopped")
	return nil
}
