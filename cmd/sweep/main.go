package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/database"
	"github.com/qs3c/trademint_server/internal/pkg/lock"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/repository"
	"github.com/qs3c/trademint_server/internal/service"
)

var (
	dryRun     = flag.Bool("dry-run", false, "List due subscriptions without expiring them")
	configPath = flag.String("config", "", "Path to config file (defaults to $CONFIG_PATH or config.yaml)")
	timeout    = flag.Duration("timeout", 5*time.Minute, "Overall time limit for one sweep")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Printf("Sweep failed: %v", err)
		os.Exit(1)
	}
}

// run 返回后所有 defer 已执行，连接都已关闭
func run() error {
	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var sink notify.Sink = notify.Nop{}
	if cfg.Telegram.BotToken != "" {
		sink = notify.NewTelegram(
			cfg.Telegram.BotToken,
			cfg.Telegram.APIBaseURL,
			time.Duration(cfg.Telegram.TimeoutSeconds)*time.Second,
			time.Duration(cfg.Telegram.RetryMaxElapsedMs)*time.Millisecond,
		)
	} else {
		log.Println("degraded: telegram bot token not configured, channel removal skipped")
	}

	var locker *lock.Locker
	if cfg.Expiry.UseLock {
		rdb := database.NewRedis(&cfg.Redis)
		defer rdb.Close()
		locker = lock.NewLocker(rdb, time.Duration(cfg.Expiry.LockTTLSeconds)*time.Second)
	}

	expiryService := service.NewExpiryService(
		repository.NewTransactor(db),
		repository.NewSubscriptionRepository(db),
		repository.NewServiceRepository(db),
		sink,
		locker,
		nil,
		time.Duration(cfg.Telegram.TimeoutSeconds)*time.Second,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *dryRun {
		due, err := expiryService.Preview(ctx)
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		for _, sub := range due {
			log.Printf("[DRY RUN] would expire: subscription=%d user=%d service=%d end=%s",
				sub.ID, sub.UserID, sub.ServiceID, sub.EndDate.Format(time.RFC3339))
		}
		log.Printf("[DRY RUN] %d subscriptions due", len(due))
		return nil
	}

	report, err := expiryService.Sweep(ctx)
	if err != nil {
		return err
	}
	if report.Skipped {
		log.Println("Sweep skipped: another instance holds the lock")
		return nil
	}
	log.Printf("Sweep done: expired=%d channel_removed=%d channel_remove_failed=%d",
		report.Expired, report.ChannelRemoved, report.ChannelRemoveFailed)
	return nil
}
