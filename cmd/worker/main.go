package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/database"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
	"github.com/qs3c/trademint_server/internal/worker"
)

var configPath = flag.String("config", "config.yaml", "Path to config file")

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化 Redis
	rdb := database.NewRedis(&cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	if cfg.Telegram.BotToken == "" {
		log.Fatalf("telegram.bot_token is required for the notification worker")
	}
	sinkTimeout := time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second
	sink := notify.NewTelegram(
		cfg.Telegram.BotToken,
		cfg.Telegram.APIBaseURL,
		sinkTimeout,
		time.Duration(cfg.Telegram.RetryMaxElapsedMs)*time.Millisecond,
	)

	jobQueue := queue.NewQueue(rdb, cfg.Notification.QueueName)
	runner := worker.NewRunner(jobQueue, worker.NewProcessor(sink, nil, sinkTimeout), cfg.Notification.Workers)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started: queue=%s workers=%d", cfg.Notification.QueueName, cfg.Notification.Workers)
	runner.Run(ctx)
	log.Println("Worker shutdown complete")
}
