package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/api"
	"github.com/qs3c/trademint_server/internal/api/handler"
	"github.com/qs3c/trademint_server/internal/database"
	"github.com/qs3c/trademint_server/internal/pkg/cron"
	"github.com/qs3c/trademint_server/internal/pkg/gateway"
	"github.com/qs3c/trademint_server/internal/pkg/lock"
	"github.com/qs3c/trademint_server/internal/pkg/metrics"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/pkg/pubsub"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
	"github.com/qs3c/trademint_server/internal/pkg/ws"
	"github.com/qs3c/trademint_server/internal/repository"
	"github.com/qs3c/trademint_server/internal/service"
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

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Printf("Database connected: driver=%s", cfg.Database.Driver)

	// 初始化 Redis
	rdb := database.NewRedis(&cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 支付网关
	gw, err := newGateway(&cfg.Payment)
	if err != nil {
		log.Fatalf("Failed to init payment gateway: %v", err)
	}
	log.Printf("Payment gateway: %s", gw.Name())

	// 频道服务，未配置时降级为空实现
	var sink notify.Sink = notify.Nop{}
	if cfg.Telegram.BotToken != "" {
		sink = notify.NewTelegram(
			cfg.Telegram.BotToken,
			cfg.Telegram.APIBaseURL,
			time.Duration(cfg.Telegram.TimeoutSeconds)*time.Second,
			time.Duration(cfg.Telegram.RetryMaxElapsedMs)*time.Millisecond,
		)
		log.Println("Telegram sink enabled")
	} else {
		log.Println("degraded: telegram bot token not configured, channel operations disabled")
	}
	sinkTimeout := time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second

	// 指标
	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err = metrics.New(reg)
		if err != nil {
			log.Fatalf("Failed to register metrics: %v", err)
		}
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// 通知投递：direct 在请求内执行，queue 交给 worker 进程
	processor := worker.NewProcessor(sink, m, sinkTimeout)
	var dispatcher service.Dispatcher
	if cfg.Notification.Mode == "queue" {
		dispatcher = worker.NewQueueDispatcher(queue.NewQueue(rdb, cfg.Notification.QueueName))
		log.Printf("Notification mode: queue (%s)", cfg.Notification.QueueName)
	} else {
		dispatcher = worker.NewDirectDispatcher(processor)
		log.Println("Notification mode: direct")
	}

	// 初始化 Repository
	txm := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	traderRepo := repository.NewTraderRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	var locker *lock.Locker
	if cfg.Expiry.UseLock {
		locker = lock.NewLocker(rdb, time.Duration(cfg.Expiry.LockTTLSeconds)*time.Second)
	}

	// 初始化 Service
	publisher := pubsub.NewPublisher(rdb, cfg.Alert.RealtimeChannel)
	paymentService := service.NewPaymentService(txm, paymentRepo, subRepo, serviceRepo, traderRepo, userRepo, gw, dispatcher, m, &cfg.Payment)
	subscriptionService := service.NewSubscriptionService(subRepo, serviceRepo, sink, sinkTimeout)
	alertService := service.NewAlertService(txm, alertRepo, subRepo, serviceRepo, traderRepo, dispatcher, publisher, m,
		time.Duration(cfg.Alert.DedupWindowMinutes)*time.Minute)
	catalogService := service.NewCatalogService(serviceRepo, traderRepo, sink, &cfg.Payment, sinkTimeout)
	expiryService := service.NewExpiryService(txm, subRepo, serviceRepo, sink, locker, m, sinkTimeout)

	// WebSocket Hub，接收 Redis 广播后推给在线订阅者
	wsHub := ws.NewHub(time.Duration(cfg.Alert.WSWriteTimeoutSec) * time.Second)
	defer wsHub.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		subscriber := pubsub.NewSubscriber(rdb, cfg.Alert.RealtimeChannel)
		err := subscriber.Subscribe(ctx, func(event *pubsub.AlertEvent) {
			d, err := wsHub.SendToUsers(event.UserIDs, &ws.Message{Type: event.Type, Data: event})
			if err != nil {
				log.Printf("ws relay failed: alert=%d err=%v", event.AlertID, err)
				return
			}
			log.Printf("ws relay: alert=%d recipients=%d online=%d delivered=%d failed=%d",
				event.AlertID, len(event.UserIDs), d.Online, d.Delivered, d.Failed)
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("degraded: realtime alert relay stopped: %v", err)
		}
	}()

	// 定时到期扫描
	var scheduler *cron.Service
	if cfg.Expiry.Enabled {
		scheduler = cron.NewService(expiryService, cfg.Expiry.IntervalMinutes, cfg.Expiry.RunOnStart)
		scheduler.Start()
	}

	// 初始化 Handler
	router := api.NewRouter(
		handler.NewPaymentHandler(paymentService),
		handler.NewSubscriptionHandler(subscriptionService),
		handler.NewAlertHandler(alertService),
		handler.NewTraderHandler(catalogService),
		handler.NewAdminHandler(catalogService),
		handler.NewCronHandler(expiryService, 0),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		metricsHandler,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// newGateway 按 provider 选择支付网关
func newGateway(cfg *config.PaymentConfig) (gateway.Gateway, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "razorpay", "":
		if cfg.KeyID == "" || cfg.KeySecret == "" {
			return nil, errors.New("razorpay key_id and key_secret are required")
		}
		return gateway.NewRazorpay(cfg.KeyID, cfg.KeySecret, timeout), nil
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, errors.New("stripe_secret_key is required")
		}
		return gateway.NewStripe(cfg.StripeSecretKey, cfg.StripePublicKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
