package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/api/handler"
	"github.com/qs3c/trademint_server/internal/api/middleware"
	"github.com/qs3c/trademint_server/internal/model"
)

type Router struct {
	paymentHandler      *handler.PaymentHandler
	subscriptionHandler *handler.SubscriptionHandler
	alertHandler        *handler.AlertHandler
	traderHandler       *handler.TraderHandler
	adminHandler        *handler.AdminHandler
	cronHandler         *handler.CronHandler
	websocketHandler    *handler.WebSocketHandler
	metricsHandler      http.Handler
	cfg                 *config.Config
}

func NewRouter(
	paymentHandler *handler.PaymentHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	alertHandler *handler.AlertHandler,
	traderHandler *handler.TraderHandler,
	adminHandler *handler.AdminHandler,
	cronHandler *handler.CronHandler,
	websocketHandler *handler.WebSocketHandler,
	metricsHandler http.Handler,
	cfg *config.Config,
) *Router {
	return &Router{
		paymentHandler:      paymentHandler,
		subscriptionHandler: subscriptionHandler,
		alertHandler:        alertHandler,
		traderHandler:       traderHandler,
		adminHandler:        adminHandler,
		cronHandler:         cronHandler,
		websocketHandler:    websocketHandler,
		metricsHandler:      metricsHandler,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	// metricsHandler 为 nil 时不暴露指标
	if r.metricsHandler != nil {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(r.metricsHandler))
	}

	api := engine.Group("/api/v1")
	{
		// WebSocket，token 通过 query 传入
		api.GET("/ws", r.websocketHandler.Handle)

		// 外部调度器
		cron := api.Group("/cron")
		{
			cron.GET("/health", r.cronHandler.Health)
			cron.POST("/check-expiry", middleware.CronSecret(r.cfg.Cron.Secret), r.cronHandler.CheckExpiry)
		}

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 支付
			payments := authenticated.Group("/payments")
			{
				payments.POST("/create-order", middleware.RequireRole(model.RoleClient), r.paymentHandler.CreateOrder)
				payments.POST("/verify", middleware.RequireRole(model.RoleClient), r.paymentHandler.Verify)
				payments.GET("", r.paymentHandler.List)
				payments.GET("/:id", r.paymentHandler.Get)
			}

			// 订阅
			subscriptions := authenticated.Group("/subscriptions")
			{
				subscriptions.GET("", r.subscriptionHandler.List)
				subscriptions.GET("/:id", r.subscriptionHandler.Get)
				subscriptions.POST("/:id/cancel", r.subscriptionHandler.Cancel)
			}

			// 提醒
			alerts := authenticated.Group("/alerts")
			{
				alerts.POST("", middleware.RequireRole(model.RoleTrader), r.alertHandler.Publish)
				alerts.GET("/mine", r.alertHandler.Inbox)
				alerts.GET("/unread-count", r.alertHandler.UnreadCount)
				alerts.POST("/recipients/:id/read", r.alertHandler.MarkRead)
			}

			// 交易员
			trader := authenticated.Group("/trader")
			trader.Use(middleware.RequireRole(model.RoleTrader))
			{
				trader.POST("/services", r.traderHandler.CreateService)
				trader.GET("/services", r.traderHandler.ListServices)
				trader.POST("/services/:id/deactivate", r.traderHandler.DeactivateService)
				trader.POST("/services/:id/channel", r.traderHandler.BindChannel)
				trader.GET("/services/:id/channel", r.traderHandler.ChannelInfo)
				trader.POST("/services/:id/invite-link", r.traderHandler.InviteLink)
			}

			// 管理员
			admin := authenticated.Group("/admin")
			admin.Use(middleware.RequireRole(model.RoleAdmin))
			{
				admin.POST("/traders/:id/approve", r.adminHandler.ApproveTrader)
				admin.POST("/traders/:id/revoke", r.adminHandler.RevokeTrader)
				admin.POST("/services/:id/deactivate", r.adminHandler.DeactivateService)
			}
		}
	}

	return engine
}
