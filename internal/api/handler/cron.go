package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/internal/service"
)

// ExpirySweeper 到期扫描
type ExpirySweeper interface {
	Sweep(ctx context.Context) (*service.SweepReport, error)
}

// CronHandler 供外部调度器调用，返回真实 HTTP 状态码
type CronHandler struct {
	sweeper ExpirySweeper
	timeout time.Duration
}

func NewCronHandler(sweeper ExpirySweeper, timeout time.Duration) *CronHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &CronHandler{
		sweeper: sweeper,
		timeout: timeout,
	}
}

// CheckExpiry 执行一次到期扫描
// POST /api/v1/cron/check-expiry
func (h *CronHandler) CheckExpiry(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	report, err := h.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("cron check-expiry failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// Health 调度器探活
// GET /api/v1/cron/health
func (h *CronHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
