package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/qs3c/trademint_server/internal/service"
)

// Sweeper 过期扫描
type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepReport, error)
}

type Service struct {
	sweeper    Sweeper
	cron       *cron.Cron
	interval   time.Duration
	runTimeout time.Duration
	runOnStart bool
}

// NewService intervalMinutes 小于等于 0 时按 60 分钟处理
func NewService(sweeper Sweeper, intervalMinutes int, runOnStart bool) *Service {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	interval := time.Duration(intervalMinutes) * time.Minute
	return &Service{
		sweeper: sweeper,
		// 上一次扫描未结束时跳过本次触发
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		interval:   interval,
		runTimeout: interval,
		runOnStart: runOnStart,
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.runSweep))
	s.cron.Start()
	if s.runOnStart {
		go s.runSweep()
	}
	log.Printf("Cron service started (expiry sweep every %s)", s.interval)
}

// Stop 停止定时任务，等待正在执行的扫描结束或 ctx 超时
func (s *Service) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Println("Cron service stop timed out, sweep still running")
		return
	}
	log.Println("Cron service stopped")
}

// RunNow 立即执行一次扫描
func (s *Service) RunNow(ctx context.Context) (*service.SweepReport, error) {
	return s.sweeper.Sweep(ctx)
}

func (s *Service) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	log.Println("Starting scheduled expiry sweep...")
	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("Scheduled expiry sweep failed: %v", err)
		return
	}
	if report.Skipped {
		return
	}
	log.Printf("Scheduled expiry sweep completed: expired=%d channel_removed=%d", report.Expired, report.ChannelRemoved)
}
