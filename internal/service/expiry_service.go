package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/pkg/lock"
	"github.com/qs3c/trademint_server/internal/pkg/metrics"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/repository"
)

const sweepLockName = "trademint:expiry-sweep"

// SweepReport 一次过期扫描的结果
type SweepReport struct {
	CheckedAt           time.Time `json:"checked_at"`
	Expired             int       `json:"expired"`
	ChannelRemoved      int       `json:"channel_removed"`
	ChannelRemoveFailed int       `json:"channel_remove_failed"`
	// Skipped 其他实例正在扫描，本次未执行
	Skipped bool `json:"skipped"`
}

// ExpiryService 把到期的 ACTIVE 订阅置为 EXPIRED 并移出频道。
// 定时器和外部触发可以同时存在，重复执行不会重复过期或重复移除
type ExpiryService struct {
	txm         *repository.Transactor
	subRepo     *repository.SubscriptionRepository
	serviceRepo *repository.ServiceRepository
	sink        notify.Sink
	locker      *lock.Locker
	metrics     *metrics.Metrics
	sinkTimeout time.Duration
	now         func() time.Time
}

// NewExpiryService locker 为 nil 时不做跨实例互斥
func NewExpiryService(
	txm *repository.Transactor,
	subRepo *repository.SubscriptionRepository,
	serviceRepo *repository.ServiceRepository,
	sink notify.Sink,
	locker *lock.Locker,
	m *metrics.Metrics,
	sinkTimeout time.Duration,
) *ExpiryService {
	if sinkTimeout <= 0 {
		sinkTimeout = 5 * time.Second
	}
	return &ExpiryService{
		txm:         txm,
		subRepo:     subRepo,
		serviceRepo: serviceRepo,
		sink:        sink,
		locker:      locker,
		metrics:     m,
		sinkTimeout: sinkTimeout,
		now:         time.Now,
	}
}

// Sweep 执行一次过期扫描
func (s *ExpiryService) Sweep(ctx context.Context) (*SweepReport, error) {
	if s.locker == nil {
		return s.sweep(ctx)
	}

	var report *SweepReport
	err := s.locker.WithLock(ctx, sweepLockName, func(ctx context.Context) error {
		var err error
		report, err = s.sweep(ctx)
		return err
	})
	if errors.Is(err, lock.ErrBusy) {
		log.Println("Expiry sweep skipped: another instance holds the lock")
		return &SweepReport{CheckedAt: s.now(), Skipped: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Preview 列出当前会被过期的订阅，不做任何修改
func (s *ExpiryService) Preview(ctx context.Context) ([]*model.Subscription, error) {
	return s.subRepo.ListDue(s.now())
}

func (s *ExpiryService) sweep(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	report := &SweepReport{CheckedAt: now}

	var expired []*model.Subscription
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		subs := s.subRepo.WithTx(tx)

		due, err := subs.ListDue(now)
		if err != nil {
			return err
		}
		for _, sub := range due {
			// 条件更新，并发扫描中只有一方会命中
			rows, err := subs.Expire(sub.ID, now)
			if err != nil {
				return err
			}
			if rows == 1 {
				expired = append(expired, sub)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Expiry sweep failed: err=%v", err)
		return nil, err
	}

	report.Expired = len(expired)
	s.metrics.Expired(report.Expired)

	if len(expired) > 0 {
		s.revokeChannelAccess(ctx, expired, report)
	}

	log.Printf("Expiry sweep done: expired=%d channel_removed=%d channel_remove_failed=%d",
		report.Expired, report.ChannelRemoved, report.ChannelRemoveFailed)
	return report, nil
}

// revokeChannelAccess 在提交之后移除频道成员，失败只记录不回滚
func (s *ExpiryService) revokeChannelAccess(ctx context.Context, expired []*model.Subscription, report *SweepReport) {
	serviceIDs := make([]int64, 0, len(expired))
	seen := make(map[int64]bool)
	for _, sub := range expired {
		if sub.ChannelMemberID == nil || seen[sub.ServiceID] {
			continue
		}
		seen[sub.ServiceID] = true
		serviceIDs = append(serviceIDs, sub.ServiceID)
	}
	if len(serviceIDs) == 0 {
		return
	}

	services, err := s.serviceRepo.GetByIDs(serviceIDs)
	if err != nil {
		pending := 0
		for _, sub := range expired {
			if sub.ChannelMemberID != nil && *sub.ChannelMemberID != "" {
				pending++
			}
		}
		report.ChannelRemoveFailed += pending
		log.Printf("degraded: load services for revocation failed: pending=%d err=%v", pending, err)
		return
	}

	for _, sub := range expired {
		if sub.ChannelMemberID == nil || *sub.ChannelMemberID == "" {
			continue
		}
		service, ok := services[sub.ServiceID]
		if !ok || !service.HasChannel() {
			continue
		}

		if err := s.removeMember(ctx, *service.ChannelID, *sub.ChannelMemberID); err != nil {
			report.ChannelRemoveFailed++
			s.metrics.ChannelRemoval(false)
			log.Printf("degraded: remove member failed: subscription=%d service=%d user=%d channel=%s member=%s err=%v",
				sub.ID, service.ID, sub.UserID, *service.ChannelID, *sub.ChannelMemberID, err)
			continue
		}

		report.ChannelRemoved++
		s.metrics.ChannelRemoval(true)
		if err := s.subRepo.MarkChannelRevoked(sub.ID, s.now()); err != nil {
			log.Printf("Failed to record channel revocation: subscription=%d err=%v", sub.ID, err)
		}
	}
}

func (s *ExpiryService) removeMember(ctx context.Context, channelID, memberID string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()

	// 频道实现的 panic 不能影响已经提交的状态
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("notification sink panicked")
			log.Printf("degraded: remove member panic: channel=%s member=%s panic=%v", channelID, memberID, r)
		}
	}()
	return s.sink.RemoveMember(ctx, channelID, memberID)
}
