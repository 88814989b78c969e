package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/repository"
)

// SubscriptionService 订阅查询与取消
type SubscriptionService struct {
	subRepo     *repository.SubscriptionRepository
	serviceRepo *repository.ServiceRepository
	sink        notify.Sink
	sinkTimeout time.Duration
	now         func() time.Time
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	serviceRepo *repository.ServiceRepository,
	sink notify.Sink,
	sinkTimeout time.Duration,
) *SubscriptionService {
	if sinkTimeout <= 0 {
		sinkTimeout = 5 * time.Second
	}
	return &SubscriptionService{
		subRepo:     subRepo,
		serviceRepo: serviceRepo,
		sink:        sink,
		sinkTimeout: sinkTimeout,
		now:         time.Now,
	}
}

// List 分页获取当前用户的订阅
func (s *SubscriptionService) List(userID int64, req *dto.ListSubscriptionsRequest) ([]*dto.SubscriptionItem, int64, error) {
	subs, total, err := s.subRepo.ListByUser(userID, req.Status, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ServiceID)
	}
	services, err := s.serviceRepo.GetByIDs(ids)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	items := make([]*dto.SubscriptionItem, 0, len(subs))
	for _, sub := range subs {
		items = append(items, toSubscriptionItem(sub, services[sub.ServiceID], now))
	}
	return items, total, nil
}

// Get 获取当前用户的单条订阅
func (s *SubscriptionService) Get(userID, subscriptionID int64) (*dto.SubscriptionItem, error) {
	sub, err := s.subRepo.GetByIDAndUser(subscriptionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	service, err := s.serviceRepo.GetByID(sub.ServiceID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return toSubscriptionItem(sub, service, s.now()), nil
}

// Cancel 用户主动取消，不退款。状态变更提交后再尽力移出频道
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID int64) (*dto.SubscriptionItem, error) {
	sub, err := s.subRepo.GetByIDAndUser(subscriptionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	now := s.now()
	rows, err := s.subRepo.Cancel(sub.ID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrSubscriptionNotActive
	}

	service, err := s.serviceRepo.GetByID(sub.ServiceID)
	if err != nil {
		log.Printf("degraded: load service for cancellation failed: subscription=%d err=%v", sub.ID, err)
	}

	if service != nil && service.HasChannel() && sub.ChannelMemberID != nil && *sub.ChannelMemberID != "" {
		rctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
		err := s.sink.RemoveMember(rctx, *service.ChannelID, *sub.ChannelMemberID)
		cancel()
		if err != nil {
			log.Printf("degraded: remove member on cancel failed: subscription=%d channel=%s member=%s err=%v",
				sub.ID, *service.ChannelID, *sub.ChannelMemberID, err)
		} else if err := s.subRepo.MarkChannelRevoked(sub.ID, now); err != nil {
			log.Printf("Failed to record channel revocation: subscription=%d err=%v", sub.ID, err)
		}
	}

	log.Printf("Subscription cancelled: subscription=%d user=%d service=%d", sub.ID, userID, sub.ServiceID)

	sub.Status = model.SubscriptionCancelled
	sub.ActiveKey = nil
	sub.UpdatedAt = now
	return toSubscriptionItem(sub, service, now), nil
}
