package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/repository"
)

// CatalogService 交易员的服务目录、频道绑定以及管理员审核
type CatalogService struct {
	serviceRepo *repository.ServiceRepository
	traderRepo  *repository.TraderRepository
	sink        notify.Sink
	cfg         *config.PaymentConfig
	sinkTimeout time.Duration
	now         func() time.Time
}

func NewCatalogService(
	serviceRepo *repository.ServiceRepository,
	traderRepo *repository.TraderRepository,
	sink notify.Sink,
	cfg *config.PaymentConfig,
	sinkTimeout time.Duration,
) *CatalogService {
	if sinkTimeout <= 0 {
		sinkTimeout = 5 * time.Second
	}
	return &CatalogService{
		serviceRepo: serviceRepo,
		traderRepo:  traderRepo,
		sink:        sink,
		cfg:         cfg,
		sinkTimeout: sinkTimeout,
		now:         time.Now,
	}
}

// CreateService 已审核交易员创建服务。没有价格档位时时长必须在允许集合内
func (s *CatalogService) CreateService(userID int64, req *dto.CreateServiceRequest) (*dto.ServiceItem, error) {
	trader, err := s.approvedTrader(userID)
	if err != nil {
		return nil, err
	}

	if req.Price <= 0 || req.DurationDays <= 0 {
		return nil, ErrInvalidTerms
	}
	if len(req.PricingTiers) == 0 && !s.cfg.DurationAllowed(req.DurationDays) {
		return nil, ErrInvalidTerms
	}

	var tiers datatypes.JSON
	if len(req.PricingTiers) > 0 {
		seen := make(map[int]bool, len(req.PricingTiers))
		for _, tier := range req.PricingTiers {
			if tier.Price <= 0 || tier.DurationDays <= 0 || seen[tier.DurationDays] {
				return nil, ErrInvalidTerms
			}
			seen[tier.DurationDays] = true
		}
		raw, err := json.Marshal(req.PricingTiers)
		if err != nil {
			return nil, err
		}
		tiers = datatypes.JSON(raw)
	}

	service := &model.Service{
		TraderID:     trader.ID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		PricingTiers: tiers,
		IsActive:     true,
	}
	if err := s.serviceRepo.Create(service); err != nil {
		return nil, err
	}

	log.Printf("Service created: service=%d trader=%d price=%d duration=%d", service.ID, trader.ID, service.Price, service.DurationDays)
	return toServiceItem(service), nil
}

// ListMine 当前交易员的全部服务
func (s *CatalogService) ListMine(userID int64) ([]*dto.ServiceItem, error) {
	trader, err := s.traderRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTraderNotFound
		}
		return nil, err
	}

	services, err := s.serviceRepo.ListByTrader(trader.ID)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.ServiceItem, 0, len(services))
	for _, svc := range services {
		items = append(items, toServiceItem(svc))
	}
	return items, nil
}

// Deactivate 停止售卖。管理员可以操作任意服务，交易员只能操作自己的服务，已有订阅保持不变
func (s *CatalogService) Deactivate(userID int64, role string, serviceID int64) error {
	service, err := s.serviceRepo.GetByID(serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceNotFound
		}
		return err
	}

	if role != model.RoleAdmin {
		if _, err := s.ownedService(userID, service); err != nil {
			return err
		}
	}

	if !service.IsActive {
		return nil
	}
	if err := s.serviceRepo.Deactivate(service.ID); err != nil {
		return err
	}

	log.Printf("Service deactivated: service=%d by_user=%d role=%s", service.ID, userID, role)
	return nil
}

// BindChannel 绑定已有频道或通过频道服务新建频道
func (s *CatalogService) BindChannel(ctx context.Context, userID, serviceID int64, req *dto.ChannelRequest) (*dto.ServiceItem, error) {
	service, err := s.ownedServiceByID(userID, serviceID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()

	channelID := strings.TrimSpace(req.ChannelID)
	if channelID != "" {
		ok, err := s.sink.IsOperatorMember(ctx, channelID)
		if err != nil {
			log.Printf("degraded: operator check failed: service=%d channel=%s err=%v", service.ID, channelID, err)
			return nil, ErrChannelUnavailable
		}
		if !ok {
			return nil, ErrNotChannelOperator
		}
	} else {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = service.Name
		}
		channelID, err = s.sink.CreateChannel(ctx, title, req.Description)
		if err != nil {
			if errors.Is(err, notify.ErrUnsupported) {
				return nil, ErrChannelUnsupported
			}
			log.Printf("degraded: create channel failed: service=%d err=%v", service.ID, err)
			return nil, ErrChannelUnavailable
		}
	}

	if err := s.serviceRepo.SetChannelID(service.ID, channelID); err != nil {
		return nil, err
	}
	service.ChannelID = &channelID

	log.Printf("Channel bound: service=%d channel=%s", service.ID, channelID)
	return toServiceItem(service), nil
}

// InviteLink 为服务频道生成邀请链接
func (s *CatalogService) InviteLink(ctx context.Context, userID, serviceID int64, permanent bool) (string, error) {
	service, err := s.ownedServiceByID(userID, serviceID)
	if err != nil {
		return "", err
	}
	if !service.HasChannel() {
		return "", ErrChannelNotBound
	}

	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()

	url, err := s.sink.CreateInviteLink(ctx, *service.ChannelID, permanent)
	if err != nil {
		log.Printf("degraded: invite link failed: service=%d channel=%s err=%v", service.ID, *service.ChannelID, err)
		return "", ErrChannelUnavailable
	}
	return url, nil
}

// ChannelInfo 读取服务频道信息
func (s *CatalogService) ChannelInfo(ctx context.Context, userID, serviceID int64) (*notify.ChannelInfo, error) {
	service, err := s.ownedServiceByID(userID, serviceID)
	if err != nil {
		return nil, err
	}
	if !service.HasChannel() {
		return nil, ErrChannelNotBound
	}

	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()

	info, err := s.sink.ChannelInfo(ctx, *service.ChannelID)
	if err != nil {
		log.Printf("degraded: channel info failed: service=%d channel=%s err=%v", service.ID, *service.ChannelID, err)
		return nil, ErrChannelUnavailable
	}
	return info, nil
}

// ApproveTrader 管理员审核通过交易员
func (s *CatalogService) ApproveTrader(adminID, traderID int64) (*dto.TraderItem, error) {
	if _, err := s.getTrader(traderID); err != nil {
		return nil, err
	}
	if err := s.traderRepo.Approve(traderID, adminID, s.now()); err != nil {
		return nil, err
	}
	log.Printf("Trader approved: trader=%d admin=%d", traderID, adminID)

	trader, err := s.getTrader(traderID)
	if err != nil {
		return nil, err
	}
	return toTraderItem(trader), nil
}

// RevokeTrader 撤销审核。已有订阅不受影响，只是不能再售卖和发布提醒
func (s *CatalogService) RevokeTrader(adminID, traderID int64) (*dto.TraderItem, error) {
	if _, err := s.getTrader(traderID); err != nil {
		return nil, err
	}
	if err := s.traderRepo.Revoke(traderID); err != nil {
		return nil, err
	}
	log.Printf("Trader revoked: trader=%d admin=%d", traderID, adminID)

	trader, err := s.getTrader(traderID)
	if err != nil {
		return nil, err
	}
	return toTraderItem(trader), nil
}

func (s *CatalogService) getTrader(traderID int64) (*model.Trader, error) {
	trader, err := s.traderRepo.GetByID(traderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTraderNotFound
		}
		return nil, err
	}
	return trader, nil
}

func (s *CatalogService) approvedTrader(userID int64) (*model.Trader, error) {
	trader, err := s.traderRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotApprovedTrader
		}
		return nil, err
	}
	if !trader.Approved {
		return nil, ErrNotApprovedTrader
	}
	return trader, nil
}

func (s *CatalogService) ownedServiceByID(userID, serviceID int64) (*model.Service, error) {
	service, err := s.serviceRepo.GetByID(serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return s.ownedService(userID, service)
}

func (s *CatalogService) ownedService(userID int64, service *model.Service) (*model.Service, error) {
	trader, err := s.traderRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotOwned
		}
		return nil, err
	}
	if trader.ID != service.TraderID {
		return nil, ErrServiceNotOwned
	}
	return service, nil
}

func toServiceItem(s *model.Service) *dto.ServiceItem {
	return &dto.ServiceItem{
		ID:           s.ID,
		TraderID:     s.TraderID,
		Name:         s.Name,
		Description:  s.Description,
		Price:        s.Price,
		DurationDays: s.DurationDays,
		PricingTiers: s.Tiers(),
		ChannelID:    s.ChannelID,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}

func toTraderItem(t *model.Trader) *dto.TraderItem {
	item := &dto.TraderItem{
		ID:       t.ID,
		UserID:   t.UserID,
		Name:     t.Name,
		SebiReg:  t.SebiReg,
		Approved: t.Approved,
	}
	if t.ApprovedAt != nil {
		at := t.ApprovedAt.Format(time.RFC3339)
		item.ApprovedAt = &at
	}
	return item
}
