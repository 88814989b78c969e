package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/gateway"
	"github.com/qs3c/trademint_server/internal/pkg/metrics"
	"github.com/qs3c/trademint_server/internal/pkg/money"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
	"github.com/qs3c/trademint_server/internal/repository"
)

// PaymentService 两阶段支付：下单，然后校验签名并开通订阅
type PaymentService struct {
	txm         *repository.Transactor
	paymentRepo *repository.PaymentRepository
	subRepo     *repository.SubscriptionRepository
	serviceRepo *repository.ServiceRepository
	traderRepo  *repository.TraderRepository
	userRepo    *repository.UserRepository
	gateway     gateway.Gateway
	dispatcher  Dispatcher
	metrics     *metrics.Metrics
	cfg         *config.PaymentConfig
	now         func() time.Time
}

func NewPaymentService(
	txm *repository.Transactor,
	paymentRepo *repository.PaymentRepository,
	subRepo *repository.SubscriptionRepository,
	serviceRepo *repository.ServiceRepository,
	traderRepo *repository.TraderRepository,
	userRepo *repository.UserRepository,
	gw gateway.Gateway,
	dispatcher Dispatcher,
	m *metrics.Metrics,
	cfg *config.PaymentConfig,
) *PaymentService {
	return &PaymentService{
		txm:         txm,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		serviceRepo: serviceRepo,
		traderRepo:  traderRepo,
		userRepo:    userRepo,
		gateway:     gw,
		dispatcher:  dispatcher,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

// CreateOrder 校验购买条件，向网关下单后记录 CREATED 状态的支付
func (s *PaymentService) CreateOrder(ctx context.Context, userID int64, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Role != model.RoleClient {
		return nil, ErrNotPurchaser
	}

	service, err := s.purchasableService(req.ServiceID)
	if err != nil {
		return nil, err
	}

	// 快速检查，真正的唯一性由 active_key 唯一索引保证
	active, err := s.subRepo.HasActive(userID, service.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadySubscribed
	}

	price, duration, err := s.resolveTerms(service, req.CustomPrice, req.CustomDurationDays)
	if err != nil {
		return nil, err
	}

	amount := money.FromUnits(price)
	amountMinor, err := money.ToMinor(amount, s.cfg.Factor())
	if err != nil {
		return nil, ErrInvalidTerms
	}

	notes := map[string]string{
		gateway.NoteDurationDays: strconv.Itoa(duration),
		"service_id":             strconv.FormatInt(service.ID, 10),
		"user_id":                strconv.FormatInt(userID, 10),
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	order, err := s.gateway.CreateOrder(gctx, amountMinor, s.cfg.Currency, gateway.NewReceipt(), notes)
	cancel()
	if err != nil {
		log.Printf("CreateOrder gateway error: gateway=%s user=%d service=%d err=%v", s.gateway.Name(), userID, service.ID, err)
		return nil, ErrGatewayUnavailable
	}

	payment := &model.Payment{
		OrderID:      order.ID,
		UserID:       userID,
		ServiceID:    service.ID,
		Amount:       amount,
		Currency:     s.cfg.Currency,
		DurationDays: duration,
		Status:       model.PaymentCreated,
		Notes:        toJSONMap(notes),
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		// 网关订单已创建但未扣款，留待人工对账
		log.Printf("orphan: gateway order created without payment row: order=%s user=%d service=%d err=%v", order.ID, userID, service.ID, err)
		return nil, err
	}

	s.metrics.OrderCreated(s.gateway.Name())
	log.Printf("Order created: order=%s payment=%d user=%d service=%d amount_minor=%d duration=%d",
		order.ID, payment.ID, userID, service.ID, amountMinor, duration)

	return &dto.CreateOrderResponse{
		PaymentID:     payment.ID,
		OrderID:       order.ID,
		Amount:        amountMinor,
		DisplayAmount: amount.String(),
		Currency:      s.cfg.Currency,
		DurationDays:  duration,
		Gateway:       s.gateway.Name(),
		KeyID:         s.gateway.ClientKey(),
	}, nil
}

// VerifyAndActivate 校验支付签名，在同一事务中确认支付并开通订阅
func (s *PaymentService) VerifyAndActivate(ctx context.Context, userID int64, req *dto.VerifyPaymentRequest) (*dto.ActivationResponse, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	valid, err := s.gateway.VerifySignature(gctx, req.OrderID, req.ChargeID, req.Signature)
	cancel()
	if err != nil {
		log.Printf("VerifySignature gateway error: order=%s user=%d err=%v", req.OrderID, userID, err)
		return nil, ErrGatewayUnavailable
	}
	if !valid {
		s.metrics.Verification("invalid_signature")
		log.Printf("Invalid payment signature: order=%s charge=%s user=%d", req.OrderID, req.ChargeID, userID)
		return nil, ErrInvalidSignature
	}

	payment, err := s.paymentRepo.GetByOrderAndUser(req.OrderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	switch payment.Status {
	case model.PaymentCaptured, model.PaymentRefunded:
		s.metrics.Verification("already_processed")
		return nil, ErrAlreadyProcessed
	case model.PaymentFailed:
		return nil, ErrPaymentClosed
	}
	if req.ServiceID != payment.ServiceID {
		return nil, ErrServiceMismatch
	}

	service, err := s.serviceRepo.GetByID(payment.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	// 网关调用放在事务之外
	duration := s.resolveDuration(ctx, payment, service)
	method, contact := s.chargeDetails(ctx, req.ChargeID)

	now := s.now()
	sub := &model.Subscription{
		UserID:          userID,
		ServiceID:       payment.ServiceID,
		PaymentID:       &payment.ID,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, duration),
		Status:          model.SubscriptionActive,
		ActiveKey:       model.ActiveSlot(userID, payment.ServiceID),
		ChannelMemberID: user.TelegramUserID,
	}

	err = s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		payments := s.paymentRepo.WithTx(tx)
		subs := s.subRepo.WithTx(tx)

		locked, err := payments.LockByOrderID(payment.OrderID)
		if err != nil {
			return err
		}
		switch locked.Status {
		case model.PaymentCaptured, model.PaymentRefunded:
			return ErrAlreadyProcessed
		case model.PaymentFailed:
			return ErrPaymentClosed
		}

		active, err := subs.HasActive(userID, payment.ServiceID)
		if err != nil {
			return err
		}
		if active {
			return ErrAlreadySubscribed
		}

		rows, err := payments.MarkCaptured(payment.ID, repository.CaptureFields{
			ChargeID:  req.ChargeID,
			Signature: req.Signature,
			Method:    method,
			Contact:   contact,
			PaidAt:    now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyProcessed
		}

		if err := subs.Create(sub); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubscribed
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			s.metrics.Verification("already_processed")
			return nil, ErrAlreadyProcessed
		}
		if errors.Is(err, ErrPaymentClosed) {
			return nil, ErrPaymentClosed
		}
		s.markFailed(payment, err)
		s.metrics.Verification("failed")
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerificationFailed, err)
	}

	s.metrics.Verification("captured")
	log.Printf("Payment captured: order=%s charge=%s user=%d service=%d subscription=%d end=%s",
		payment.OrderID, req.ChargeID, userID, service.ID, sub.ID, sub.EndDate.Format(time.RFC3339))

	if service.HasChannel() {
		s.dispatchInvite(ctx, service, sub)
	}

	paidAt := now.Format(time.RFC3339)
	chargeID := req.ChargeID
	return &dto.ActivationResponse{
		Subscription: toSubscriptionItem(sub, service, now),
		Payment: &dto.PaymentItem{
			ID:           payment.ID,
			ServiceID:    payment.ServiceID,
			OrderID:      payment.OrderID,
			ChargeID:     &chargeID,
			Amount:       payment.Amount.String(),
			Currency:     payment.Currency,
			DurationDays: duration,
			Status:       model.PaymentCaptured,
			Method:       method,
			CreatedAt:    payment.CreatedAt.Format(time.RFC3339),
			PaidAt:       &paidAt,
		},
	}, nil
}

// ListPayments 分页获取当前用户的支付记录
func (s *PaymentService) ListPayments(userID int64, page, pageSize int) ([]*dto.PaymentItem, int64, error) {
	payments, total, err := s.paymentRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.PaymentItem, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentItem(p))
	}
	return items, total, nil
}

// GetPayment 获取当前用户的单条支付记录
func (s *PaymentService) GetPayment(userID, paymentID int64) (*dto.PaymentItem, error) {
	payment, err := s.paymentRepo.GetByIDAndUser(paymentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return toPaymentItem(payment), nil
}

// purchasableService 服务存在、在售且所属交易员已审核
func (s *PaymentService) purchasableService(serviceID int64) (*model.Service, error) {
	service, err := s.serviceRepo.GetByID(serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	if !service.IsActive {
		return nil, ErrServiceInactive
	}

	trader, err := s.traderRepo.GetByID(service.TraderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTraderNotApproved
		}
		return nil, err
	}
	if !trader.Approved {
		return nil, ErrTraderNotApproved
	}
	return service, nil
}

// resolveTerms 计算实际价格和时长。
// 有价格档位时，时长必须命中某一档，价格若指定则必须与该档一致；
// 没有档位时价格可以协商，时长必须在允许集合内
func (s *PaymentService) resolveTerms(service *model.Service, customPrice *int64, customDays *int) (int64, int, error) {
	price := service.Price
	duration := service.DurationDays
	if customPrice != nil {
		if *customPrice <= 0 {
			return 0, 0, ErrInvalidTerms
		}
		price = *customPrice
	}
	if customDays != nil {
		if *customDays <= 0 {
			return 0, 0, ErrInvalidTerms
		}
		duration = *customDays
	}

	tiers := service.Tiers()
	if len(tiers) == 0 {
		if customDays != nil && !s.cfg.DurationAllowed(duration) {
			return 0, 0, ErrInvalidTerms
		}
		return price, duration, nil
	}

	for _, tier := range tiers {
		if tier.DurationDays != duration {
			continue
		}
		if customPrice != nil && *customPrice != tier.Price {
			return 0, 0, ErrInvalidTerms
		}
		return tier.Price, duration, nil
	}
	// 服务默认条款本身始终可用
	if duration == service.DurationDays && (customPrice == nil || *customPrice == service.Price) {
		return service.Price, duration, nil
	}
	return 0, 0, ErrInvalidTerms
}

// resolveDuration 依次使用网关订单备注、本地快照、服务默认时长
func (s *PaymentService) resolveDuration(ctx context.Context, payment *model.Payment, service *model.Service) int {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	order, err := s.gateway.FetchOrder(gctx, payment.OrderID)
	cancel()

	if err == nil {
		if raw, ok := order.Notes[gateway.NoteDurationDays]; ok {
			if days, perr := strconv.Atoi(raw); perr == nil && days > 0 {
				return days
			}
			log.Printf("degraded: invalid duration note: order=%s value=%q", payment.OrderID, raw)
		} else {
			log.Printf("degraded: duration note missing: order=%s", payment.OrderID)
		}
	} else {
		log.Printf("degraded: fetch order failed: order=%s err=%v", payment.OrderID, err)
	}

	if payment.DurationDays > 0 {
		log.Printf("degraded: using stored duration: order=%s days=%d", payment.OrderID, payment.DurationDays)
		return payment.DurationDays
	}
	log.Printf("degraded: using service default duration: order=%s service=%d days=%d", payment.OrderID, service.ID, service.DurationDays)
	return service.DurationDays
}

// chargeDetails 尽力获取支付方式和联系方式
func (s *PaymentService) chargeDetails(ctx context.Context, chargeID string) (string, string) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()

	charge, err := s.gateway.GetCharge(gctx, chargeID)
	if err != nil {
		log.Printf("degraded: get charge failed: charge=%s err=%v", chargeID, err)
		return "", ""
	}
	return charge.Method, charge.Contact
}

// markFailed 事务回滚后单独提交 FAILED 状态，便于审计
func (s *PaymentService) markFailed(payment *model.Payment, cause error) {
	code := "ACTIVATION_FAILED"
	if errors.Is(cause, ErrAlreadySubscribed) {
		code = "ALREADY_SUBSCRIBED"
	}
	rows, err := s.paymentRepo.MarkFailed(payment.ID, code, cause.Error())
	if err != nil {
		log.Printf("Failed to mark payment failed: order=%s err=%v cause=%v", payment.OrderID, err, cause)
		return
	}
	log.Printf("Payment marked failed: order=%s user=%d rows=%d cause=%v", payment.OrderID, payment.UserID, rows, cause)
}

func (s *PaymentService) dispatchInvite(ctx context.Context, service *model.Service, sub *model.Subscription) {
	job := &queue.NotificationJob{
		Kind:           queue.KindInvite,
		ServiceID:      service.ID,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		ChannelID:      *service.ChannelID,
		Text:           fmt.Sprintf("Welcome to %s. Your access is valid until %s.", service.Name, sub.EndDate.Format("2006-01-02")),
	}
	if sub.ChannelMemberID != nil {
		job.MemberID = *sub.ChannelMemberID
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		log.Printf("degraded: invite dispatch failed: service=%d user=%d channel=%s err=%v", service.ID, sub.UserID, job.ChannelID, err)
	}
}

func toJSONMap(notes map[string]string) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(notes))
	for k, v := range notes {
		m[k] = v
	}
	return m
}

func toPaymentItem(p *model.Payment) *dto.PaymentItem {
	item := &dto.PaymentItem{
		ID:           p.ID,
		ServiceID:    p.ServiceID,
		OrderID:      p.OrderID,
		ChargeID:     p.ChargeID,
		Amount:       p.Amount.String(),
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Status:       p.Status,
		Method:       p.Method,
		ErrorCode:    p.ErrorCode,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		paidAt := p.PaidAt.Format(time.RFC3339)
		item.PaidAt = &paidAt
	}
	return item
}

func toSubscriptionItem(sub *model.Subscription, service *model.Service, now time.Time) *dto.SubscriptionItem {
	item := &dto.SubscriptionItem{
		ID:        sub.ID,
		ServiceID: sub.ServiceID,
		PaymentID: sub.PaymentID,
		Status:    sub.Status,
		StartDate: sub.StartDate.Format(time.RFC3339),
		EndDate:   sub.EndDate.Format(time.RFC3339),
	}
	if service != nil {
		item.ServiceName = service.Name
	}
	if sub.Status == model.SubscriptionActive && sub.EndDate.After(now) {
		item.DaysLeft = int(sub.EndDate.Sub(now).Hours() / 24)
	}
	return item
}
