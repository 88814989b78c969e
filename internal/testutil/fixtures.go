package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户，默认角色为 client
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Email: fmt.Sprintf("test_%d_%d@example.com", time.Now().UnixNano(), nextSeq()),
		Role:  model.RoleClient,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithTelegramID 设置 Telegram 账号
func WithTelegramID(id string) func(*model.User) {
	return func(u *model.User) {
		u.TelegramUserID = &id
	}
}

// TestTrader 创建测试交易员（账号与资料），默认已审核
func TestTrader(t *testing.T, db *gorm.DB, opts ...func(*model.Trader)) (*model.User, *model.Trader) {
	t.Helper()

	user := TestUser(t, db, WithRole(model.RoleTrader))
	now := time.Now()
	trader := &model.Trader{
		UserID:     user.ID,
		Name:       fmt.Sprintf("Trader %d", nextSeq()),
		SebiReg:    fmt.Sprintf("INH%09d", nextSeq()),
		Approved:   true,
		ApprovedAt: &now,
	}

	for _, opt := range opts {
		opt(trader)
	}

	if err := db.Create(trader).Error; err != nil {
		t.Fatalf("Failed to create test trader: %v", err)
	}

	return user, trader
}

// WithApproved 设置审核状态
func WithApproved(approved bool) func(*model.Trader) {
	return func(tr *model.Trader) {
		tr.Approved = approved
		if !approved {
			tr.ApprovedAt = nil
		}
	}
}

// TestService 创建测试服务，默认 5000 / 30 天，在售
func TestService(t *testing.T, db *gorm.DB, traderID int64, opts ...func(*model.Service)) *model.Service {
	t.Helper()

	service := &model.Service{
		TraderID:     traderID,
		Name:         fmt.Sprintf("Service %d", nextSeq()),
		Description:  "test service",
		Price:        5000,
		DurationDays: 30,
		IsActive:     true,
	}

	for _, opt := range opts {
		opt(service)
	}

	if err := db.Create(service).Error; err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}

	return service
}

// WithChannel 绑定频道
func WithChannel(channelID string) func(*model.Service) {
	return func(s *model.Service) {
		s.ChannelID = &channelID
	}
}

// WithInactive 设置为停售
func WithInactive() func(*model.Service) {
	return func(s *model.Service) {
		s.IsActive = false
	}
}

// WithPrice 设置价格和时长
func WithPrice(price int64, days int) func(*model.Service) {
	return func(s *model.Service) {
		s.Price = price
		s.DurationDays = days
	}
}

// WithTiers 设置价格档位
func WithTiers(raw string) func(*model.Service) {
	return func(s *model.Service) {
		s.PricingTiers = []byte(raw)
	}
}

// TestPayment 创建测试支付记录，默认 CREATED
func TestPayment(t *testing.T, db *gorm.DB, userID, serviceID int64, opts ...func(*model.Payment)) *model.Payment {
	t.Helper()

	payment := &model.Payment{
		OrderID:      fmt.Sprintf("order_test_%d", nextSeq()),
		UserID:       userID,
		ServiceID:    serviceID,
		Amount:       decimal.NewFromInt(5000),
		Currency:     "INR",
		DurationDays: 30,
		Status:       model.PaymentCreated,
	}

	for _, opt := range opts {
		opt(payment)
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}

	return payment
}

// WithPaymentStatus 设置支付状态
func WithPaymentStatus(status string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Status = status
	}
}

// WithOrderID 设置网关订单号
func WithOrderID(orderID string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.OrderID = orderID
	}
}

// TestSubscription 创建测试订阅，默认 ACTIVE 且 30 天后到期
func TestSubscription(t *testing.T, db *gorm.DB, userID, serviceID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now()
	sub := &model.Subscription{
		UserID:    userID,
		ServiceID: serviceID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, 30),
		Status:    model.SubscriptionActive,
	}

	for _, opt := range opts {
		opt(sub)
	}
	if sub.Status == model.SubscriptionActive && sub.ActiveKey == nil {
		sub.ActiveKey = model.ActiveSlot(userID, serviceID)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithEndDate 设置到期时间，开始时间相应前移
func WithEndDate(end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.EndDate = end
		if s.StartDate.After(end) {
			s.StartDate = end.AddDate(0, 0, -30)
		}
	}
}

// WithSubscriptionStatus 设置订阅状态
func WithSubscriptionStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithMemberID 设置频道成员 ID
func WithMemberID(memberID string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ChannelMemberID = &memberID
	}
}
