package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Fake 内存网关，签名规则与 Razorpay 相同，用于测试和本地联调
type Fake struct {
	mu      sync.Mutex
	secret  string
	seq     int
	orders  map[string]*Order
	charges map[string]*Charge

	// 以下字段用于注入故障
	CreateErr error
	FetchErr  error
	VerifyErr error
	ChargeErr error
}

func NewFake(secret string) *Fake {
	return &Fake{
		secret:  secret,
		orders:  make(map[string]*Order),
		charges: make(map[string]*Charge),
	}
}

func (f *Fake) Name() string {
	return "fake"
}

func (f *Fake) ClientKey() string {
	return "fake_key"
}

func (f *Fake) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.seq++
	copied := make(map[string]string, len(notes))
	for k, v := range notes {
		copied[k] = v
	}
	order := &Order{
		ID:          fmt.Sprintf("order_fake_%d", f.seq),
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Status:      "created",
		Notes:       copied,
	}
	f.orders[order.ID] = order
	return order, nil
}

// Pay 模拟用户完成支付，返回扣款号和签名
func (f *Fake) Pay(orderID, method string) (chargeID, signature string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	chargeID = fmt.Sprintf("pay_fake_%d", f.seq)
	charge := &Charge{ID: chargeID, OrderID: orderID, Status: "captured", Method: method}
	if order, ok := f.orders[orderID]; ok {
		charge.AmountMinor = order.AmountMinor
		order.Status = "paid"
	}
	f.charges[chargeID] = charge
	return chargeID, SignRazorpay(f.secret, orderID, chargeID)
}

// Sign 计算签名
func (f *Fake) Sign(orderID, chargeID string) string {
	return SignRazorpay(f.secret, orderID, chargeID)
}

// DropNotes 清空订单备注，模拟网关元数据丢失
func (f *Fake) DropNotes(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if order, ok := f.orders[orderID]; ok {
		order.Notes = map[string]string{}
	}
}

// Order 获取订单
func (f *Fake) Order(orderID string) (*Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	return order, ok
}

func (f *Fake) VerifySignature(_ context.Context, orderID, chargeID, signature string) (bool, error) {
	if f.VerifyErr != nil {
		return false, f.VerifyErr
	}
	if orderID == "" || chargeID == "" || signature == "" {
		return false, nil
	}
	return f.Sign(orderID, chargeID) == signature, nil
}

func (f *Fake) GetCharge(_ context.Context, chargeID string) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ChargeErr != nil {
		return nil, f.ChargeErr
	}
	charge, ok := f.charges[chargeID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *charge
	return &copied, nil
}

func (f *Fake) FetchOrder(_ context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *Fake) Refund(_ context.Context, chargeID string, amountMinor int64) (*Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	charge, ok := f.charges[chargeID]
	if !ok {
		return nil, ErrNotFound
	}
	if amountMinor == 0 {
		amountMinor = charge.AmountMinor
	}
	charge.Status = "refunded"
	f.seq++
	return &Refund{
		ID:          fmt.Sprintf("rfnd_fake_%d", f.seq),
		ChargeID:    chargeID,
		AmountMinor: amountMinor,
		Status:      "processed",
	}, nil
}
