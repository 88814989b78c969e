package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Stripe 基于 PaymentIntent 的网关。订单号是 PaymentIntent ID，
// 扣款号是其最新 Charge ID，签名是前端拿到的 client_secret
type Stripe struct {
	api       *client.API
	publicKey string
}

// NewStripe 创建 Stripe 网关，baseURL 非空时指向自定义后端
func NewStripe(secretKey, publicKey, baseURL string) *Stripe {
	var backends *stripe.Backends
	if baseURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(baseURL),
			MaxNetworkRetries: stripe.Int64(0),
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	return &Stripe{
		api:       client.New(secretKey, backends),
		publicKey: publicKey,
	}
}

func (s *Stripe) Name() string {
	return "stripe"
}

func (s *Stripe) ClientKey() string {
	return s.publicKey
}

// CreateOrder 创建 PaymentIntent，备注写入 metadata
func (s *Stripe) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(currency),
		Description: stripe.String(receipt),
	}
	params.Context = ctx
	params.AddMetadata("receipt", receipt)
	for k, v := range notes {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return intentToOrder(pi, receipt), nil
}

// VerifySignature PaymentIntent 已成功、client_secret 匹配且最新扣款就是 chargeID
func (s *Stripe) VerifySignature(ctx context.Context, orderID, chargeID, signature string) (bool, error) {
	if orderID == "" || chargeID == "" || signature == "" {
		return false, nil
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(orderID, params)
	if err != nil {
		err = mapStripeError(err)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if subtle.ConstantTimeCompare([]byte(pi.ClientSecret), []byte(signature)) != 1 {
		return false, nil
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return false, nil
	}
	return pi.LatestCharge != nil && pi.LatestCharge.ID == chargeID, nil
}

// GetCharge 获取扣款详情
func (s *Stripe) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx

	ch, err := s.api.Charges.Get(chargeID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	charge := &Charge{
		ID:          ch.ID,
		AmountMinor: ch.Amount,
		Status:      string(ch.Status),
	}
	if ch.PaymentIntent != nil {
		charge.OrderID = ch.PaymentIntent.ID
	}
	if ch.PaymentMethodDetails != nil {
		charge.Method = string(ch.PaymentMethodDetails.Type)
	}
	if ch.BillingDetails != nil {
		charge.Contact = ch.BillingDetails.Phone
		charge.Email = ch.BillingDetails.Email
	}
	return charge, nil
}

// FetchOrder 获取 PaymentIntent 及其 metadata
func (s *Stripe) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(orderID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return intentToOrder(pi, pi.Metadata["receipt"]), nil
}

// Refund 对扣款发起退款
func (s *Stripe) Refund(ctx context.Context, chargeID string, amountMinor int64) (*Refund, error) {
	params := &stripe.RefundParams{Charge: stripe.String(chargeID)}
	if amountMinor > 0 {
		params.Amount = stripe.Int64(amountMinor)
	}
	params.Context = ctx

	rf, err := s.api.Refunds.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Refund{
		ID:          rf.ID,
		ChargeID:    chargeID,
		AmountMinor: rf.Amount,
		Status:      string(rf.Status),
	}, nil
}

func intentToOrder(pi *stripe.PaymentIntent, receipt string) *Order {
	notes := make(map[string]string, len(pi.Metadata))
	for k, v := range pi.Metadata {
		notes[k] = v
	}
	return &Order{
		ID:          pi.ID,
		AmountMinor: pi.Amount,
		Currency:    string(pi.Currency),
		Receipt:     receipt,
		Status:      string(pi.Status),
		Notes:       notes,
	}
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusNotFound:
			return ErrNotFound
		case stripeErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %s", ErrUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("stripe: %s", stripeErr.Msg)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
