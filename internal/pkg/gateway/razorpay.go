package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// razorpayAPI SDK 中用到的调用，测试时替换
type razorpayAPI interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	FetchOrder(orderID string) (map[string]interface{}, error)
	FetchPayment(paymentID string) (map[string]interface{}, error)
	RefundPayment(paymentID string, amount int) (map[string]interface{}, error)
}

type razorpaySDK struct {
	client *razorpay.Client
}

func (s razorpaySDK) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Order.Create(data, nil)
}

func (s razorpaySDK) FetchOrder(orderID string) (map[string]interface{}, error) {
	return s.client.Order.Fetch(orderID, nil, nil)
}

func (s razorpaySDK) FetchPayment(paymentID string) (map[string]interface{}, error) {
	return s.client.Payment.Fetch(paymentID, nil, nil)
}

func (s razorpaySDK) RefundPayment(paymentID string, amount int) (map[string]interface{}, error) {
	return s.client.Payment.Refund(paymentID, amount, nil, nil)
}

// Razorpay 基于官方 SDK 的 Razorpay 网关
type Razorpay struct {
	keyID     string
	keySecret string
	api       razorpayAPI
	timeout   time.Duration
}

// NewRazorpay 创建 Razorpay 网关，timeout 限制单次调用
func NewRazorpay(keyID, keySecret string, timeout time.Duration) *Razorpay {
	return newRazorpay(keyID, keySecret, razorpaySDK{client: razorpay.NewClient(keyID, keySecret)}, timeout)
}

func newRazorpay(keyID, keySecret string, api razorpayAPI, timeout time.Duration) *Razorpay {
	return &Razorpay{
		keyID:     keyID,
		keySecret: keySecret,
		api:       api,
		timeout:   timeout,
	}
}

func (r *Razorpay) Name() string {
	return "razorpay"
}

func (r *Razorpay) ClientKey() string {
	return r.keyID
}

// CreateOrder 创建订单
func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.api.CreateOrder(data)
	})
	if err != nil {
		return nil, err
	}
	return toOrder(body), nil
}

// VerifySignature 校验 HMAC-SHA256(order_id|payment_id)
func (r *Razorpay) VerifySignature(_ context.Context, orderID, chargeID, signature string) (bool, error) {
	if orderID == "" || chargeID == "" || signature == "" {
		return false, nil
	}
	attrs := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": chargeID,
	}
	return utils.VerifyPaymentSignature(attrs, signature, r.keySecret), nil
}

// GetCharge 获取支付详情
func (r *Razorpay) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.api.FetchPayment(chargeID)
	})
	if err != nil {
		return nil, err
	}
	return &Charge{
		ID:          stringField(body, "id"),
		OrderID:     stringField(body, "order_id"),
		AmountMinor: intField(body, "amount"),
		Status:      stringField(body, "status"),
		Method:      stringField(body, "method"),
		Contact:     stringField(body, "contact"),
		Email:       stringField(body, "email"),
	}, nil
}

// FetchOrder 获取订单及备注
func (r *Razorpay) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.api.FetchOrder(orderID)
	})
	if err != nil {
		return nil, err
	}
	return toOrder(body), nil
}

// Refund 发起退款，amountMinor 为 0 时按支付金额全额退款
func (r *Razorpay) Refund(ctx context.Context, chargeID string, amountMinor int64) (*Refund, error) {
	if amountMinor <= 0 {
		charge, err := r.GetCharge(ctx, chargeID)
		if err != nil {
			return nil, err
		}
		amountMinor = charge.AmountMinor
	}

	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.api.RefundPayment(chargeID, int(amountMinor))
	})
	if err != nil {
		return nil, err
	}
	return &Refund{
		ID:          stringField(body, "id"),
		ChargeID:    stringField(body, "payment_id"),
		AmountMinor: intField(body, "amount"),
		Status:      stringField(body, "status"),
	}, nil
}

type razorpayResult struct {
	body map[string]interface{}
	err  error
}

// do 在超时内执行 SDK 调用，SDK 本身不接收 context
func (r *Razorpay) do(ctx context.Context, call func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan razorpayResult, 1)
	go func() {
		body, err := call()
		done <- razorpayResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, mapRazorpayError(res.err)
		}
		return res.body, nil
	}
}

// mapRazorpayError 不存在的资源映射为 ErrNotFound，其余视为网关不可用
func mapRazorpayError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "does not exist") {
		return ErrNotFound
	}
	return fmt.Errorf("%w: razorpay: %v", ErrUnavailable, err)
}

func toOrder(body map[string]interface{}) *Order {
	return &Order{
		ID:          stringField(body, "id"),
		AmountMinor: intField(body, "amount"),
		Currency:    stringField(body, "currency"),
		Receipt:     stringField(body, "receipt"),
		Status:      stringField(body, "status"),
		Notes:       decodeNotes(body["notes"]),
	}
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

// intField JSON 数字解码后是 float64
func intField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// decodeNotes Razorpay 在备注为空时返回 []，值可能是字符串或数字
func decodeNotes(raw interface{}) map[string]string {
	notes := map[string]string{}
	values, ok := raw.(map[string]interface{})
	if !ok {
		return notes
	}
	for k, v := range values {
		switch val := v.(type) {
		case string:
			notes[k] = val
		case float64:
			notes[k] = fmt.Sprintf("%.0f", val)
		case nil:
		default:
			notes[k] = fmt.Sprint(val)
		}
	}
	return notes
}

// SignRazorpay 计算 Razorpay 支付签名，与 SDK 的校验算法一致
func SignRazorpay(secret, orderID, chargeID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + chargeID))
	return hex.EncodeToString(mac.Sum(nil))
}
