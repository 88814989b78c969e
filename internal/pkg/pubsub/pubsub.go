package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultChannel = "trade_alerts"
	TypeTradeAlert = "trade_alert"
)

// AlertEvent 新提醒的实时推送事件，UserIDs 为本次快照中的接收者
type AlertEvent struct {
	Type        string  `json:"type"`
	AlertID     int64   `json:"alert_id"`
	ServiceID   int64   `json:"service_id"`
	UserIDs     []int64 `json:"user_ids"`
	Message     string  `json:"message"`
	StockSymbol string  `json:"stock_symbol,omitempty"`
	Action      string  `json:"action,omitempty"`
	TargetPrice string  `json:"target_price,omitempty"`
	StopLoss    string  `json:"stop_loss,omitempty"`
	SentAt      string  `json:"sent_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者，channel 为空时使用默认频道
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// PublishAlert 发布提醒事件
func (p *Publisher) PublishAlert(ctx context.Context, event *AlertEvent) error {
	event.Type = TypeTradeAlert

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅提醒事件，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*AlertEvent)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// 等待订阅确认，避免丢失紧随其后的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", s.channel, err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event AlertEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
