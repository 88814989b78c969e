package service

import (
	"context"

	"github.com/qs3c/trademint_server/internal/pkg/pubsub"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
)

// Dispatcher 投递频道通知。实现可以同步调用频道，也可以写入队列由 worker 处理，
// 错误只用于记录日志，不影响主流程
type Dispatcher interface {
	Dispatch(ctx context.Context, job *queue.NotificationJob) error
}

// AlertBroadcaster 实时推送新提醒
type AlertBroadcaster interface {
	PublishAlert(ctx context.Context, event *pubsub.AlertEvent) error
}
