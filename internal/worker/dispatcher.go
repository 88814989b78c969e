package worker

import (
	"context"

	"github.com/qs3c/trademint_server/internal/pkg/queue"
)

// DirectDispatcher 在请求内同步执行通知
type DirectDispatcher struct {
	processor *Processor
}

func NewDirectDispatcher(processor *Processor) *DirectDispatcher {
	return &DirectDispatcher{processor: processor}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, job *queue.NotificationJob) error {
	return d.processor.Process(ctx, job)
}

// QueueDispatcher 写入 Redis 队列，由 worker 进程异步执行
type QueueDispatcher struct {
	queue *queue.Queue
}

func NewQueueDispatcher(q *queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job *queue.NotificationJob) error {
	return d.queue.Push(ctx, job)
}
