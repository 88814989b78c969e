package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 通知任务类型
const (
	KindInvite = "invite" // 给新订阅者发送频道邀请
	KindAlert  = "alert"  // 把交易提醒转发到频道
)

type Queue struct {
	client    *redis.Client
	queueName string
}

// NotificationJob 一次外部频道通知
type NotificationJob struct {
	Kind           string    `json:"kind"`
	ServiceID      int64     `json:"service_id"`
	UserID         int64     `json:"user_id,omitempty"`
	SubscriptionID int64     `json:"subscription_id,omitempty"`
	AlertID        int64     `json:"alert_id,omitempty"`
	ChannelID      string    `json:"channel_id"`
	MemberID       string    `json:"member_id,omitempty"`
	Text           string    `json:"text,omitempty"`
	Attempts       int       `json:"attempts"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将任务加入队列
func (q *Queue) Push(ctx context.Context, job *NotificationJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取任务（阻塞），超时返回 nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*NotificationJob, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var job NotificationJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
