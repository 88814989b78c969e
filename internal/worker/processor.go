package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/trademint_server/internal/pkg/metrics"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
)

// Processor 执行频道通知任务
type Processor struct {
	sink        notify.Sink
	metrics     *metrics.Metrics
	sinkTimeout time.Duration
}

// NewProcessor 创建任务处理器
func NewProcessor(sink notify.Sink, m *metrics.Metrics, sinkTimeout time.Duration) *Processor {
	if sinkTimeout <= 0 {
		sinkTimeout = 5 * time.Second
	}
	return &Processor{
		sink:        sink,
		metrics:     m,
		sinkTimeout: sinkTimeout,
	}
}

// Process 处理一条通知任务
func (p *Processor) Process(ctx context.Context, job *queue.NotificationJob) error {
	if job.ChannelID == "" {
		return fmt.Errorf("job %s for service %d has no channel", job.Kind, job.ServiceID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
	defer cancel()

	var err error
	switch job.Kind {
	case queue.KindInvite:
		err = p.sendInvite(ctx, job)
	case queue.KindAlert:
		err = p.sink.SendMessage(ctx, job.ChannelID, job.Text)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}

	p.metrics.Notification(job.Kind, err == nil)
	if err != nil {
		return fmt.Errorf("%s job for service %d: %w", job.Kind, job.ServiceID, err)
	}
	return nil
}

// sendInvite 生成单次邀请链接并私信给订阅者
func (p *Processor) sendInvite(ctx context.Context, job *queue.NotificationJob) error {
	link, err := p.sink.CreateInviteLink(ctx, job.ChannelID, false)
	if err != nil {
		return fmt.Errorf("create invite link: %w", err)
	}

	if job.MemberID == "" {
		// 用户未绑定 Telegram，只能在订阅页面领取链接
		log.Printf("degraded: invite not delivered, no member id: subscription=%d user=%d channel=%s",
			job.SubscriptionID, job.UserID, job.ChannelID)
		return nil
	}

	text := link
	if job.Text != "" {
		text = job.Text + "\n" + link
	}
	if err := p.sink.SendMessage(ctx, job.MemberID, text); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}

	log.Printf("Invite sent: subscription=%d user=%d channel=%s", job.SubscriptionID, job.UserID, job.ChannelID)
	return nil
}
