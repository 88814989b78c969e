package service

import (
	"context"
	"sync"

	"github.com/qs3c/trademint_server/config"
	"github.com/qs3c/trademint_server/internal/pkg/pubsub"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []*queue.NotificationJob
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job *queue.NotificationJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return d.err
}

func (d *recordingDispatcher) Jobs(kind string) []*queue.NotificationJob {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*queue.NotificationJob
	for _, j := range d.jobs {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []*pubsub.AlertEvent
}

func (b *recordingBroadcaster) PublishAlert(_ context.Context, event *pubsub.AlertEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func testPaymentConfig() *config.PaymentConfig {
	return &config.PaymentConfig{
		Provider:         "fake",
		Currency:         "INR",
		MinorUnitFactor:  100,
		TimeoutSeconds:   5,
		AllowedDurations: []int{30, 90, 180, 365},
	}
}
