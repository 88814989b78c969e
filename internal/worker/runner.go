package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/trademint_server/internal/pkg/queue"
)

const (
	popTimeout         = 5 * time.Second
	defaultMaxAttempts = 3
)

// Runner 从队列消费通知任务，失败的任务重新入队直到达到最大次数
type Runner struct {
	queue       *queue.Queue
	processor   *Processor
	workers     int
	maxAttempts int
}

func NewRunner(q *queue.Queue, processor *Processor, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		queue:       q,
		processor:   processor,
		workers:     workers,
		maxAttempts: defaultMaxAttempts,
	}
}

// Run 阻塞运行，ctx 取消后等待所有 worker 退出
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		job, err := r.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker %d: failed to pop job: %v", workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue // 超时，继续等待
		}

		r.Handle(ctx, workerID, job)
	}
}

// Handle 执行单个任务，失败时按次数重新入队
func (r *Runner) Handle(ctx context.Context, workerID int, job *queue.NotificationJob) {
	err := r.processor.Process(ctx, job)
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= r.maxAttempts {
		log.Printf("Worker %d: dropping %s job after %d attempts: service=%d channel=%s err=%v",
			workerID, job.Kind, job.Attempts, job.ServiceID, job.ChannelID, err)
		return
	}

	log.Printf("Worker %d: %s job failed, requeue attempt=%d: service=%d err=%v",
		workerID, job.Kind, job.Attempts, job.ServiceID, err)
	if perr := r.queue.Push(context.Background(), job); perr != nil {
		log.Printf("Worker %d: failed to requeue job: service=%d err=%v", workerID, job.ServiceID, perr)
	}
}
