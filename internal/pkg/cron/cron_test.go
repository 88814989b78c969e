package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/trademint_server/internal/service"
)

type countingSweeper struct {
	calls int32
	err   error
}

func (c *countingSweeper) Sweep(context.Context) (*service.SweepReport, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return nil, c.err
	}
	return &service.SweepReport{CheckedAt: time.Now(), Expired: int(n)}, nil
}

func (c *countingSweeper) Calls() int {
	return int(atomic.LoadInt32(&c.calls))
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&countingSweeper{}, 0, false)
	assert.Equal(t, time.Hour, svc.interval)

	svc = NewService(&countingSweeper{}, 15, false)
	assert.Equal(t, 15*time.Minute, svc.interval)
}

func TestService_RunNow(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewService(sweeper, 60, false)

	report, err := svc.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 1, sweeper.Calls())
}

func TestService_RunNow_Error(t *testing.T) {
	svc := NewService(&countingSweeper{err: errors.New("db down")}, 60, false)

	_, err := svc.RunNow(context.Background())
	assert.Error(t, err)
}

func TestService_StartRunsOnStart(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewService(sweeper, 60, true)

	svc.Start()
	assert.Eventually(t, func() bool { return sweeper.Calls() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
}

func TestService_StartWithoutRunOnStart(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewService(sweeper, 60, false)

	svc.Start()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sweeper.Calls())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
}
