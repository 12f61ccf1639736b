package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/outreach"
)

type fakeDispatcher struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (d *fakeDispatcher) ProcessScheduledEmails(ctx context.Context, batchSize int) (outreach.Result, error) {
	d.calls.Add(1)
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return outreach.Result{}, ctx.Err()
		}
	}
	return outreach.Result{Sent: batchSize}, nil
}

type fixedWindow bool

func (w fixedWindow) IsWithinWindow(time.Time) bool { return bool(w) }

type fixedLimiter bool

func (l fixedLimiter) LimitReached(context.Context) (bool, error) { return bool(l), nil }

func TestSchedulerRestart(t *testing.T) {
	cfg := &config.SchedulerConfig{IntervalMinutes: 60}
	sched := NewScheduler(cfg, 10, &fakeDispatcher{}, nil, fixedWindow(true), fixedLimiter(false))

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())
	assert.Error(t, sched.Start(), "double start")

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())
	assert.True(t, sched.GetNextRun().IsZero())

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())
	assert.NoError(t, sched.runContext().Err(), "context should be active after restart")
	assert.Len(t, sched.cron.Entries(), 1)
	assert.False(t, sched.GetNextRun().IsZero())
	require.NoError(t, sched.Stop())
}

func TestSchedulerRegistersReplyCheck(t *testing.T) {
	cfg := &config.SchedulerConfig{IntervalMinutes: 15, ReplyCheckMinutes: 60}
	sched := NewScheduler(cfg, 10, &fakeDispatcher{}, noReplies{}, fixedWindow(true), fixedLimiter(false))

	require.NoError(t, sched.Start())
	defer sched.Stop()
	assert.Len(t, sched.cron.Entries(), 2)
}

type noReplies struct{}

func (noReplies) CheckReplies(context.Context) ([]outreach.DetectedReply, error) { return nil, nil }

func TestTickRespectsWindowAndLimit(t *testing.T) {
	cfg := &config.SchedulerConfig{IntervalMinutes: 60}

	outside := &fakeDispatcher{}
	sched := NewScheduler(cfg, 10, outside, nil, fixedWindow(false), fixedLimiter(false))
	require.NoError(t, sched.Start())
	sched.tick()
	require.NoError(t, sched.Stop())
	assert.Equal(t, int32(0), outside.calls.Load())

	capped := &fakeDispatcher{}
	sched = NewScheduler(cfg, 10, capped, nil, fixedWindow(true), fixedLimiter(true))
	require.NoError(t, sched.Start())
	sched.tick()
	require.NoError(t, sched.Stop())
	assert.Equal(t, int32(0), capped.calls.Load())

	open := &fakeDispatcher{}
	sched = NewScheduler(cfg, 10, open, nil, fixedWindow(true), fixedLimiter(false))
	require.NoError(t, sched.Start())
	sched.tick()
	require.NoError(t, sched.Stop())
	assert.Equal(t, int32(1), open.calls.Load())
	assert.Equal(t, 10, sched.Status().LastResult.Sent)
}

func TestTickDoesNothingWhenStopped(t *testing.T) {
	d := &fakeDispatcher{}
	sched := NewScheduler(&config.SchedulerConfig{IntervalMinutes: 60}, 10, d, nil, fixedWindow(true), fixedLimiter(false))
	sched.tick()
	assert.Equal(t, int32(0), d.calls.Load())
}

func TestBatchesNeverOverlap(t *testing.T) {
	d := &fakeDispatcher{release: make(chan struct{}), started: make(chan struct{}, 1)}
	sched := NewScheduler(&config.SchedulerConfig{IntervalMinutes: 60}, 5, d, nil, fixedWindow(true), fixedLimiter(false))

	require.NoError(t, sched.Trigger())
	<-d.started

	_, err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrBatchInProgress)
	assert.ErrorIs(t, sched.Trigger(), ErrBatchInProgress)
	assert.True(t, sched.Status().Busy)

	close(d.release)
	sched.Wait()

	res, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Sent)
	assert.Equal(t, int32(2), d.calls.Load())
	assert.False(t, sched.Status().Busy)
	assert.False(t, sched.GetLastRun().IsZero())
}
