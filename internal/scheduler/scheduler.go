package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/outreach"
)

// ErrBatchInProgress is returned by RunOnce while another batch is running
var ErrBatchInProgress = errors.New("a dispatch batch is already running")

// Dispatcher runs one batch of due emails
type Dispatcher interface {
	ProcessScheduledEmails(ctx context.Context, batchSize int) (outreach.Result, error)
}

// ReplyChecker runs one reply detection pass
type ReplyChecker interface {
	CheckReplies(ctx context.Context) ([]outreach.DetectedReply, error)
}

// Window reports whether automated sends are currently allowed
type Window interface {
	IsWithinWindow(now time.Time) bool
}

// Limiter reports whether today's cap is used up
type Limiter interface {
	LimitReached(ctx context.Context) (bool, error)
}

// Status is a snapshot of the scheduler
type Status struct {
	Running    bool            `json:"running"`
	Busy       bool            `json:"busy"`
	NextRun    time.Time       `json:"next_run"`
	LastRun    time.Time       `json:"last_run"`
	LastResult outreach.Result `json:"last_result"`
	LastError  string          `json:"last_error,omitempty"`
}

// Scheduler runs dispatch batches every interval inside the send window and,
// optionally, reply checks on their own interval
type Scheduler struct {
	cron       *cron.Cron
	sendEntry  cron.EntryID
	replyEntry cron.EntryID
	config     *config.SchedulerConfig
	batchSize  int
	dispatcher Dispatcher
	replies    ReplyChecker
	window     Window
	limiter    Limiter
	now        func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex

	// batch guards ProcessScheduledEmails across ticks and manual runs
	batch      sync.Mutex
	lastRun    time.Time
	lastResult outreach.Result
	lastErr    error
}

// NewScheduler creates a new scheduler. replies may be nil.
func NewScheduler(cfg *config.SchedulerConfig, batchSize int, dispatcher Dispatcher, replies ReplyChecker, window Window, limiter Limiter) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:     cfg,
		batchSize:  batchSize,
		dispatcher: dispatcher,
		replies:    replies,
		window:     window,
		limiter:    limiter,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	// a stopped scheduler gets a fresh context and cron
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", s.config.IntervalMinutes), s.tick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.sendEntry = entryID

	if s.replies != nil && s.config.ReplyCheckMinutes > 0 {
		entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", s.config.ReplyCheckMinutes), s.checkReplies)
		if err != nil {
			return fmt.Errorf("failed to add reply check job: %w", err)
		}
		s.replyEntry = entryID
	}

	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler and interrupts a running batch
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	c := s.cron
	s.isRunning = false
	s.mu.Unlock()

	// running jobs record their result under mu, so wait without holding it
	ctx := c.Stop()
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// tick is the periodic job. Outside the window, or with the cap used up, it
// does nothing.
func (s *Scheduler) tick() {
	if !s.IsRunning() {
		return
	}
	if !s.window.IsWithinWindow(s.now()) {
		logrus.Debug("Outside send window, skipping tick")
		return
	}

	ctx := s.runContext()
	if reached, err := s.limiter.LimitReached(ctx); err != nil {
		logrus.Errorf("Failed to check daily limit: %v", err)
		return
	} else if reached {
		logrus.Info("Daily limit reached, skipping tick")
		return
	}

	if _, err := s.run(ctx); err != nil && !errors.Is(err, ErrBatchInProgress) {
		logrus.Errorf("Dispatch batch failed: %v", err)
	}
}

// RunOnce dispatches one batch immediately, ignoring the window
func (s *Scheduler) RunOnce(ctx context.Context) (outreach.Result, error) {
	logrus.Info("Running dispatch batch once")
	return s.run(ctx)
}

// Trigger starts a batch in the background under the scheduler context
func (s *Scheduler) Trigger() error {
	if !s.batch.TryLock() {
		return ErrBatchInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.batch.Unlock()
		if _, err := s.dispatch(s.runContext()); err != nil {
			logrus.Errorf("Dispatch batch failed: %v", err)
		}
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) (outreach.Result, error) {
	if !s.batch.TryLock() {
		return outreach.Result{}, ErrBatchInProgress
	}
	defer s.batch.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	return s.dispatch(ctx)
}

func (s *Scheduler) dispatch(ctx context.Context) (outreach.Result, error) {
	started := s.now()
	res, err := s.dispatcher.ProcessScheduledEmails(ctx, s.batchSize)
	logrus.Infof("Dispatch batch completed in %v: %d sent, %d failed", s.now().Sub(started), res.Sent, res.Failed)

	s.mu.Lock()
	s.lastRun = started
	s.lastResult = res
	s.lastErr = err
	s.mu.Unlock()

	return res, err
}

func (s *Scheduler) checkReplies() {
	s.wg.Add(1)
	defer s.wg.Done()

	found, err := s.replies.CheckReplies(s.runContext())
	if err != nil {
		logrus.Errorf("Reply check failed: %v", err)
		return
	}
	if len(found) > 0 {
		logrus.Infof("Reply check found %d replies", len(found))
	}
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.sendEntry).Next
}

// GetLastRun returns the start time of the last batch
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Status returns a snapshot for the API
func (s *Scheduler) Status() Status {
	busy := !s.batch.TryLock()
	if !busy {
		s.batch.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Running:    s.isRunning,
		Busy:       busy,
		LastRun:    s.lastRun,
		LastResult: s.lastResult,
	}
	if s.isRunning {
		st.NextRun = s.cron.Entry(s.sendEntry).Next
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Wait waits for running jobs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
