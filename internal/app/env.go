package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/db"
	"smart-outreach-go/internal/metrics"
	"smart-outreach-go/internal/outreach"
	"smart-outreach-go/internal/replies"
	"smart-outreach-go/internal/repository"
	"smart-outreach-go/internal/scheduler"
	"smart-outreach-go/internal/store"
	"smart-outreach-go/internal/templates"
	"smart-outreach-go/internal/transport"
	"smart-outreach-go/internal/window"
)

// Env holds every collaborator a command needs. Transport and reply clients
// are created on first use so commands that never send do not need
// credentials.
type Env struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    store.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Policy   *window.Policy
	Renderer *templates.Renderer
	Gate     *outreach.Gate
	Planner  *outreach.Planner
	Manager  *outreach.Manager
	Importer *outreach.Importer

	transport transport.Transport
	replies   replies.Client
	tracker   *outreach.ReplyTracker
}

// NewRenderer builds the template renderer with the sender profile applied
func NewRenderer(cfg *config.Config) (*templates.Renderer, error) {
	return templates.NewRenderer(cfg.TemplateDefaults())
}

// NewPolicy builds the send window from configuration
func NewPolicy(cfg *config.Config) (*window.Policy, error) {
	return window.New(window.Settings{
		Days:               cfg.Sending.SendDays,
		Start:              cfg.Sending.WindowStart,
		End:                cfg.Sending.WindowEnd,
		Timezone:           cfg.Sending.Timezone,
		MinIntervalMinutes: cfg.Sending.MinIntervalMinutes,
		MaxIntervalMinutes: cfg.Sending.MaxIntervalMinutes,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEnv connects to the database and wires the outreach engine
func NewEnv(cfg *config.Config) (*Env, error) {
	initial, err := templates.ParseKind(cfg.Sending.InitialTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid initial template: %w", err)
	}
	policy, err := NewPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid send window: %w", err)
	}
	renderer, err := NewRenderer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	dbConn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	st := repository.New(dbConn)
	gate := outreach.NewGate(st, cfg.Sending.DailyLimit, policy.Location())
	planner := outreach.NewPlanner(st, policy, renderer, cfg.Followup, m)
	manager := outreach.NewManager(st, planner, gate, initial, cfg.Followup.CancelOnReply)

	return &Env{
		Config:   cfg,
		DB:       dbConn,
		Store:    st,
		Registry: reg,
		Metrics:  m,
		Policy:   policy,
		Renderer: renderer,
		Gate:     gate,
		Planner:  planner,
		Manager:  manager,
		Importer: outreach.NewImporter(manager),
	}, nil
}

// Transport returns the configured delivery transport
func (e *Env) Transport(ctx context.Context) (transport.Transport, error) {
	if e.transport == nil {
		t, err := transport.New(ctx, e.Config)
		if err != nil {
			return nil, err
		}
		e.transport = t
	}
	return e.transport, nil
}

// Dispatcher returns a dispatcher over the configured transport
func (e *Env) Dispatcher(ctx context.Context) (*outreach.Dispatcher, error) {
	t, err := e.Transport(ctx)
	if err != nil {
		return nil, err
	}
	return outreach.NewDispatcher(e.Store, e.Gate, t, e.Policy, e.Config.Email.SendTimeout, e.Metrics), nil
}

// Replies returns the configured mailbox client
func (e *Env) Replies(ctx context.Context) (replies.Client, error) {
	if e.replies == nil {
		c, err := replies.New(ctx, e.Config)
		if err != nil {
			return nil, err
		}
		e.replies = c
	}
	return e.replies, nil
}

// ReplyTracker returns the tracker over the configured mailbox. It is shared
// so scheduled and manual checks serialise on one lock.
func (e *Env) ReplyTracker(ctx context.Context) (*outreach.ReplyTracker, error) {
	if e.tracker == nil {
		c, err := e.Replies(ctx)
		if err != nil {
			return nil, err
		}
		e.tracker = outreach.NewReplyTracker(e.Store, c, e.Manager, e.Metrics)
	}
	return e.tracker, nil
}

// Scheduler wires the periodic dispatcher. Reply checks are registered only
// when a mailbox is configured.
func (e *Env) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	d, err := e.Dispatcher(ctx)
	if err != nil {
		return nil, err
	}

	var checker scheduler.ReplyChecker
	if tracker, err := e.ReplyTracker(ctx); err != nil {
		logrus.Warnf("Reply detection disabled: %v", err)
	} else {
		checker = tracker
	}

	return scheduler.NewScheduler(&e.Config.Scheduler, e.Config.Sending.BatchSize, d, checker, e.Policy, e.Gate), nil
}

// Close releases the database connection
func (e *Env) Close() error {
	return db.Close(e.DB)
}
