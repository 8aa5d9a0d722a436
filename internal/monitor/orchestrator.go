// Package monitor runs saved searches on a schedule, applies to new
// matches within the daily quota and notifies the user.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/cwygoda/jobwatch/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrTickInProgress is returned when a tick is requested while another runs.
var ErrTickInProgress = errors.New("a check is already running")

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("monitor closed")

// alertLimit caps the jobs included in one new-jobs alert.
const alertLimit = 5

// Options tunes scheduling and pacing.
type Options struct {
	CheckInterval      time.Duration
	QuotaCheckInterval time.Duration
	ItemDelay          time.Duration
	ApplyDelayMin      time.Duration
	ApplyDelayMax      time.Duration
}

// DefaultOptions mirrors the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		CheckInterval:      2 * time.Minute,
		QuotaCheckInterval: time.Minute,
		ItemDelay:          5 * time.Second,
		ApplyDelayMin:      3 * time.Second,
		ApplyDelayMax:      8 * time.Second,
	}
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	WatchList  *domain.WatchListStore
	Seen       *domain.SeenJobRegistry
	Ledger     *domain.ApplicationLedger
	Quota      *domain.QuotaTracker
	Connectors domain.ConnectorProvider
	Notifier   domain.Notifier
}

// Status is a point-in-time view of the monitor.
type Status struct {
	IsMonitoring          bool
	WatchListCount        int
	SeenJobsCount         int
	DailyApplicationCount int
	DailyLimit            int
	CheckIntervalMinutes  int
	TickInProgress        bool
	LastTickAt            time.Time
}

// Summary describes one completed tick.
type Summary struct {
	QuotaExhausted bool
	Items          int
	NewJobs        int
	Applied        int
	Cancelled      bool
}

// Orchestrator owns the schedule and the tick algorithm.
type Orchestrator struct {
	deps Deps
	opts Options
	log  *zap.SugaredLogger
	now  func() time.Time

	// life bounds every tick, scheduled or triggered. Close cancels it.
	life     context.Context
	shutdown context.CancelFunc

	mu       sync.Mutex
	running  bool
	interval time.Duration
	sched    *cron.Cron
	runCtx   context.Context
	cancel   context.CancelFunc
	lastTick time.Time

	// tickMu is held for the whole of a tick.
	tickMu sync.Mutex
	busy   atomic.Bool
}

// New creates a stopped Orchestrator.
func New(deps Deps, opts Options, log *zap.SugaredLogger) *Orchestrator {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultOptions().CheckInterval
	}
	if opts.QuotaCheckInterval <= 0 {
		opts.QuotaCheckInterval = DefaultOptions().QuotaCheckInterval
	}
	life, shutdown := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		log:      log,
		now:      time.Now,
		life:     life,
		shutdown: shutdown,
		interval: opts.CheckInterval,
	}
}

// Start begins monitoring: one tick right away, then one per interval,
// plus the periodic quota reset check. It is a no-op when running.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startLocked()
}

func (o *Orchestrator) startLocked() error {
	if o.running {
		return nil
	}
	if o.life.Err() != nil {
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(o.life)
	logger := cronLogger{o.log}
	sched := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	if _, err := sched.AddFunc(every(o.interval), func() { o.runTick(ctx) }); err != nil {
		cancel()
		return errors.Wrap(err, "schedule check")
	}
	if _, err := sched.AddFunc(every(o.opts.QuotaCheckInterval), o.checkQuotaReset); err != nil {
		cancel()
		return errors.Wrap(err, "schedule quota reset")
	}
	sched.Start()

	o.sched, o.runCtx, o.cancel, o.running = sched, ctx, cancel, true
	metrics.Monitoring.Set(1)
	o.log.Infow("monitoring started", "interval", o.interval, "watchItems", o.deps.WatchList.Len())

	go o.runTick(ctx)
	return nil
}

// Stop halts both periodic actions and cancels the in-flight tick, which
// returns at its next checkpoint. It is a no-op when stopped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *Orchestrator) stopLocked() {
	if !o.running {
		return
	}
	o.cancel()
	o.sched.Stop()
	o.sched, o.runCtx, o.cancel, o.running = nil, nil, nil, false
	metrics.Monitoring.Set(0)
	o.log.Infow("monitoring stopped")
}

// Close stops monitoring for good and cancels any tick, including one
// started by TriggerTick while stopped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	o.shutdown()
}

// Wait blocks until no tick is running.
func (o *Orchestrator) Wait() {
	o.tickMu.Lock()
	o.tickMu.Unlock()
}

// SetInterval changes the check interval. A running monitor is restarted
// with the new interval, which also triggers an immediate tick.
func (o *Orchestrator) SetInterval(minutes int) error {
	if minutes < 1 {
		return errors.Wrapf(domain.ErrInvalidInterval, "got %d", minutes)
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.interval = time.Duration(minutes) * time.Minute
	o.log.Infow("check interval changed", "interval", o.interval)
	if !o.running {
		return nil
	}
	o.stopLocked()
	return o.startLocked()
}

// Status reports the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	running, interval, last := o.running, o.interval, o.lastTick
	o.mu.Unlock()

	return Status{
		IsMonitoring:          running,
		WatchListCount:        o.deps.WatchList.Len(),
		SeenJobsCount:         o.deps.Seen.Count(),
		DailyApplicationCount: o.deps.Quota.Count(),
		DailyLimit:            o.deps.Quota.Limit(),
		CheckIntervalMinutes:  int(interval / time.Minute),
		TickInProgress:        o.busy.Load(),
		LastTickAt:            last,
	}
}

// TriggerTick runs a tick in the background and returns false when one is
// already running. While monitoring is on, Stop cancels a triggered tick
// the same way it cancels a scheduled one; Close always cancels it.
func (o *Orchestrator) TriggerTick() bool {
	if o.busy.Load() {
		return false
	}
	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = o.life
	}
	go o.runTick(ctx)
	return true
}

func (o *Orchestrator) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := o.now()
	sum, err := o.Tick(ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		o.log.Infow("previous check still running, skipping")
		metrics.Ticks.WithLabelValues("skipped").Inc()
		return
	case sum.QuotaExhausted:
		metrics.Ticks.WithLabelValues("quota_exhausted").Inc()
	case sum.Cancelled:
		metrics.Ticks.WithLabelValues("cancelled").Inc()
	default:
		metrics.Ticks.WithLabelValues("completed").Inc()
		metrics.TickDuration.Observe(o.now().Sub(start).Seconds())
	}

	o.mu.Lock()
	o.lastTick = start
	o.mu.Unlock()
}

func (o *Orchestrator) checkQuotaReset() {
	if o.deps.Quota.ResetIfNewDay(o.now()) {
		o.log.Infow("daily application counter reset", "limit", o.deps.Quota.Limit())
	}
	metrics.QuotaRemaining.Set(float64(o.deps.Quota.Remaining()))
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// cronLogger routes scheduler logs to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
