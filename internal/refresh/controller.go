// Package refresh keeps the dashboard data current. A Controller owns the
// current snapshot, enforces that at most one refresh cycle runs at a time,
// and schedules periodic refreshes that pause while no viewer is looking.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"customer-request-dashboard/internal/orders"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 30 * time.Second

const recordTimeout = 5 * time.Second

// UnexpectedErrorMessage is surfaced when a cycle panics.
const UnexpectedErrorMessage = "An unexpected error occurred"

var errUnexpected = errors.New("unexpected error during refresh")

// Source supplies raw request rows for one refresh cycle.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]orders.RawRow, error)
}

// Snapshot is the published result of one successful cycle. Callers must
// treat it as read-only.
type Snapshot struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	RefreshedAt time.Time       `json:"refreshed_at"`
	Records     []orders.Record `json:"records"`
	Stats       orders.Stats    `json:"stats"`
	Rows        []orders.Row    `json:"rows"`
}

// Run describes a finished cycle, successful or not.
type Run struct {
	ID         string
	Reason     Reason
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	OK         bool
	Error      string
	Stats      orders.Stats
}

// RunRecorder is notified after every cycle.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// RecorderFunc adapts a function to RunRecorder.
type RecorderFunc func(ctx context.Context, run Run) error

func (f RecorderFunc) RecordRun(ctx context.Context, run Run) error {
	return f(ctx, run)
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the timer period.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTableLimit sets how many rows the snapshot table holds, at most
// orders.TableLimit.
func WithTableLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.tableLimit = min(n, orders.TableLimit)
		}
	}
}

// TableLimit reports the effective table size.
func (c *Controller) TableLimit() int {
	return c.tableLimit
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRand sets the random source behind the mock processing-time statistic.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithRecorder adds a recorder notified after every cycle.
func WithRecorder(r RunRecorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller runs refresh cycles against a Source.
type Controller struct {
	source     Source
	interval   time.Duration
	tableLimit int
	now        func() time.Time
	rng        *rand.Rand
	recorders  []RunRecorder
	logger     *slog.Logger

	mu         sync.Mutex
	fetching   bool
	last       Event
	snapshot   *Snapshot
	subs       map[int]chan Event
	nextSub    int
	visible    bool
	viewers    map[int]bool
	nextViewer int
	restart    bool
	scheduler  SchedulerState

	wake     chan struct{}
	inflight sync.WaitGroup
}

// New creates an idle controller. The viewer is assumed visible.
func New(source Source, opts ...Option) *Controller {
	c := &Controller{
		source:     source,
		interval:   DefaultInterval,
		tableLimit: orders.TableLimit,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     slog.Default(),
		subs:       make(map[int]chan Event),
		visible:    true,
		viewers:    make(map[int]bool),
		scheduler:  SchedulerStopped,
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.last = Event{State: StateIdle, At: c.now()}
	return c
}

// SourceName reports the configured source.
func (c *Controller) SourceName() string {
	return c.source.Name()
}

// Interval reports the timer period.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Snapshot returns the latest successful snapshot, or nil before the first
// successful cycle. A failed cycle keeps the previous snapshot.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// State returns the most recent state event.
func (c *Controller) State() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Fetching reports whether a cycle is in progress.
func (c *Controller) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetching
}

// Refresh runs one cycle synchronously. It returns false without doing
// anything when another cycle is already in progress.
func (c *Controller) Refresh(ctx context.Context, reason Reason) (bool, error) {
	runID, ok := c.begin(reason)
	if !ok {
		return false, nil
	}
	return true, c.cycle(ctx, runID, reason)
}

// Trigger starts a cycle in the background. Triggers that arrive while a
// cycle is in progress are dropped, not queued.
func (c *Controller) Trigger(reason Reason) bool {
	runID, ok := c.begin(reason)
	if !ok {
		c.logger.Debug("refresh trigger dropped", "reason", reason)
		return false
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_ = c.cycle(context.Background(), runID, reason)
	}()
	return true
}

// Wait blocks until background cycles started by Trigger have finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) begin(reason Reason) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetching {
		return "", false
	}
	c.fetching = true
	runID := uuid.NewString()
	c.emitLocked(Event{State: StateFetching, Reason: reason, RunID: runID})
	return runID, true
}

func (c *Controller) cycle(ctx context.Context, runID string, reason Reason) error {
	started := c.now()
	snap, err := c.load(ctx, runID, started)
	finished := c.now()

	run := Run{
		ID:         runID,
		Reason:     reason,
		Source:     c.source.Name(),
		StartedAt:  started,
		FinishedAt: finished,
		OK:         err == nil,
	}

	c.mu.Lock()
	c.fetching = false
	if err == nil {
		c.snapshot = snap
		run.Stats = snap.Stats
	} else {
		run.Error = errorMessage(err)
		c.emitLocked(Event{State: StateError, Reason: reason, RunID: runID, Message: run.Error})
	}
	c.emitLocked(Event{State: StateIdle, Reason: reason, RunID: runID})
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("refresh failed", "run_id", runID, "reason", reason, "source", run.Source, "error", err)
	} else {
		c.logger.Info("refresh complete", "run_id", runID, "reason", reason, "source", run.Source,
			"records", snap.Stats.Total, "duration", finished.Sub(started))
	}

	c.record(run)
	return err
}

func (c *Controller) load(ctx context.Context, runID string, now time.Time) (snap *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh panicked", "run_id", runID, "panic", r)
			snap, err = nil, errUnexpected
		}
	}()

	rows, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	records := orders.NormalizeAll(rows)
	return &Snapshot{
		RunID:       runID,
		Source:      c.source.Name(),
		RefreshedAt: now,
		Records:     records,
		Stats:       orders.Aggregate(records, now, c.rng),
		Rows:        orders.RenderTable(records, c.tableLimit),
	}, nil
}

func (c *Controller) record(run Run) {
	if len(c.recorders) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	for _, r := range c.recorders {
		if err := r.RecordRun(ctx, run); err != nil {
			c.logger.Warn("record refresh run", "run_id", run.ID, "error", err)
		}
	}
}

func errorMessage(err error) string {
	if errors.Is(err, errUnexpected) {
		return UnexpectedErrorMessage
	}
	return "Failed to load data: " + err.Error()
}
