package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/internal/domain/progression"
	"github.com/okian/ascend/pkg/clock"
	"github.com/okian/ascend/pkg/logger"
	"github.com/okian/ascend/pkg/metrics"
)

const defaultNotificationTTL = 10 * time.Second

// EventLog is the append-only event history the controller evaluates.
type EventLog interface {
	Append(ctx context.Context, ev model.TourEvent)
	ReadAll(ctx context.Context) []model.TourEvent
}

// UnlockLedger persists first-unlock timestamps.
type UnlockLedger interface {
	RecordFirstUnlock(ctx context.Context, level int) bool
	UnlockTimestamp(ctx context.Context, level int) (time.Time, bool)
	WasRecentlyUnlocked(ctx context.Context, within time.Duration) bool
	Records(ctx context.Context) []model.UnlockRecord
	Levels(ctx context.Context) progression.LevelSet
}

// NoticeSink receives surfaced unlocks for out-of-band delivery.
type NoticeSink interface {
	Enqueue(ctx context.Context, n model.UnlockNotice) bool
}

// Controller is the entry point for reporting tour actions and reading
// progression. All operations are serialized.
type Controller struct {
	mu sync.Mutex

	events   EventLog
	unlocks  UnlockLedger
	criteria progression.Criteria
	clock    clock.Clock
	ttl      time.Duration
	sink     NoticeSink
	install  string
	logger   logger.Logger

	viewed progression.LevelSet

	// notification is the surfaced level, 0 when none. generation guards
	// against a timer that fires after being superseded or cleared.
	notification int
	timer        clock.Timer
	generation   uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithCriteria replaces the default unlock criteria.
func WithCriteria(c progression.Criteria) ControllerOption {
	return func(ctl *Controller) {
		if len(c) > 0 {
			ctl.criteria = c
		}
	}
}

// WithClock sets the time source for event timestamps and the notification timer.
func WithClock(c clock.Clock) ControllerOption {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithControllerNotificationTTL sets how long a surfaced unlock stays visible.
func WithControllerNotificationTTL(d time.Duration) ControllerOption {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.ttl = d
		}
	}
}

// WithNoticeSink forwards every surfaced unlock to sink.
func WithNoticeSink(sink NoticeSink, installationID string) ControllerOption {
	return func(ctl *Controller) {
		ctl.sink = sink
		ctl.install = installationID
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l logger.Logger) ControllerOption {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// NewController returns a controller over the given stores.
func NewController(events EventLog, unlocks UnlockLedger, opts ...ControllerOption) *Controller {
	c := &Controller{
		events:   events,
		unlocks:  unlocks,
		criteria: progression.DefaultCriteria(),
		clock:    clock.New(),
		ttl:      defaultNotificationTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("controller")
	}
	return c
}

// RecordEvent appends an event and reports the level it newly made
// available, if any. When several levels cross at once only the highest is
// returned, though all of them get an unlock record.
func (c *Controller) RecordEvent(ctx context.Context, t model.EventType, metadata map[string]any) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.available(ctx, progression.Evaluate(c.criteria, c.events.ReadAll(ctx)))
	prevHighest := progression.HighestAvailable(before)

	now := c.clock.Now().UTC()
	c.events.Append(ctx, model.TourEvent{Type: t, Timestamp: now, Metadata: metadata})

	if !t.Known() {
		metrics.RecordUnknownEvent()
		c.logger.Warn(ctx, "unrecognized event type recorded; it does not count toward any level",
			logger.String("type", string(t)),
		)
		return 0, false
	}
	metrics.RecordEventRecorded(string(t))

	start := time.Now()
	satisfied := progression.Evaluate(c.criteria, c.events.ReadAll(ctx))
	metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)

	recorded := c.unlocks.Levels(ctx)
	for _, lvl := range satisfied.Diff(recorded).Levels() {
		if c.unlocks.RecordFirstUnlock(ctx, lvl) {
			metrics.RecordLevelUnlocked(lvl)
			c.logger.Info(ctx, "level unlocked", logger.Int("unlocked_level", lvl))
		}
	}

	highest := progression.HighestAvailable(satisfied.Union(recorded))
	metrics.UpdateHighestLevel(highest)
	if highest <= prevHighest {
		return 0, false
	}
	c.surface(ctx, highest, now)
	return highest, true
}

// HighestAvailableLevel returns the highest level the user may tour, at least 1.
func (c *Controller) HighestAvailableLevel(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highest(ctx)
}

// CompletedLevels returns the levels whose criteria the event log satisfies.
func (c *Controller) CompletedLevels(ctx context.Context) progression.LevelSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progression.Evaluate(c.criteria, c.events.ReadAll(ctx))
}

// MarkTourViewed records that the tour of level was fully viewed.
func (c *Controller) MarkTourViewed(level int) error {
	if !model.ValidLevel(level) {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewed = c.viewed.With(level)
	return nil
}

// ViewedLevels returns the levels whose tours were fully viewed this session.
func (c *Controller) ViewedLevels() progression.LevelSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewed
}

// LevelState derives the per-level view. Viewing a tour completes it only
// once the level is available.
func (c *Controller) LevelState(ctx context.Context, level int) model.LevelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(level, c.highest(ctx))
}

// LevelStates returns the state of every level, indexed from level 1.
func (c *Controller) LevelStates(ctx context.Context) []model.LevelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	highest := c.highest(ctx)
	out := make([]model.LevelState, 0, model.MaxLevel)
	for lvl := model.MinLevel; lvl <= model.MaxLevel; lvl++ {
		out = append(out, c.state(lvl, highest))
	}
	return out
}

// NewLevelUnlocked returns the currently surfaced unlock, if any.
func (c *Controller) NewLevelUnlocked() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notification, c.notification != 0
}

// ClearNotification dismisses the surfaced unlock and cancels its timer.
func (c *Controller) ClearNotification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notification == 0 {
		return
	}
	c.stopTimer()
	c.notification = 0
	metrics.RecordNotification("cleared")
}

// UnlockTimestamp returns when level was first reached.
func (c *Controller) UnlockTimestamp(ctx context.Context, level int) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocks.UnlockTimestamp(ctx, level)
}

// UnlockRecords returns every persisted unlock ordered by level.
func (c *Controller) UnlockRecords(ctx context.Context) []model.UnlockRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocks.Records(ctx)
}

// WasRecentlyUnlocked reports whether any level was first reached within the window.
func (c *Controller) WasRecentlyUnlocked(ctx context.Context, within time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocks.WasRecentlyUnlocked(ctx, within)
}

// highest requires c.mu.
func (c *Controller) highest(ctx context.Context) int {
	satisfied := progression.Evaluate(c.criteria, c.events.ReadAll(ctx))
	return progression.HighestAvailable(c.available(ctx, satisfied))
}

// available combines the satisfied set with persisted unlocks, which act as
// a floor. A persisted level the log no longer satisfies means the criteria
// changed non-monotonically; it stays available and the violation is reported.
func (c *Controller) available(ctx context.Context, satisfied progression.LevelSet) progression.LevelSet {
	recorded := c.unlocks.Levels(ctx)
	if lost := recorded.Diff(satisfied); !lost.Empty() {
		metrics.RecordContractViolation()
		c.logger.Error(ctx, "unlocked levels are no longer satisfied by the event log",
			logger.Any("levels", lost.Levels()),
		)
	}
	return satisfied.Union(recorded)
}

func (c *Controller) state(level, highest int) model.LevelState {
	switch {
	case !model.ValidLevel(level) || level > highest:
		return model.LevelLocked
	case c.viewed.Has(level):
		return model.LevelCompleted
	default:
		return model.LevelAvailable
	}
}

// surface replaces the current notification and re-arms its timer. Requires c.mu.
func (c *Controller) surface(ctx context.Context, level int, at time.Time) {
	c.stopTimer()
	c.notification = level
	c.generation++
	gen := c.generation
	c.timer = c.clock.AfterFunc(c.ttl, func() { c.expire(gen) })
	metrics.RecordNotification("raised")

	if c.sink != nil {
		n := model.UnlockNotice{InstallationID: c.install, Level: level, UnlockedAt: at}
		if !c.sink.Enqueue(ctx, n) {
			c.logger.Warn(ctx, "unlock notice dropped", logger.Int("unlocked_level", level))
		}
	}
}

// expire clears the notification armed under gen unless it was superseded or cleared.
func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.notification == 0 {
		return
	}
	c.notification = 0
	c.timer = nil
	metrics.RecordNotification("expired")
}

// stopTimer cancels the pending expiry. Requires c.mu.
func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}
