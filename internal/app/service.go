// Package service wires storage, the progression controller and the unlock
// notice pipeline into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	noticequeue "github.com/okian/ascend/internal/adapters/mq/queue"
	workerpool "github.com/okian/ascend/internal/adapters/mq/worker"
	"github.com/okian/ascend/internal/adapters/repository"
	"github.com/okian/ascend/internal/adapters/storage"
	"github.com/okian/ascend/internal/domain/badges"
	"github.com/okian/ascend/internal/domain/dedupe"
	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/internal/domain/progression"
	"github.com/okian/ascend/internal/domain/types"
	"github.com/okian/ascend/pkg/clock"
	"github.com/okian/ascend/pkg/logger"
	"github.com/okian/ascend/pkg/metrics"
)

// InstallationKey stores the generated installation ID.
const InstallationKey = "ascend:installation"

// Service implements the API dependencies for tour progression.
type Service struct {
	mu sync.RWMutex

	// Core components
	storage    storage.Storage
	events     *repository.EventStore
	unlocks    *repository.UnlockRecorder
	controller *Controller
	deduper    dedupe.Deduper
	notices    *noticequeue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	installationID  string
	criteria        progression.Criteria
	clock           clock.Clock
	notificationTTL time.Duration
	recentWindow    time.Duration
	workerCount     int
	queueSize       int
	dedupeSize      int
	publisher       workerpool.Publisher
	redisChannel    string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStorage sets the durable medium. Defaults to in-memory storage.
func WithStorage(s storage.Storage) Option {
	return func(svc *Service) {
		if s != nil {
			svc.storage = s
		}
	}
}

// WithInstallationID pins the installation ID instead of resolving it from storage.
func WithInstallationID(id string) Option {
	return func(s *Service) {
		s.installationID = id
	}
}

// WithUnlockCriteria replaces the built-in unlock thresholds.
func WithUnlockCriteria(c progression.Criteria) Option {
	return func(s *Service) {
		if len(c) > 0 {
			s.criteria = c
		}
	}
}

// WithServiceClock sets the time source for timestamps and timers.
func WithServiceClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithNotificationTTL sets how long a surfaced unlock stays visible.
func WithNotificationTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notificationTTL = d
		}
	}
}

// WithRecentWindow sets the default window for recent-unlock checks.
func WithRecentWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recentWindow = d
		}
	}
}

// WithWorkerCount sets the number of notice dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notice queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request_id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRedisPublisher publishes unlock notices on channel.
func WithRedisPublisher(p workerpool.Publisher, channel string) Option {
	return func(s *Service) {
		if p != nil && channel != "" {
			s.publisher = p
			s.redisChannel = channel
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		criteria:        progression.DefaultCriteria(),
		clock:           clock.New(),
		notificationTTL: defaultNotificationTTL,
		recentWindow:    30 * time.Second,
		workerCount:     runtime.NumCPU(),
		queueSize:       1_024,
		dedupeSize:      10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if err := s.criteria.Validate(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if s.storage == nil {
		s.storage = storage.NewMemory()
		s.logger.Warn(ctx, "no storage configured; progression is session-only")
	}

	s.installationID = resolveInstallationID(ctx, s.storage, s.installationID, s.logger)
	s.events = repository.NewEventStore(s.storage, s.installationID)
	s.unlocks = repository.NewUnlockRecorder(s.storage, s.installationID, repository.WithClock(s.clock))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.notices = noticequeue.NewInMemoryQueue(noticequeue.WithCapacity(s.queueSize))

	notifiers := []workerpool.Notifier{workerpool.NewLogNotifier(logger.Named("notifier"))}
	if s.publisher != nil {
		notifiers = append(notifiers, workerpool.NewRedisNotifier(s.publisher, s.redisChannel))
	}
	s.workerPool = workerpool.NewPool(s.workerCount, s.notices, notifiers)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.controller = NewController(s.events, s.unlocks,
		WithCriteria(s.criteria),
		WithClock(s.clock),
		WithControllerNotificationTTL(s.notificationTTL),
		WithNoticeSink(s.notices, s.installationID),
	)

	metrics.UpdateHighestLevel(s.controller.HighestAvailableLevel(ctx))

	s.started = true
	s.logger.Info(ctx, "tour progression service started",
		logger.String("installation_id", s.installationID),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("redisNotifier", s.publisher != nil),
	)
	return nil
}

// Stop gracefully shuts down the service. Queued notices are delivered first.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping tour progression service...")

	s.controller.ClearNotification()
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "notice workers did not drain", logger.Error(err))
	}
	if err := s.storage.Close(); err != nil {
		s.logger.Warn(ctx, "closing storage failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "tour progression service stopped")
}

// resolveInstallationID returns the configured ID, else the stored one,
// else a new ID which is stored for later runs.
func resolveInstallationID(ctx context.Context, st storage.Storage, configured string, log logger.Logger) string {
	if configured != "" {
		return configured
	}
	raw, err := st.Get(ctx, InstallationKey)
	switch {
	case err == nil && len(raw) > 0:
		return string(raw)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		log.Warn(ctx, "reading installation id failed", logger.Error(err))
	}
	id := uuid.NewString()
	if err := st.Set(ctx, InstallationKey, []byte(id)); err != nil {
		log.Warn(ctx, "storing installation id failed; it will change on restart", logger.Error(err))
	}
	return id
}

func (s *Service) running() (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.controller, nil
}

// InstallationID returns the resolved installation ID, empty before Start.
func (s *Service) InstallationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.installationID
}

// RecentWindow returns the default window for recent-unlock checks.
func (s *Service) RecentWindow() time.Duration {
	return s.recentWindow
}

// SubmitEvent records one event. A non-empty requestID that was already
// submitted is acknowledged without being recorded again.
func (s *Service) SubmitEvent(ctx context.Context, eventType string, metadata map[string]any, requestID string) (types.EventResult, error) {
	ctl, err := s.running()
	if err != nil {
		return types.EventResult{}, err
	}
	if requestID != "" {
		if s.deduper.SeenAndRecord(ctx, requestID) {
			metrics.RecordEventDuplicate()
			s.logger.Debug(ctx, "duplicate submission skipped", logger.String("request_id", requestID))
			return types.EventResult{HighestAvailableLevel: ctl.HighestAvailableLevel(ctx), Duplicate: true}, nil
		}
		// A caller that gave up before the event was recorded must be able to retry.
		if err := ctx.Err(); err != nil {
			s.deduper.Unrecord(ctx, requestID)
			return types.EventResult{}, err
		}
	}

	level, unlocked := ctl.RecordEvent(ctx, model.EventType(eventType), metadata)
	res := types.EventResult{HighestAvailableLevel: ctl.HighestAvailableLevel(ctx)}
	if unlocked {
		res.UnlockedLevel = &level
	}
	return res, nil
}

// Progress returns the progression view.
func (s *Service) Progress(ctx context.Context) (types.Progress, error) {
	ctl, err := s.running()
	if err != nil {
		return types.Progress{}, err
	}
	states := ctl.LevelStates(ctx)
	views := make([]types.LevelView, len(states))
	for i, st := range states {
		views[i] = types.LevelView{Level: model.MinLevel + i, State: string(st)}
	}
	p := types.Progress{
		HighestAvailableLevel: ctl.HighestAvailableLevel(ctx),
		CompletedLevels:       ctl.CompletedLevels(ctx).Levels(),
		ViewedLevels:          ctl.ViewedLevels().Levels(),
		Levels:                views,
	}
	if lvl, ok := ctl.NewLevelUnlocked(); ok {
		p.Notification = &lvl
	}
	return p, nil
}

// Notification returns the surfaced unlock, if any.
func (s *Service) Notification() (int, bool, error) {
	ctl, err := s.running()
	if err != nil {
		return 0, false, err
	}
	lvl, ok := ctl.NewLevelUnlocked()
	return lvl, ok, nil
}

// ClearNotification dismisses the surfaced unlock.
func (s *Service) ClearNotification() error {
	ctl, err := s.running()
	if err != nil {
		return err
	}
	ctl.ClearNotification()
	return nil
}

// MarkTourViewed records that the tour of level was fully viewed.
func (s *Service) MarkTourViewed(level int) error {
	ctl, err := s.running()
	if err != nil {
		return err
	}
	return ctl.MarkTourViewed(level)
}

// Badges joins the catalog with the persisted unlocks.
func (s *Service) Badges(ctx context.Context) (types.BadgeBoard, error) {
	ctl, err := s.running()
	if err != nil {
		return types.BadgeBoard{}, err
	}
	unlockedAt := make(map[int]time.Time)
	for _, rec := range ctl.UnlockRecords(ctx) {
		unlockedAt[rec.Level] = rec.UnlockedAt
	}

	board := types.BadgeBoard{}
	var earned, all []int
	for _, def := range badges.All() {
		b := types.Badge{
			Level:       def.Level,
			Name:        def.Name,
			Description: def.Description,
			Rarity:      def.Rarity.String(),
			Points:      def.Points,
			Color:       def.Color,
		}
		if at, ok := unlockedAt[def.Level]; ok {
			b.Unlocked = true
			b.UnlockedAt = &at
			earned = append(earned, def.Level)
		}
		all = append(all, def.Level)
		board.Badges = append(board.Badges, b)
	}
	board.EarnedPoints = badges.TotalPoints(earned)
	board.TotalPoints = badges.TotalPoints(all)
	return board, nil
}

// RecentlyUnlocked reports whether any badge was unlocked within the window.
func (s *Service) RecentlyUnlocked(ctx context.Context, within time.Duration) (bool, error) {
	ctl, err := s.running()
	if err != nil {
		return false, err
	}
	return ctl.WasRecentlyUnlocked(ctx, within), nil
}

// Snapshot summarizes the stored progression for offline inspection.
func (s *Service) Snapshot(ctx context.Context) (types.Snapshot, error) {
	ctl, err := s.running()
	if err != nil {
		return types.Snapshot{}, err
	}
	tally := progression.NewTally()
	for _, ev := range s.events.ReadAll(ctx) {
		tally.Add(ev)
	}
	byType := make(map[string]int)
	for t, n := range tally.Counts() {
		byType[string(t)] = n
	}
	records := ctl.UnlockRecords(ctx)
	unlocks := make([]types.Unlock, len(records))
	for i, rec := range records {
		unlocks[i] = types.Unlock{Level: rec.Level, UnlockedAt: rec.UnlockedAt}
	}
	return types.Snapshot{
		InstallationID:        s.InstallationID(),
		TotalEvents:           tally.Total(),
		IgnoredEvents:         tally.Ignored(),
		EventsByType:          byType,
		SatisfiedLevels:       tally.Satisfied(s.criteria).Levels(),
		HighestAvailableLevel: ctl.HighestAvailableLevel(ctx),
		Unlocks:               unlocks,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		queueLen := s.notices.Len(ctx)
		stats["installationId"] = s.installationID
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["totalEvents"] = s.events.Len(ctx)
		stats["highestAvailableLevel"] = s.controller.HighestAvailableLevel(ctx)
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
