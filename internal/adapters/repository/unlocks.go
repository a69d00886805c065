package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/ascend/internal/adapters/storage"
	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/internal/domain/progression"
	"github.com/okian/ascend/pkg/clock"
)

// UnlockRecorder persists the first time each level was reached.
// Records are never updated or deleted.
type UnlockRecorder struct {
	mu    sync.Mutex
	rec   jsonRecord[model.UnlockRecord]
	clock clock.Clock
}

// NewUnlockRecorder returns the recorder stored under <installationID>:badge-unlocks.
func NewUnlockRecorder(s storage.Storage, installationID string, opts ...Option) *UnlockRecorder {
	o := buildOptions("unlock-recorder", opts)
	return &UnlockRecorder{
		rec: jsonRecord[model.UnlockRecord]{
			storage: s,
			name:    UnlocksRecord,
			key:     Key(installationID, UnlocksRecord),
			logger:  o.logger,
		},
		clock: o.clock,
	}
}

// RecordFirstUnlock stores (level, now) unless level already has a record.
// It reports whether a record was written.
func (r *UnlockRecorder) RecordFirstUnlock(ctx context.Context, level int) bool {
	if !model.ValidLevel(level) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.normalized(ctx)
	for _, rec := range records {
		if rec.Level == level {
			return false
		}
	}
	records = append(records, model.UnlockRecord{Level: level, UnlockedAt: r.clock.Now().UTC()})
	r.rec.save(ctx, records)
	return true
}

// UnlockTimestamp returns when level was first reached.
func (r *UnlockRecorder) UnlockTimestamp(ctx context.Context, level int) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.normalized(ctx) {
		if rec.Level == level {
			return rec.UnlockedAt, true
		}
	}
	return time.Time{}, false
}

// WasRecentlyUnlocked reports whether any level was first reached within the
// trailing window ending now.
func (r *UnlockRecorder) WasRecentlyUnlocked(ctx context.Context, within time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for _, rec := range r.normalized(ctx) {
		age := now.Sub(rec.UnlockedAt)
		if age >= 0 && age <= within {
			return true
		}
	}
	return false
}

// Records returns every record ordered by level.
func (r *UnlockRecorder) Records(ctx context.Context) []model.UnlockRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.normalized(ctx)
	sort.Slice(records, func(i, j int) bool { return records[i].Level < records[j].Level })
	return records
}

// Levels returns the set of levels with a record.
func (r *UnlockRecorder) Levels(ctx context.Context) progression.LevelSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	var set progression.LevelSet
	for _, rec := range r.normalized(ctx) {
		set = set.With(rec.Level)
	}
	return set
}

// normalized loads the records, dropping out-of-range levels and keeping the
// earliest entry when a level appears more than once.
func (r *UnlockRecorder) normalized(ctx context.Context) []model.UnlockRecord {
	loaded := r.rec.load(ctx)
	out := make([]model.UnlockRecord, 0, len(loaded))
	index := make(map[int]int, len(loaded))
	for _, rec := range loaded {
		if !model.ValidLevel(rec.Level) {
			continue
		}
		if i, dup := index[rec.Level]; dup {
			if rec.UnlockedAt.Before(out[i].UnlockedAt) {
				out[i] = rec
			}
			continue
		}
		index[rec.Level] = len(out)
		out = append(out, rec)
	}
	return out
}
