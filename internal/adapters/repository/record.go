// Package repository persists the tour event log and badge unlock records.
//
// Both collections are stored whole, as JSON arrays under one key each.
// Reads never fail: a missing key reads as empty, malformed content reads as
// empty, and an unreadable medium falls back to the session copy kept in
// memory. Writes are best-effort; failures are logged and swallowed, and the
// session copy stays authoritative until the next successful write.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/ascend/internal/adapters/storage"
	"github.com/okian/ascend/pkg/logger"
	"github.com/okian/ascend/pkg/metrics"
)

// Record names, also used as key suffixes.
const (
	EventsRecord  = "tour-events"
	UnlocksRecord = "badge-unlocks"
)

// Key returns the storage key of record for an installation.
func Key(installationID, record string) string {
	return installationID + ":" + record
}

// jsonRecord is one durable JSON array plus its session copy.
type jsonRecord[T any] struct {
	storage storage.Storage
	name    string
	key     string
	logger  logger.Logger
	session []T
	// unsynced is set while the medium lags behind the session copy.
	unsynced bool
}

// load returns the stored items, degrading to empty or to the session copy.
// The caller holds the owning store's lock.
func (r *jsonRecord[T]) load(ctx context.Context) []T {
	if r.unsynced {
		return clone(r.session)
	}
	raw, err := r.storage.Get(ctx, r.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.session = nil
		return nil
	case err != nil:
		metrics.RecordStorageError("get")
		r.logger.Warn(ctx, "storage read failed; using session copy",
			logger.String("record", r.name),
			logger.Error(err),
		)
		return clone(r.session)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		metrics.RecordMalformedRecord(r.name)
		r.logger.Warn(ctx, "malformed record; starting fresh",
			logger.String("record", r.name),
			logger.Error(fmt.Errorf("%w: %v", ErrMalformedRecord, err)),
		)
		r.session = nil
		return nil
	}
	r.session = clone(items)
	return items
}

// save replaces the stored items. Failures are swallowed after the session
// copy is updated, and later loads serve that copy until a write succeeds.
func (r *jsonRecord[T]) save(ctx context.Context, items []T) {
	r.session = clone(items)
	raw, err := json.Marshal(items)
	if err != nil {
		metrics.RecordStorageError("encode")
		r.unsynced = true
		r.logger.Error(ctx, "record encode failed", logger.String("record", r.name), logger.Error(err))
		return
	}
	if err := r.storage.Set(ctx, r.key, raw); err != nil {
		r.unsynced = true
		metrics.RecordStorageError("set")
		r.logger.Warn(ctx, "storage write failed; progression is session-only",
			logger.String("record", r.name),
			logger.Error(err),
		)
		return
	}
	r.unsynced = false
}

func clone[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
