package repository

import (
	"context"
	"sync"

	"github.com/okian/ascend/internal/adapters/storage"
	"github.com/okian/ascend/internal/domain/model"
)

// EventStore is the append-only tour event log of one installation.
type EventStore struct {
	mu  sync.Mutex
	rec jsonRecord[model.TourEvent]
}

// NewEventStore returns the event log stored under <installationID>:tour-events.
func NewEventStore(s storage.Storage, installationID string, opts ...Option) *EventStore {
	o := buildOptions("event-store", opts)
	return &EventStore{rec: jsonRecord[model.TourEvent]{
		storage: s,
		name:    EventsRecord,
		key:     Key(installationID, EventsRecord),
		logger:  o.logger,
	}}
}

// Append adds ev to the end of the log. It never fails: if the medium cannot
// be written the event is kept for the rest of the session only.
func (s *EventStore) Append(ctx context.Context, ev model.TourEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.rec.load(ctx)
	events = append(events, cloneEvent(ev))
	s.rec.save(ctx, events)
}

// ReadAll returns a snapshot of the log, oldest first.
func (s *EventStore) ReadAll(ctx context.Context) []model.TourEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.load(ctx)
}

// Len returns the number of events in the log.
func (s *EventStore) Len(ctx context.Context) int {
	return len(s.ReadAll(ctx))
}

// cloneEvent detaches the metadata map from the caller's copy.
func cloneEvent(ev model.TourEvent) model.TourEvent {
	if ev.Metadata == nil {
		return ev
	}
	md := make(map[string]any, len(ev.Metadata))
	for k, v := range ev.Metadata {
		md[k] = v
	}
	ev.Metadata = md
	return ev
}
