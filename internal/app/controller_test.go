package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/ascend/internal/adapters/repository"
	"github.com/okian/ascend/internal/adapters/storage"
	service "github.com/okian/ascend/internal/app"
	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/internal/domain/progression"
	"github.com/okian/ascend/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	mem     *storage.Memory
	clock   *clock.Fake
	unlocks *repository.UnlockRecorder
	sink    *sinkRecorder
	ctl     *service.Controller
}

type sinkRecorder struct {
	mu      sync.Mutex
	notices []model.UnlockNotice
}

func (s *sinkRecorder) Enqueue(_ context.Context, n model.UnlockNotice) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return true
}

func newFixture(opts ...service.ControllerOption) *fixture {
	f := &fixture{
		ctx:   context.Background(),
		mem:   storage.NewMemory(),
		clock: clock.NewFake(epoch),
		sink:  &sinkRecorder{},
	}
	events := repository.NewEventStore(f.mem, "install-a")
	f.unlocks = repository.NewUnlockRecorder(f.mem, "install-a", repository.WithClock(f.clock))
	base := []service.ControllerOption{
		service.WithClock(f.clock),
		service.WithNoticeSink(f.sink, "install-a"),
	}
	f.ctl = service.NewController(events, f.unlocks, append(base, opts...)...)
	return f
}

func (f *fixture) record(t model.EventType) (int, bool) {
	return f.ctl.RecordEvent(f.ctx, t, nil)
}

func TestControllerScenarios(t *testing.T) {
	Convey("Given a controller over an empty log", t, func() {
		f := newFixture()

		Convey("Scenario A: the highest available level is 1", func() {
			So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 1)
			So(f.ctl.CompletedLevels(f.ctx).Empty(), ShouldBeTrue)
			_, ok := f.ctl.NewLevelUnlocked()
			So(ok, ShouldBeFalse)
		})

		Convey("Scenario B: one multi-job submission unlocks level 2", func() {
			level, ok := f.record(model.EventMultiJobSubmission)

			So(ok, ShouldBeTrue)
			So(level, ShouldEqual, 2)
			_, has2 := f.ctl.UnlockTimestamp(f.ctx, 2)
			_, has3 := f.ctl.UnlockTimestamp(f.ctx, 3)
			So(has2, ShouldBeTrue)
			So(has3, ShouldBeFalse)

			Convey("Scenario D: it is recent now and not after the window", func() {
				So(f.ctl.WasRecentlyUnlocked(f.ctx, 30*time.Second), ShouldBeTrue)
				f.clock.Advance(31 * time.Second)
				So(f.ctl.WasRecentlyUnlocked(f.ctx, 30*time.Second), ShouldBeFalse)
			})
		})

		Convey("Scenario C: only the third candidate submission unlocks level 3", func() {
			_, first := f.record(model.EventCandidateSubmitted)
			_, second := f.record(model.EventCandidateSubmitted)
			level, third := f.record(model.EventCandidateSubmitted)

			So(first, ShouldBeFalse)
			So(second, ShouldBeFalse)
			So(third, ShouldBeTrue)
			So(level, ShouldEqual, 3)
			So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 3)
		})

		Convey("When level 1 is reached it is recorded but not surfaced", func() {
			_, ok := f.record(model.EventJobViewed)

			So(ok, ShouldBeFalse)
			_, recorded := f.ctl.UnlockTimestamp(f.ctx, 1)
			So(recorded, ShouldBeTrue)
			So(f.ctl.CompletedLevels(f.ctx).Has(1), ShouldBeTrue)
		})
	})
}

func TestControllerSingleNotificationPerCall(t *testing.T) {
	Convey("Given criteria where one event can cross levels 2 and 3 together", t, func() {
		criteria := progression.Criteria{
			{Level: 2, AllOf: []progression.Requirement{{Type: model.EventPlacementMade, Min: 1}}},
			{Level: 3, AllOf: []progression.Requirement{
				{Type: model.EventPlacementMade, Min: 1},
				{Type: model.EventCandidateAdded, Min: 1},
			}},
		}
		f := newFixture(service.WithCriteria(criteria))
		f.record(model.EventCandidateAdded)

		Convey("When the crossing event is recorded", func() {
			level, ok := f.record(model.EventPlacementMade)

			Convey("Then only the highest level is returned and surfaced", func() {
				So(ok, ShouldBeTrue)
				So(level, ShouldEqual, 3)
				current, _ := f.ctl.NewLevelUnlocked()
				So(current, ShouldEqual, 3)
				So(f.sink.notices, ShouldHaveLength, 1)
				So(f.sink.notices[0].Level, ShouldEqual, 3)
				So(f.sink.notices[0].InstallationID, ShouldEqual, "install-a")
			})

			Convey("Then both levels have unlock records", func() {
				So(f.unlocks.Levels(f.ctx).Levels(), ShouldResemble, []int{2, 3})
			})
		})
	})
}

func TestControllerNotificationLifecycle(t *testing.T) {
	Convey("Given a surfaced level 2 notification", t, func() {
		f := newFixture(service.WithControllerNotificationTTL(10 * time.Second))
		f.record(model.EventMultiJobSubmission)
		level, ok := f.ctl.NewLevelUnlocked()
		So(ok, ShouldBeTrue)
		So(level, ShouldEqual, 2)

		Convey("When the timeout elapses", func() {
			f.clock.Advance(10 * time.Second)

			Convey("Then the notification clears itself", func() {
				_, ok := f.ctl.NewLevelUnlocked()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When it is cleared manually", func() {
			f.ctl.ClearNotification()

			Convey("Then the timer is cancelled", func() {
				_, ok := f.ctl.NewLevelUnlocked()
				So(ok, ShouldBeFalse)
				So(f.clock.Pending(), ShouldEqual, 0)
			})

			Convey("Then clearing again is a no-op", func() {
				f.ctl.ClearNotification()
				_, ok := f.ctl.NewLevelUnlocked()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a higher level supersedes it before the timeout", func() {
			f.clock.Advance(6 * time.Second)
			for i := 0; i < 3; i++ {
				f.record(model.EventCandidateSubmitted)
			}
			f.clock.Advance(6 * time.Second)

			Convey("Then the old timer does not clear the new notification", func() {
				level, ok := f.ctl.NewLevelUnlocked()
				So(ok, ShouldBeTrue)
				So(level, ShouldEqual, 3)
			})

			Convey("Then the new notification expires on its own schedule", func() {
				f.clock.Advance(4 * time.Second)
				_, ok := f.ctl.NewLevelUnlocked()
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestControllerUnknownEvents(t *testing.T) {
	Convey("Given a controller", t, func() {
		f := newFixture()

		Convey("When an unrecognized event type is recorded", func() {
			_, ok := f.ctl.RecordEvent(f.ctx, "coffee-made", map[string]any{"cups": 2})

			Convey("Then it is stored but unlocks nothing", func() {
				So(ok, ShouldBeFalse)
				So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 1)
				events := repository.NewEventStore(f.mem, "install-a").ReadAll(f.ctx)
				So(events, ShouldHaveLength, 1)
				So(events[0].Type, ShouldEqual, model.EventType("coffee-made"))
				So(events[0].Timestamp.Equal(epoch), ShouldBeTrue)
			})
		})
	})
}

func TestControllerAvailabilityFloor(t *testing.T) {
	Convey("Given a persisted level 4 unlock the log does not satisfy", t, func() {
		f := newFixture()
		So(f.unlocks.RecordFirstUnlock(f.ctx, 4), ShouldBeTrue)

		Convey("Then level 4 stays available", func() {
			So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 4)
			So(f.ctl.LevelState(f.ctx, 4), ShouldEqual, model.LevelAvailable)
			So(f.ctl.LevelState(f.ctx, 5), ShouldEqual, model.LevelLocked)
		})

		Convey("Then satisfying a lower level does not surface a notification", func() {
			_, ok := f.record(model.EventMultiJobSubmission)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestControllerLevelStates(t *testing.T) {
	Convey("Given level 2 is available", t, func() {
		f := newFixture()
		f.record(model.EventPlacementMade)

		Convey("When tours are marked viewed", func() {
			So(f.ctl.MarkTourViewed(2), ShouldBeNil)
			So(f.ctl.MarkTourViewed(5), ShouldBeNil)

			Convey("Then only available viewed levels are completed", func() {
				So(f.ctl.LevelStates(f.ctx), ShouldResemble, []model.LevelState{
					model.LevelAvailable,
					model.LevelCompleted,
					model.LevelLocked,
					model.LevelLocked,
					model.LevelLocked,
				})
				So(f.ctl.ViewedLevels().Levels(), ShouldResemble, []int{2, 5})
			})

			Convey("Then viewing does not change the satisfied set", func() {
				So(f.ctl.CompletedLevels(f.ctx).Levels(), ShouldResemble, []int{2})
			})
		})

		Convey("When an invalid level is marked viewed", func() {
			err := f.ctl.MarkTourViewed(0)

			Convey("Then ErrInvalidLevel is returned", func() {
				So(errors.Is(err, service.ErrInvalidLevel), ShouldBeTrue)
			})
		})
	})
}

func TestControllerDegradedStorage(t *testing.T) {
	Convey("Given storage that cannot be read or written", t, func() {
		f := newFixture()
		f.mem.SetFailures(true, true)

		Convey("When events are recorded", func() {
			level, ok := f.record(model.EventPlacementMade)

			Convey("Then progression continues for the session", func() {
				So(ok, ShouldBeTrue)
				So(level, ShouldEqual, 2)
				So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 2)
			})
		})
	})

	Convey("Given storage that can be read but not written", t, func() {
		f := newFixture()
		f.mem.SetFailures(false, true)

		Convey("When three candidate submissions are recorded", func() {
			_, first := f.record(model.EventCandidateSubmitted)
			_, second := f.record(model.EventCandidateSubmitted)
			level, third := f.record(model.EventCandidateSubmitted)

			Convey("Then the third one still unlocks level 3", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeFalse)
				So(third, ShouldBeTrue)
				So(level, ShouldEqual, 3)
				So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 3)
				_, has3 := f.ctl.UnlockTimestamp(f.ctx, 3)
				So(has3, ShouldBeTrue)
			})
		})
	})

	Convey("Given a corrupted event log", t, func() {
		f := newFixture()
		So(f.mem.Set(f.ctx, repository.Key("install-a", repository.EventsRecord), []byte("\x00garbage")), ShouldBeNil)

		Convey("Then reads degrade to level 1", func() {
			So(f.ctl.HighestAvailableLevel(f.ctx), ShouldEqual, 1)
			So(f.ctl.CompletedLevels(f.ctx).Empty(), ShouldBeTrue)
		})
	})
}
