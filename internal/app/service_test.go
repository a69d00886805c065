package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/ascend/internal/adapters/storage"
	service "github.com/okian/ascend/internal/app"
	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/internal/domain/progression"
	"github.com/okian/ascend/pkg/clock"
	"github.com/okian/ascend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func startService(mem storage.Storage, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithStorage(mem),
		service.WithServiceClock(clock.NewFake(epoch)),
		service.WithWorkerCount(1),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithStorage(storage.NewMemory()))

		Convey("When it is used before Start", func() {
			_, err := svc.SubmitEvent(ctx, string(model.EventJobViewed), nil, "")

			Convey("Then it reports ErrNotStarted", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started with invalid criteria", func() {
			bad := service.New(service.WithUnlockCriteria(progression.Criteria{{Level: 7}}))
			err := bad.Start(ctx)

			Convey("Then Start fails", func() {
				So(errors.Is(err, progression.ErrInvalidCriteria), ShouldBeTrue)
			})
		})
	})
}

func TestService_InstallationID(t *testing.T) {
	Convey("Given shared storage", t, func() {
		mem := storage.NewMemory()

		Convey("When two services start without a configured ID", func() {
			first := startService(mem)
			id := first.InstallationID()
			first.Stop()
			second := startService(mem)
			defer second.Stop()

			Convey("Then the generated ID is reused", func() {
				So(id, ShouldNotBeEmpty)
				So(second.InstallationID(), ShouldEqual, id)
			})
		})

		Convey("When an ID is configured", func() {
			svc := startService(mem, service.WithInstallationID("pinned"))
			defer svc.Stop()

			Convey("Then it wins", func() {
				So(svc.InstallationID(), ShouldEqual, "pinned")
			})
		})
	})
}

func TestService_SubmitEvent(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		mem := storage.NewMemory()
		svc := startService(mem)
		defer svc.Stop()

		Convey("When a level-crossing event is submitted", func() {
			res, err := svc.SubmitEvent(ctx, string(model.EventMultiJobSubmission), map[string]any{"jobs": 3}, "req-1")

			Convey("Then the unlock is reported", func() {
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.UnlockedLevel, ShouldNotBeNil)
				So(*res.UnlockedLevel, ShouldEqual, 2)
				So(res.HighestAvailableLevel, ShouldEqual, 2)
			})

			Convey("Then a retry with the same request_id is not recorded twice", func() {
				again, err := svc.SubmitEvent(ctx, string(model.EventMultiJobSubmission), nil, "req-1")
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.UnlockedLevel, ShouldBeNil)
				snap, _ := svc.Snapshot(ctx)
				So(snap.TotalEvents, ShouldEqual, 1)
			})

			Convey("Then progress shows the notification", func() {
				p, err := svc.Progress(ctx)
				So(err, ShouldBeNil)
				So(p.Notification, ShouldNotBeNil)
				So(*p.Notification, ShouldEqual, 2)
				So(p.CompletedLevels, ShouldResemble, []int{2})
				So(p.Levels, ShouldHaveLength, 5)
				So(p.Levels[1].State, ShouldEqual, string(model.LevelAvailable))

				So(svc.ClearNotification(), ShouldBeNil)
				_, ok, _ := svc.Notification()
				So(ok, ShouldBeFalse)
			})

			Convey("Then the badge board shows the unlock", func() {
				board, err := svc.Badges(ctx)
				So(err, ShouldBeNil)
				So(board.Badges, ShouldHaveLength, 5)
				So(board.Badges[1].Unlocked, ShouldBeTrue)
				So(board.Badges[1].UnlockedAt.Equal(epoch), ShouldBeTrue)
				So(board.Badges[0].Unlocked, ShouldBeFalse)
				So(board.EarnedPoints, ShouldEqual, 25)
				So(board.TotalPoints, ShouldEqual, 435)

				recent, err := svc.RecentlyUnlocked(ctx, 30*time.Second)
				So(err, ShouldBeNil)
				So(recent, ShouldBeTrue)
			})
		})

		Convey("When a submission is cancelled before it is recorded", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.SubmitEvent(cancelled, string(model.EventPlacementMade), nil, "req-cancel")

			Convey("Then the request_id stays free for the retry", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				res, err := svc.SubmitEvent(ctx, string(model.EventPlacementMade), nil, "req-cancel")
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.UnlockedLevel, ShouldNotBeNil)
				So(*res.UnlockedLevel, ShouldEqual, 2)
			})
		})

		Convey("When an unknown event type is submitted", func() {
			res, err := svc.SubmitEvent(ctx, "coffee-made", nil, "")

			Convey("Then it is accepted and ignored for progression", func() {
				So(err, ShouldBeNil)
				So(res.UnlockedLevel, ShouldBeNil)
				snap, _ := svc.Snapshot(ctx)
				So(snap.TotalEvents, ShouldEqual, 1)
				So(snap.IgnoredEvents, ShouldEqual, 1)
				So(snap.HighestAvailableLevel, ShouldEqual, 1)
			})
		})

		Convey("When a tour is marked viewed with an invalid level", func() {
			err := svc.MarkTourViewed(9)

			Convey("Then ErrInvalidLevel is returned", func() {
				So(errors.Is(err, service.ErrInvalidLevel), ShouldBeTrue)
			})
		})
	})
}

func TestService_Persistence(t *testing.T) {
	Convey("Given progression recorded by one service", t, func() {
		ctx := context.Background()
		mem := storage.NewMemory()
		first := startService(mem, service.WithInstallationID("install-p"))
		for i := 0; i < 3; i++ {
			_, err := first.SubmitEvent(ctx, string(model.EventCandidateSubmitted), nil, "")
			So(err, ShouldBeNil)
		}
		first.Stop()

		Convey("When a second service opens the same storage", func() {
			second := startService(mem, service.WithInstallationID("install-p"))
			defer second.Stop()
			snap, err := second.Snapshot(ctx)

			Convey("Then events and unlocks round-trip", func() {
				So(err, ShouldBeNil)
				So(snap.TotalEvents, ShouldEqual, 3)
				So(snap.EventsByType[string(model.EventCandidateSubmitted)], ShouldEqual, 3)
				So(snap.SatisfiedLevels, ShouldResemble, []int{3})
				So(snap.HighestAvailableLevel, ShouldEqual, 3)
				So(snap.Unlocks, ShouldHaveLength, 1)
				So(snap.Unlocks[0].Level, ShouldEqual, 3)
			})

			Convey("Then no notification is pending after restart", func() {
				_, ok, _ := second.Notification()
				So(ok, ShouldBeFalse)
			})
		})
	})
}
