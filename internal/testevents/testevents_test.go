package testevents_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/ascend/internal/adapters/http/api"
	"github.com/okian/ascend/internal/adapters/storage"
	service "github.com/okian/ascend/internal/app"
	"github.com/okian/ascend/internal/testevents"
	"github.com/okian/ascend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()
	svc := service.New(
		service.WithStorage(storage.NewMemory()),
		service.WithInstallationID("install-sim"),
		service.WithWorkerCount(1),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv, svc
}

func TestScripts(t *testing.T) {
	Convey("Given the scripted tours", t, func() {
		Convey("Then every name resolves to a non-empty script", func() {
			names := testevents.Scenarios()
			So(names, ShouldContain, testevents.DefaultScenario)
			for _, name := range names {
				steps, err := testevents.Script(name)
				So(err, ShouldBeNil)
				So(steps, ShouldNotBeEmpty)
			}
		})

		Convey("Then an unknown name is rejected", func() {
			_, err := testevents.Script("nope")
			So(errors.Is(err, testevents.ErrUnknownScenario), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a fresh server", t, func() {
		srv, _ := newServer(t)
		ctx := context.Background()

		Convey("When the full tour is played", func() {
			stats, err := testevents.Run(ctx, &testevents.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})

			Convey("Then every step matches and all levels unlock in order", func() {
				So(err, ShouldBeNil)
				So(stats.StepsVerified, ShouldEqual, stats.StepsPlayed)
				So(stats.Unlocks, ShouldResemble, []int{2, 3, 4, 5})
				So(stats.FinalHighestLevel, ShouldEqual, 5)
				So(stats.RecentlyUnlocked, ShouldBeTrue)
			})

			Convey("Then a second run refuses the dirty installation", func() {
				_, err := testevents.Run(ctx, &testevents.Config{BaseURL: srv.URL})
				So(errors.Is(err, testevents.ErrDirtyInstallation), ShouldBeTrue)
			})

			Convey("Then a second run with AllowDirty plays without step checks", func() {
				stats, err := testevents.Run(ctx, &testevents.Config{BaseURL: srv.URL, Scenario: "multi-job", AllowDirty: true})
				So(err, ShouldBeNil)
				So(stats.StepsVerified, ShouldEqual, 0)
				So(stats.Unlocks, ShouldBeEmpty)
			})
		})

		Convey("When the skip-ahead tour is played", func() {
			stats, err := testevents.Run(ctx, &testevents.Config{BaseURL: srv.URL, Scenario: "skip-ahead"})

			Convey("Then only levels 2 and 5 surface", func() {
				So(err, ShouldBeNil)
				So(stats.Unlocks, ShouldResemble, []int{2, 5})
			})
		})

		Convey("When a burst with retries follows the tour", func() {
			stats, err := testevents.Run(ctx, &testevents.Config{
				BaseURL:    srv.URL,
				Scenario:   "candidate-streak",
				Burst:      40,
				Duplicates: 10,
				Workers:    4,
			})

			Convey("Then every retry is flagged as a duplicate", func() {
				So(err, ShouldBeNil)
				So(stats.EventsSubmitted, ShouldEqual, 50)
				So(stats.EventsSuccessful, ShouldEqual, 40)
				So(stats.EventsDuplicate, ShouldEqual, 10)
				So(stats.EventsFailed, ShouldEqual, 0)
			})
		})
	})

	Convey("Given no server", t, func() {
		Convey("Then the health check fails", func() {
			_, err := testevents.Run(context.Background(), &testevents.Config{
				BaseURL: "http://127.0.0.1:1",
				Timeout: time.Second,
			})
			So(errors.Is(err, testevents.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
