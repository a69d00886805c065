package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/ascend/internal/adapters/http/api"
	"github.com/okian/ascend/internal/adapters/storage"
	service "github.com/okian/ascend/internal/app"
	"github.com/okian/ascend/internal/domain/types"
	"github.com/okian/ascend/pkg/clock"
	"github.com/okian/ascend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_WithService(t *testing.T) {
	Convey("Given the API over a started service", t, func() {
		svc := service.New(
			service.WithStorage(storage.NewMemory()),
			service.WithServiceClock(clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))),
			service.WithInstallationID("install-http"),
			service.WithWorkerCount(1),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, svc)

		Convey("When the progress is read on a fresh installation", func() {
			w := do(mux, http.MethodGet, "/progress", "")
			var p types.Progress
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)

			Convey("Then level 1 is available and nothing is completed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(p.HighestAvailableLevel, ShouldEqual, 1)
				So(p.CompletedLevels, ShouldBeEmpty)
				So(p.Notification, ShouldBeNil)
			})

			Convey("Then no notification is pending", func() {
				So(do(mux, http.MethodGet, "/notification", "").Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When a level-crossing event is posted", func() {
			w := do(mux, http.MethodPost, "/events", `{"type":"placement-made","metadata":{"role":"engineer"},"request_id":"r-1"}`)
			var res types.EventResult
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the unlock is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.UnlockedLevel, ShouldNotBeNil)
				So(*res.UnlockedLevel, ShouldEqual, 2)
				So(res.Duplicate, ShouldBeFalse)
			})

			Convey("Then the retry is flagged as a duplicate", func() {
				again := do(mux, http.MethodPost, "/events", `{"type":"placement-made","request_id":"r-1"}`)
				var dup types.EventResult
				So(json.Unmarshal(again.Body.Bytes(), &dup), ShouldBeNil)
				So(dup.Duplicate, ShouldBeTrue)
			})

			Convey("Then the notification can be read and cleared", func() {
				got := do(mux, http.MethodGet, "/notification", "")
				So(got.Code, ShouldEqual, http.StatusOK)
				So(got.Body.String(), ShouldContainSubstring, `"level":2`)
				So(do(mux, http.MethodDelete, "/notification", "").Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodGet, "/notification", "").Code, ShouldEqual, http.StatusNoContent)
			})

			Convey("Then the badge board and recent window reflect it", func() {
				board := do(mux, http.MethodGet, "/badges", "")
				var b types.BadgeBoard
				So(json.Unmarshal(board.Body.Bytes(), &b), ShouldBeNil)
				So(b.Badges[1].Unlocked, ShouldBeTrue)
				So(b.EarnedPoints, ShouldEqual, 25)

				recent := do(mux, http.MethodGet, "/badges/recent?within=30", "")
				So(recent.Code, ShouldEqual, http.StatusOK)
				So(recent.Body.String(), ShouldContainSubstring, `"recently_unlocked":true`)
			})

			Convey("Then viewing the level 2 tour completes it", func() {
				So(do(mux, http.MethodPost, "/tours/2/viewed", "").Code, ShouldEqual, http.StatusNoContent)
				var p types.Progress
				So(json.Unmarshal(do(mux, http.MethodGet, "/progress", "").Body.Bytes(), &p), ShouldBeNil)
				So(p.ViewedLevels, ShouldResemble, []int{2})
				So(p.Levels[1].State, ShouldEqual, "completed")
			})
		})

		Convey("When requests are malformed", func() {
			Convey("Then a missing type is rejected", func() {
				w := do(mux, http.MethodPost, "/events", `{"metadata":{}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})

			Convey("Then invalid JSON is rejected", func() {
				So(do(mux, http.MethodPost, "/events", `{"type":`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an out-of-range tour level is rejected", func() {
				So(do(mux, http.MethodPost, "/tours/6/viewed", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/tours/abc/viewed", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an invalid window is rejected", func() {
				So(do(mux, http.MethodGet, "/badges/recent?within=soon", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodGet, "/badges/recent?within=-5s", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then the wrong method is refused", func() {
				So(do(mux, http.MethodGet, "/events", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When the operational endpoints are read", func() {
			Convey("Then health, stats and metrics answer", func() {
				So(do(mux, http.MethodGet, "/healthz", "").Body.String(), ShouldContainSubstring, `"status":"ok"`)
				stats := do(mux, http.MethodGet, "/stats", "")
				So(stats.Body.String(), ShouldContainSubstring, `"installationId":"install-http"`)
				metricsBody := do(mux, http.MethodGet, "/metrics", "").Body.String()
				So(metricsBody, ShouldContainSubstring, "ascend_tour_http_requests_total")
			})
		})
	})
}

type stoppedDeps struct{}

func (stoppedDeps) SubmitEvent(context.Context, string, map[string]any, string) (types.EventResult, error) {
	return types.EventResult{}, service.ErrNotStarted
}
func (stoppedDeps) Progress(context.Context) (types.Progress, error) {
	return types.Progress{}, service.ErrNotStarted
}
func (stoppedDeps) Notification() (int, bool, error) { return 0, false, service.ErrNotStarted }
func (stoppedDeps) ClearNotification() error        { return errors.New("boom") }
func (stoppedDeps) MarkTourViewed(int) error        { return service.ErrNotStarted }
func (stoppedDeps) Badges(context.Context) (types.BadgeBoard, error) {
	return types.BadgeBoard{}, service.ErrNotStarted
}
func (stoppedDeps) RecentlyUnlocked(context.Context, time.Duration) (bool, error) {
	return false, service.ErrNotStarted
}
func (stoppedDeps) RecentWindow() time.Duration      { return 30 * time.Second }
func (stoppedDeps) GetStats() map[string]interface{} { return map[string]interface{}{"started": false} }

func TestServer_ServiceErrors(t *testing.T) {
	Convey("Given the API over a service that is not running", t, func() {
		mux := newMux(stoppedDeps{}, stoppedDeps{})

		Convey("Then reads and writes answer 503", func() {
			So(do(mux, http.MethodPost, "/events", `{"type":"job-viewed"}`).Code, ShouldEqual, http.StatusServiceUnavailable)
			So(do(mux, http.MethodGet, "/progress", "").Code, ShouldEqual, http.StatusServiceUnavailable)
			So(do(mux, http.MethodGet, "/badges", "").Code, ShouldEqual, http.StatusServiceUnavailable)
			So(do(mux, http.MethodGet, "/badges/recent", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Then unexpected failures answer 500", func() {
			w := do(mux, http.MethodDelete, "/notification", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "internal_error")
		})
	})
}

func TestWrapKind(t *testing.T) {
	Convey("Given an error wrapped with a kind", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause are reachable", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "api.op: ")
		})

		Convey("Then a nil cause yields the bare kind", func() {
			So(errors.Is(api.WrapKind("api.op", api.ErrNotFound, nil), api.ErrNotFound), ShouldBeTrue)
		})
	})
}
