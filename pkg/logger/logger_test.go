package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	convey.Convey("Given a logger writing JSON to a buffer", t, func() {
		var buf bytes.Buffer
		convey.So(Init(WithWriter(&buf), WithJSON()), convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When logging with typed fields", func() {
			Named("controller").Info(ctx, "level unlocked",
				Int("unlocked_level", 3),
				Bool("notified", true),
				Duration("ttl", 10*time.Second),
				Error(errors.New("boom")),
			)

			convey.Convey("Then the line carries every field and the component name", func() {
				var line map[string]any
				convey.So(json.Unmarshal(buf.Bytes(), &line), convey.ShouldBeNil)
				convey.So(line["msg"], convey.ShouldEqual, "level unlocked")
				convey.So(line["component"], convey.ShouldEqual, "controller")
				convey.So(line["unlocked_level"], convey.ShouldEqual, float64(3))
				convey.So(line["notified"], convey.ShouldEqual, true)
				convey.So(line["error"], convey.ShouldEqual, "boom")
				convey.So(line["source"], convey.ShouldContainSubstring, "logger_test.go")
			})
		})

		convey.Convey("When the level is raised to warn", func() {
			convey.So(SetLevelString("warn"), convey.ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			convey.Convey("Then only the warning is written", func() {
				convey.So(buf.String(), convey.ShouldNotContainSubstring, "hidden")
				convey.So(buf.String(), convey.ShouldContainSubstring, "shown")
			})
		})

		convey.Reset(func() { _ = Init() })
	})
}

func TestSetLevelString(t *testing.T) {
	convey.Convey("Given level names", t, func() {
		for _, lvl := range []string{"debug", "info", "", "WARN", "warning", "error"} {
			convey.So(SetLevelString(lvl), convey.ShouldBeNil)
		}
		err := SetLevelString("verbose")
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(strings.Contains(err.Error(), "verbose"), convey.ShouldBeTrue)
		_ = SetLevelString("info")
	})
}
