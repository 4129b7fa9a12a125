package logger_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("Get initializes lazily and never returns nil", func() {
			l := logger.Get()
			So(l, ShouldNotBeNil)
			So(logger.Get(), ShouldEqual, l)
		})

		Convey("Named loggers log without panicking at every level", func() {
			ctx := context.Background()
			l := logger.Named("test")
			So(func() {
				l.Debug(ctx, "debug", logger.String("k", "v"))
				l.Info(ctx, "info", logger.Int("n", 1))
				l.Warn(ctx, "warn", logger.Float64("f", 1.5))
				l.Error(ctx, "error", logger.Error(context.Canceled))
			}, ShouldNotPanic)
		})

		Convey("Level names parse case-insensitively", func() {
			for _, lvl := range []string{"debug", "INFO", "warn", "Warning", "error", ""} {
				So(logger.SetLevelString(lvl), ShouldBeNil)
			}
			So(logger.SetLevelString("verbose"), ShouldNotBeNil)
			So(logger.SetLevelString("info"), ShouldBeNil)
		})

		Convey("Init resets the global logger", func() {
			So(logger.Init(), ShouldBeNil)
			So(logger.Get(), ShouldNotBeNil)
			So(logger.Sync(), ShouldBeNil)
		})
	})
}
