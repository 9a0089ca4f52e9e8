package epoch_test

import (
	"testing"
	"time"

	"github.com/okian/roost/internal/domain/epoch"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolverDay(t *testing.T) {
	Convey("Given a resolver with origin 0 and the default day length", t, func() {
		r := epoch.New()

		Convey("Then the rollover boundary is exact", func() {
			So(r.Day(time.Unix(0, 0)), ShouldEqual, 0)
			So(r.Day(time.Unix(86399, 0)), ShouldEqual, 0)
			So(r.Day(time.Unix(86400, 0)), ShouldEqual, 1)
			So(r.Day(time.Unix(86401, 0)), ShouldEqual, 1)
			So(r.Day(time.Unix(7*86400, 0)), ShouldEqual, 7)
		})

		Convey("Then times before the origin clamp to day 0", func() {
			So(r.Day(time.Unix(-1, 0)), ShouldEqual, 0)
		})
	})

	Convey("Given a resolver with a non-zero origin", t, func() {
		r := epoch.New(epoch.WithOrigin(1_000_000))

		Convey("Then day indexing shifts with the origin", func() {
			So(r.Day(time.Unix(1_000_000, 0)), ShouldEqual, 0)
			So(r.Day(time.Unix(1_000_000+86399, 0)), ShouldEqual, 0)
			So(r.Day(time.Unix(1_000_000+86400, 0)), ShouldEqual, 1)
		})
	})
}

func TestResolverWindow(t *testing.T) {
	Convey("Given a resolver with origin 0", t, func() {
		r := epoch.New()

		Convey("When asking for a day window", func() {
			start, end := r.Window(2)

			Convey("Then the window is a half-open day-length interval", func() {
				So(start.Unix(), ShouldEqual, 2*86400)
				So(end.Unix(), ShouldEqual, 3*86400)
				So(end.Sub(start), ShouldEqual, r.DayLength())
			})
		})

		Convey("When computing remaining time", func() {
			Convey("Then an open day reports the time left", func() {
				now := time.Unix(86400+100, 0)
				So(r.Remaining(1, now), ShouldEqual, (86400-100)*time.Second)
			})

			Convey("Then a closed day reports zero", func() {
				So(r.Remaining(0, time.Unix(2*86400, 0)), ShouldEqual, 0)
			})
		})
	})
}

func TestResolverCustomDayLength(t *testing.T) {
	Convey("Given a resolver with a one-hour day", t, func() {
		r := epoch.New(epoch.WithDayLength(time.Hour))

		Convey("Then indexing follows the shorter window", func() {
			So(r.Day(time.Unix(3599, 0)), ShouldEqual, 0)
			So(r.Day(time.Unix(3600, 0)), ShouldEqual, 1)
			So(r.DayLength(), ShouldEqual, time.Hour)
		})
	})
}
