// Package clock wraps a swappable wall clock so the scheduler, weather cache and
// notification timers can be driven deterministically in tests.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron"
)

// Clock adapts a benbjohnson clock to gocron's TimeWrapper so the tick driver
// follows the same time source as everything else
type Clock struct {
	clock.Clock
}

// DefaultClock is the process-wide time source. Tests replace it with MockTime
var DefaultClock = Clock{clock.New()}

var _ gocron.TimeWrapper = Clock{}

// Now returns the current time in loc
func (c Clock) Now(loc *time.Location) time.Time {
	return c.Clock.Now().In(loc)
}

// Unix mirrors time.Unix in the location of the current clock
func (c Clock) Unix(sec int64, nsec int64) time.Time {
	return time.Unix(sec, nsec).In(c.Clock.Now().Location())
}

// Now returns the current time of the DefaultClock
func Now() time.Time {
	return DefaultClock.Clock.Now()
}

// Since returns the time elapsed since t according to the DefaultClock
func Since(t time.Time) time.Duration {
	return DefaultClock.Clock.Since(t)
}

// MockTime replaces the DefaultClock with a mock fixed at 2023-08-23T10:00:00Z
func MockTime() *clock.Mock {
	return MockTimeAt(time.Date(2023, time.August, 23, 10, 0, 0, 0, time.UTC))
}

// MockTimeAt replaces the DefaultClock with a mock fixed at t
func MockTimeAt(t time.Time) *clock.Mock {
	mock := clock.NewMock()
	mock.Set(t)
	DefaultClock = Clock{Clock: mock}
	return mock
}

// Reset returns the DefaultClock to real time
func Reset() {
	DefaultClock = Clock{clock.New()}
}
