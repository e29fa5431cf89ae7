package worker

import (
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/recurrence"
	"github.com/rs/xid"
)

// lightingInterval is the cadence of every light schedule
const lightingInterval = 24 * time.Hour

// JobKind identifies what a Job does when it fires
type JobKind string

const (
	// JobKindWater waters every Zone using a WaterSchedule
	JobKindWater JobKind = "water"
	// JobKindLightOn is the daily ON of a Garden's LightSchedule
	JobKindLightOn JobKind = "light_on"
	// JobKindLightOff is the daily OFF of a Garden's LightSchedule
	JobKindLightOff JobKind = "light_off"
	// JobKindAdhocLightOn is a one-time ON created by a light delay
	JobKindAdhocLightOn JobKind = "adhoc_light_on"
	// JobKindDowntimeCheck reports a Garden as down if no health message arrives before it fires
	JobKindDowntimeCheck JobKind = "downtime_check"
)

// Recurring is true for kinds that are rescheduled after firing
func (k JobKind) Recurring() bool {
	switch k {
	case JobKindWater, JobKindLightOn, JobKindLightOff:
		return true
	default:
		return false
	}
}

// JobKey identifies a Job. Target is a WaterSchedule ID for water jobs and a Garden ID for the rest
type JobKey struct {
	Target xid.ID
	Kind   JobKind
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.Target)
}

// Job is a scheduled trigger. Recurring jobs fire at Base plus a whole number of IntervalDays.
// DelayedFrom is set when a recurring occurrence was pushed back and holds the original fire time
type Job struct {
	JobKey
	NextFire     time.Time
	Base         time.Time
	IntervalDays int
	DelayedFrom  *time.Time

	seq uint64
}

// newRecurringJob creates a Job whose first fire time is the next occurrence after now
func newRecurringJob(target xid.ID, kind JobKind, base time.Time, intervalDays int, now time.Time) Job {
	return Job{
		JobKey:       JobKey{Target: target, Kind: kind},
		NextFire:     recurrence.NextOccurrence(base, intervalDays, now),
		Base:         base,
		IntervalDays: intervalDays,
	}
}

// newOneTimeJob creates a Job that fires once at t
func newOneTimeJob(target xid.ID, kind JobKind, t time.Time) Job {
	return Job{
		JobKey:   JobKey{Target: target, Kind: kind},
		NextFire: t,
	}
}

// Next returns the Job for the first occurrence strictly after now. Any delay is dropped so the
// regular cadence resumes. A one-time Job is returned unchanged
func (j Job) Next(now time.Time) Job {
	if !j.Kind.Recurring() {
		return j
	}
	j.NextFire = recurrence.NextOccurrence(j.Base, j.IntervalDays, now)
	j.DelayedFrom = nil
	return j
}

// Upcoming returns the next n fire times of the Job starting with NextFire
func (j Job) Upcoming(n int) []time.Time {
	if n <= 0 {
		return nil
	}
	result := []time.Time{j.NextFire}
	if !j.Kind.Recurring() {
		return result
	}
	return append(result, recurrence.Upcoming(j.Base, j.IntervalDays, j.NextFire, n-1)...)
}

// DelayJob returns a copy of the Job that fires d later. The original fire time is kept in DelayedFrom
func DelayJob(j Job, d time.Duration) Job {
	if j.DelayedFrom == nil {
		original := j.NextFire
		j.DelayedFrom = &original
	}
	j.NextFire = j.NextFire.Add(d)
	return j
}
