package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/recurrence"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/rs/xid"
)

// maxActiveSearch bounds how many occurrences are checked when looking for one inside an ActivePeriod
const maxActiveSearch = 2 * 366

var lightJobKinds = []JobKind{JobKindLightOn, JobKindLightOff, JobKindAdhocLightOn}

// Initialize builds Jobs for every active WaterSchedule and every active Garden with a LightSchedule.
// It can be called repeatedly: existing Jobs are replaced and Jobs for removed resources are cancelled.
// A resource that cannot be scheduled is logged and skipped
func (w *Worker) Initialize(ctx context.Context) error {
	waterSchedules, err := w.storageClient.WaterSchedules.GetAll(ctx, storage.FilterEndDated[*pkg.WaterSchedule](false))
	if err != nil {
		return fmt.Errorf("unable to get WaterSchedules: %w", err)
	}

	waterTargets := map[xid.ID]bool{}
	for _, ws := range waterSchedules {
		err = w.ScheduleWaterAction(ws)
		if err != nil {
			w.contextLogger(nil, nil, ws).Error("unable to schedule WaterSchedule", "error", err)
			schedulerErrors.WithLabelValues(waterScheduleLabels(ws)...).Inc()
			continue
		}
		waterTargets[ws.ID] = true
	}

	gardens, err := w.storageClient.Gardens.GetAll(ctx, storage.FilterEndDated[*pkg.Garden](false))
	if err != nil {
		return fmt.Errorf("unable to get Gardens: %w", err)
	}

	lightTargets := map[xid.ID]bool{}
	for _, g := range gardens {
		if !g.HasLightSchedule() {
			continue
		}
		err = w.ScheduleLightActions(ctx, g)
		if err != nil {
			w.contextLogger(g, nil, nil).Error("unable to schedule LightSchedule", "error", err)
			schedulerErrors.WithLabelValues(gardenLabels(g)...).Inc()
			continue
		}
		lightTargets[g.ID] = true
	}

	for _, job := range w.registry.Jobs() {
		switch job.Kind {
		case JobKindWater:
			if !waterTargets[job.Target] {
				w.registry.Cancel(job.Target, job.Kind)
			}
		case JobKindLightOn, JobKindLightOff, JobKindAdhocLightOn:
			if !lightTargets[job.Target] {
				w.registry.Cancel(job.Target, job.Kind)
			}
		}
	}

	w.refreshJobsGauge()
	w.logger.Info("initialized scheduled jobs", "count", w.registry.Len())
	return nil
}

// StopAllJobs cancels every scheduled Job
func (w *Worker) StopAllJobs() {
	w.registry.Clear()
	w.refreshJobsGauge()
}

// ScheduleWaterAction will schedule water actions for the WaterSchedule based off its StartTime, StartDate
// and Interval. Any existing Job for the WaterSchedule is replaced
func (w *Worker) ScheduleWaterAction(ws *pkg.WaterSchedule) error {
	err := ws.Validate()
	if err != nil {
		return fmt.Errorf("invalid WaterSchedule: %w", err)
	}

	now := clock.Now()
	job := w.registry.Upsert(newRecurringJob(ws.ID, JobKindWater, ws.Anchor(registeredAt(ws.ID, now)), ws.IntervalDays(), now))

	w.contextLogger(nil, nil, ws).Info("scheduled WaterSchedule", "next_fire", job.NextFire)
	w.refreshJobsGauge()
	return nil
}

// ResetWaterSchedule reschedules the WaterSchedule after it changes, or cancels it if it is end-dated
func (w *Worker) ResetWaterSchedule(ws *pkg.WaterSchedule) error {
	if ws.EndDated() {
		w.RemoveJobsByID(ws.ID)
		return nil
	}
	return w.ScheduleWaterAction(ws)
}

// ScheduleLightActions creates the daily ON and OFF Jobs for the Garden. A pending AdhocOnTime is scheduled
// again, or cleared if it already passed
func (w *Worker) ScheduleLightActions(ctx context.Context, g *pkg.Garden) error {
	if !g.HasLightSchedule() {
		return errors.New("garden does not have a LightSchedule")
	}
	err := g.LightSchedule.Validate()
	if err != nil {
		return fmt.Errorf("invalid LightSchedule: %w", err)
	}

	now := clock.Now()
	onBase := g.LightSchedule.StartTime.OnDate(now, w.location)
	offBase := onBase.Add(g.LightSchedule.Duration.Duration)
	// Yesterday's ON is still lit when its OFF has not happened yet
	if prevOff := offBase.Add(-24 * time.Hour); prevOff.After(now) {
		onBase = onBase.AddDate(0, 0, -1)
		offBase = onBase.Add(g.LightSchedule.Duration.Duration)
	}

	on := w.registry.Upsert(newRecurringJob(g.ID, JobKindLightOn, onBase, 1, now))
	off := w.registry.Upsert(newRecurringJob(g.ID, JobKindLightOff, offBase, 1, now))
	logger := w.contextLogger(g, nil, nil)
	logger.Info("scheduled LightSchedule", "next_on", on.NextFire, "next_off", off.NextFire)

	adhocTime := g.LightSchedule.AdhocOnTime
	switch {
	case adhocTime == nil:
		w.registry.Cancel(g.ID, JobKindAdhocLightOn)
	case !adhocTime.After(now):
		w.registry.Cancel(g.ID, JobKindAdhocLightOn)
		logger.Info("clearing AdhocOnTime that already passed", "adhoc_on_time", *adhocTime)
		err = w.clearAdhocOnTime(ctx, g.ID)
		if err != nil {
			return err
		}
	default:
		delayed := w.registry.ScheduleAdhocLightOn(g.ID, *adhocTime)
		logger.Info("scheduled adhoc light ON", "adhoc_on_time", *adhocTime, "delayed_regular_on", delayed)
	}

	w.refreshJobsGauge()
	return nil
}

// ResetLightSchedule replaces the Garden's light Jobs after it changes
func (w *Worker) ResetLightSchedule(ctx context.Context, g *pkg.Garden) error {
	for _, kind := range lightJobKinds {
		w.registry.Cancel(g.ID, kind)
	}
	w.refreshJobsGauge()

	if g.EndDated() || !g.HasLightSchedule() {
		return nil
	}
	return w.ScheduleLightActions(ctx, g)
}

// RemoveJobsByID cancels every Job for the WaterSchedule or Garden
func (w *Worker) RemoveJobsByID(id xid.ID) {
	count := w.registry.CancelTarget(id)
	w.logger.Info("removed scheduled jobs", "id", id.String(), "count", count)
	w.refreshJobsGauge()
}

// Tick runs every Job that is due at now in fire time order and then reschedules it. A failing Job is logged
// and does not stop the others. A Job cancelled while the tick is running still finishes
func (w *Worker) Tick(ctx context.Context, now time.Time) {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	due := w.registry.ListDue(now)
	if len(due) == 0 {
		return
	}

	for _, job := range due {
		logger := w.logger.With("job", job.String(), "fire_time", job.NextFire)
		logger.Debug("executing job")

		err := w.runJob(ctx, job)
		if err != nil {
			logger.Error("error executing job", "error", err)
			schedulerErrors.WithLabelValues(jobLabels(job)...).Inc()
		}

		next, scheduled := w.registry.Complete(job, now)
		if scheduled {
			logger.Debug("rescheduled job", "next_fire", next.NextFire)
		}
	}

	w.refreshJobsGauge()
}

func (w *Worker) runJob(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobKindWater:
		return w.executeWaterScheduleJob(ctx, job.Target)
	case JobKindLightOn:
		return w.executeLightScheduleJob(ctx, job.Target, pkg.LightStateOn)
	case JobKindLightOff:
		return w.executeLightScheduleJob(ctx, job.Target, pkg.LightStateOff)
	case JobKindAdhocLightOn:
		return w.executeAdhocLightJob(ctx, job.Target)
	case JobKindDowntimeCheck:
		return w.executeDowntimeCheck(ctx, job.Target)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// GetNextWaterTime returns the next time the WaterSchedule fires, ignoring its ActivePeriod
func (w *Worker) GetNextWaterTime(ws *pkg.WaterSchedule) *time.Time {
	return w.registry.NextFireTime(ws.ID, JobKindWater)
}

// GetNextActiveWaterTime returns the next time the WaterSchedule fires inside its ActivePeriod
func (w *Worker) GetNextActiveWaterTime(ws *pkg.WaterSchedule) *time.Time {
	job, ok := w.registry.Get(ws.ID, JobKindWater)
	if !ok {
		return nil
	}

	next := job.NextFire
	for i := 0; i < maxActiveSearch; i++ {
		if ws.IsActive(next) {
			return &next
		}
		next = recurrence.NextOccurrence(job.Base, job.IntervalDays, next)
	}
	return nil
}

// GetNextLightTime returns the next time the light is set to the state. A pending adhoc ON is used when
// it comes before the regular ON
func (w *Worker) GetNextLightTime(g *pkg.Garden, state pkg.LightState) *time.Time {
	switch state {
	case pkg.LightStateOn:
		on := w.registry.NextFireTime(g.ID, JobKindLightOn)
		adhoc := w.registry.NextFireTime(g.ID, JobKindAdhocLightOn)
		if adhoc != nil && (on == nil || adhoc.Before(*on)) {
			return adhoc
		}
		return on
	case pkg.LightStateOff:
		return w.registry.NextFireTime(g.ID, JobKindLightOff)
	default:
		return nil
	}
}

func (w *Worker) refreshJobsGauge() {
	scheduleJobsGauge.Reset()
	for _, job := range w.registry.Jobs() {
		scheduleJobsGauge.WithLabelValues(jobLabels(job)...).Set(1)
	}
}

// registeredAt is the day a schedule's cadence starts when it has no StartDate. The ID's creation time is
// used so the cadence stays the same every time the schedule is registered
func registeredAt(id xid.ID, now time.Time) time.Time {
	if id.IsNil() || id.Time().After(now) {
		return now
	}
	return id.Time()
}
