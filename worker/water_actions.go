package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/action"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/rs/xid"
)

// ExecuteZoneAction will execute a ZoneAction
func (w *Worker) ExecuteZoneAction(ctx context.Context, g *pkg.Garden, z *pkg.Zone, input *action.ZoneAction) error {
	err := input.Validate()
	if err != nil {
		return err
	}

	_, err = w.ExecuteWaterAction(ctx, g, z, input.Water)
	if err != nil {
		return fmt.Errorf("unable to execute WaterAction: %w", err)
	}
	return nil
}

// ExecuteScheduledWaterAction decides if the Zone should be watered by the WaterSchedule now. The Zone's
// SkipCount is checked first, then the ActivePeriod, then weather scaling. It returns the event ID of the
// command, or an empty string if watering was skipped
func (w *Worker) ExecuteScheduledWaterAction(ctx context.Context, g *pkg.Garden, z *pkg.Zone, ws *pkg.WaterSchedule) (string, error) {
	logger := w.contextLogger(g, z, ws)

	if z.GetSkipCount() > 0 {
		skipped := false
		updated, err := w.storageClient.Zones.Update(ctx, z.GetID(), func(zone *pkg.Zone) error {
			skipped = zone.ConsumeSkip()
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("unable to save Zone after decrementing SkipCount: %w", err)
		}
		if skipped {
			logger.Info("skipping watering Zone because of SkipCount", "skip_count", updated.GetSkipCount())
			return "", nil
		}
	}

	if !ws.IsActive(clock.Now()) {
		logger.Info("skipping watering Zone because WaterSchedule is not in its ActivePeriod")
		return "", nil
	}

	duration := w.ScaleWateringDuration(ws)
	if duration < weather.MinimumDuration {
		logger.Info("skipping watering Zone because of weather conditions", "reason", "weather_conditions_skip", "scaled_duration", duration.String())
		return "", nil
	}

	return w.sendWater(ctx, g, z, duration, pkg.WaterSourceScheduled)
}

// ExecuteWaterAction waters the Zone immediately. SkipCount and ActivePeriod do not apply. Unless
// IgnoreWeather is set, the weather control of the Zone's next active WaterSchedule scales the duration
func (w *Worker) ExecuteWaterAction(ctx context.Context, g *pkg.Garden, z *pkg.Zone, input *action.WaterAction) (string, error) {
	err := input.Validate()
	if err != nil {
		return "", err
	}

	duration := input.Duration.Duration
	if !input.IgnoreWeather {
		ws, err := w.nextActiveWaterSchedule(ctx, z)
		if err != nil {
			w.contextLogger(g, z, nil).Warn("unable to get WaterSchedules for weather scaling", "error", err)
		}
		if ws != nil && ws.HasWeatherControl() {
			duration = w.scaler.ResolveDuration(duration, ws.Interval.Duration, ws.WeatherControl)
			if duration < weather.MinimumDuration {
				w.contextLogger(g, z, ws).Info("skipping watering Zone because of weather conditions", "reason", "weather_conditions_skip")
				return "", nil
			}
		}
	}

	return w.sendWater(ctx, g, z, duration, pkg.WaterSourceManual)
}

// ExecuteWaterRoutine waters each step's Zone in order. It stops at the first step that fails
func (w *Worker) ExecuteWaterRoutine(ctx context.Context, wr *pkg.WaterRoutine) ([]string, error) {
	err := wr.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid WaterRoutine: %w", err)
	}

	eventIDs := []string{}
	for i, step := range wr.Steps {
		g, z, err := w.getGardenAndZone(ctx, step.ZoneID)
		if err != nil {
			return eventIDs, fmt.Errorf("step %d: %w", i, err)
		}

		eventID, err := w.sendWater(ctx, g, z, step.Duration.Duration, pkg.WaterSourceWaterRoutine)
		if err != nil {
			return eventIDs, fmt.Errorf("step %d: %w", i, err)
		}
		eventIDs = append(eventIDs, eventID)
	}

	w.logger.Info("executed WaterRoutine", "water_routine_id", wr.GetID(), "steps", len(eventIDs))
	return eventIDs, nil
}

// ScaleWateringDuration returns the WaterSchedule's duration after weather scaling over its Interval
func (w *Worker) ScaleWateringDuration(ws *pkg.WaterSchedule) time.Duration {
	if !ws.HasWeatherControl() {
		return ws.Duration.Duration
	}
	return w.scaler.ResolveDuration(ws.Duration.Duration, ws.Interval.Duration, ws.WeatherControl)
}

// GetNextWaterDetails describes the next time the Zone will be watered by any of its WaterSchedules
func (w *Worker) GetNextWaterDetails(ctx context.Context, z *pkg.Zone) pkg.NextWaterDetails {
	ws, err := w.nextActiveWaterSchedule(ctx, z)
	if err != nil {
		return pkg.NextWaterDetails{Message: err.Error()}
	}
	if ws == nil {
		return pkg.NextWaterDetails{Message: "no active WaterSchedules"}
	}

	return pkg.NextWaterDetails{
		Time:            w.GetNextActiveWaterTime(ws),
		Duration:        pkg.FormatDuration(w.ScaleWateringDuration(ws)),
		WaterScheduleID: &ws.ID,
	}
}

// nextActiveWaterSchedule returns the Zone's WaterSchedule that fires first inside its ActivePeriod
func (w *Worker) nextActiveWaterSchedule(ctx context.Context, z *pkg.Zone) (*pkg.WaterSchedule, error) {
	waterSchedules, err := w.storageClient.GetWaterSchedulesForZone(ctx, z)
	if err != nil {
		return nil, err
	}

	var result *pkg.WaterSchedule
	var resultTime *time.Time
	for _, ws := range waterSchedules {
		next := w.GetNextActiveWaterTime(ws)
		if next == nil {
			continue
		}
		if resultTime == nil || next.Before(*resultTime) {
			result = ws
			resultTime = next
		}
	}
	return result, nil
}

// executeWaterScheduleJob runs the WaterSchedule for every Zone that uses it. A missing or end-dated
// WaterSchedule cancels its Job
func (w *Worker) executeWaterScheduleJob(ctx context.Context, id xid.ID) error {
	ws, err := w.storageClient.WaterSchedules.Get(ctx, id.String())
	if err != nil {
		return fmt.Errorf("unable to get WaterSchedule %q: %w", id, err)
	}
	if ws == nil || ws.EndDated() {
		w.logger.Info("removing job for missing or end-dated WaterSchedule", "water_schedule_id", id.String())
		w.registry.Cancel(id, JobKindWater)
		return nil
	}

	zones, err := w.storageClient.GetZonesUsingWaterSchedule(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("unable to get Zones for WaterSchedule: %w", err)
	}

	var errs []error
	for _, zg := range zones {
		_, err = w.ExecuteScheduledWaterAction(ctx, zg.Garden, zg.Zone, ws)
		if err != nil {
			schedulerErrors.WithLabelValues(zoneLabels(zg.Zone)...).Inc()
			errs = append(errs, fmt.Errorf("zone %q: %w", zg.Zone.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Worker) getGardenAndZone(ctx context.Context, zoneID xid.ID) (*pkg.Garden, *pkg.Zone, error) {
	z, err := w.storageClient.Zones.Get(ctx, zoneID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to get Zone %q: %w", zoneID, err)
	}
	if z == nil || z.EndDated() {
		return nil, nil, fmt.Errorf("zone %q not found", zoneID)
	}

	g, err := w.storageClient.Gardens.Get(ctx, z.GardenID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to get Garden %q: %w", z.GardenID, err)
	}
	if g == nil || g.EndDated() {
		return nil, nil, fmt.Errorf("garden %q not found", z.GardenID)
	}
	return g, z, nil
}
