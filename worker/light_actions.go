package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/action"
	"github.com/rs/xid"
)

// ErrSchedulingConflict is returned when a requested light delay cannot fit into the LightSchedule.
// Nothing is changed when it is returned
var ErrSchedulingConflict = errors.New("scheduling conflict")

// ExecuteGardenAction will execute a GardenAction
func (w *Worker) ExecuteGardenAction(ctx context.Context, g *pkg.Garden, input *action.GardenAction) error {
	err := input.Validate()
	if err != nil {
		return err
	}

	if input.Light != nil {
		err := w.ExecuteLightAction(ctx, g, input.Light)
		if err != nil {
			return fmt.Errorf("unable to execute LightAction: %w", err)
		}
	}
	if input.Stop != nil {
		err := w.ExecuteStopAction(g, input.Stop)
		if err != nil {
			return fmt.Errorf("unable to execute StopAction: %w", err)
		}
	}
	if input.Update != nil {
		err := w.ExecuteUpdateAction(g, input.Update)
		if err != nil {
			return fmt.Errorf("unable to execute UpdateAction: %w", err)
		}
	}
	return nil
}

// ExecuteStopAction sends the message over MQTT to the embedded garden controller
func (w *Worker) ExecuteStopAction(g *pkg.Garden, input *action.StopAction) error {
	return w.sendStop(g, input.All)
}

// ExecuteUpdateAction sends the Garden's ControllerConfig to the controller
func (w *Worker) ExecuteUpdateAction(g *pkg.Garden, input *action.UpdateAction) error {
	if !input.Config {
		return nil
	}
	return w.sendConfigUpdate(g)
}

// ExecuteLightAction sends an MQTT message to the garden controller to change the state of the light.
// An OFF with ForDuration also delays the light turning back on. The delay is checked before anything
// is sent
func (w *Worker) ExecuteLightAction(ctx context.Context, g *pkg.Garden, input *action.LightAction) error {
	err := input.Validate()
	if err != nil {
		return err
	}

	var adhocTime time.Time
	var forDuration time.Duration
	if input.ForDuration != nil {
		forDuration = input.ForDuration.Duration
		adhocTime, err = w.planLightDelay(g, forDuration)
		if err != nil {
			return err
		}
	}

	err = w.sendLight(ctx, g, input.State, forDuration)
	if err != nil {
		return err
	}

	if input.ForDuration != nil {
		err = w.applyLightDelay(ctx, g, adhocTime)
		if err != nil {
			return fmt.Errorf("unable to handle light delay: %w", err)
		}
	}
	return nil
}

// ScheduleLightDelay turns the light back on after delay without sending a command. If the light is
// currently ON it comes back on at now + delay. If it is OFF, the next ON is moved back by delay
func (w *Worker) ScheduleLightDelay(ctx context.Context, g *pkg.Garden, input *action.LightAction) error {
	if input.State != pkg.LightStateOff {
		return errors.New("unable to use delay when state is not OFF")
	}
	if input.ForDuration == nil {
		return errors.New("missing required field: for_duration")
	}

	adhocTime, err := w.planLightDelay(g, input.ForDuration.Duration)
	if err != nil {
		return err
	}
	return w.applyLightDelay(ctx, g, adhocTime)
}

// planLightDelay returns when the light should come back on after an OFF with delay
func (w *Worker) planLightDelay(g *pkg.Garden, delay time.Duration) (time.Time, error) {
	if !g.HasLightSchedule() {
		return time.Time{}, fmt.Errorf("%w: garden does not have a LightSchedule", ErrSchedulingConflict)
	}
	if delay > g.LightSchedule.Duration.Duration {
		return time.Time{}, fmt.Errorf("%w: unable to execute delay that lasts longer than light_schedule", ErrSchedulingConflict)
	}

	nextOn := w.GetNextLightTime(g, pkg.LightStateOn)
	nextOff := w.GetNextLightTime(g, pkg.LightStateOff)
	if nextOn == nil || nextOff == nil {
		return time.Time{}, fmt.Errorf("%w: light schedule is not scheduled", ErrSchedulingConflict)
	}

	// OFF coming before ON means the light is currently ON
	if nextOff.Before(*nextOn) {
		adhocTime := clock.Now().Add(delay)
		if nextOff.Before(adhocTime) {
			return time.Time{}, fmt.Errorf("%w: unable to schedule delay that extends past the light turning off", ErrSchedulingConflict)
		}
		return adhocTime, nil
	}

	return nextOn.Add(delay), nil
}

func (w *Worker) applyLightDelay(ctx context.Context, g *pkg.Garden, adhocTime time.Time) error {
	delayed := w.registry.ScheduleAdhocLightOn(g.ID, adhocTime)
	w.refreshJobsGauge()
	w.contextLogger(g, nil, nil).Info("scheduled adhoc light ON", "adhoc_on_time", adhocTime, "delayed_regular_on", delayed)

	_, err := w.storageClient.Gardens.Update(ctx, g.GetID(), func(garden *pkg.Garden) error {
		if garden.LightSchedule != nil {
			garden.LightSchedule.AdhocOnTime = &adhocTime
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to save AdhocOnTime: %w", err)
	}
	g.LightSchedule.AdhocOnTime = &adhocTime
	return nil
}

func (w *Worker) clearAdhocOnTime(ctx context.Context, gardenID xid.ID) error {
	_, err := w.storageClient.Gardens.Update(ctx, gardenID.String(), func(garden *pkg.Garden) error {
		if garden.LightSchedule != nil {
			garden.LightSchedule.AdhocOnTime = nil
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to clear AdhocOnTime: %w", err)
	}
	return nil
}

// executeLightScheduleJob runs a regular ON or OFF. A Garden that no longer has a LightSchedule has its
// light Jobs cancelled
func (w *Worker) executeLightScheduleJob(ctx context.Context, gardenID xid.ID, state pkg.LightState) error {
	g, err := w.getScheduledGarden(ctx, gardenID)
	if err != nil || g == nil {
		return err
	}
	return w.executeLightActionInScheduledJob(ctx, g, state, w.contextLogger(g, nil, nil))
}

// executeAdhocLightJob turns the light ON and clears the Garden's AdhocOnTime
func (w *Worker) executeAdhocLightJob(ctx context.Context, gardenID xid.ID) error {
	g, err := w.getScheduledGarden(ctx, gardenID)
	if err != nil || g == nil {
		return err
	}

	logger := w.contextLogger(g, nil, nil).With("adhoc", true)
	return errors.Join(
		w.executeLightActionInScheduledJob(ctx, g, pkg.LightStateOn, logger),
		w.clearAdhocOnTime(ctx, g.ID),
	)
}

func (w *Worker) getScheduledGarden(ctx context.Context, gardenID xid.ID) (*pkg.Garden, error) {
	g, err := w.storageClient.Gardens.Get(ctx, gardenID.String())
	if err != nil {
		return nil, fmt.Errorf("unable to get Garden %q: %w", gardenID, err)
	}
	if g == nil || g.EndDated() || !g.HasLightSchedule() {
		w.logger.Info("removing light jobs for Garden without LightSchedule", "garden_id", gardenID.String())
		for _, kind := range lightJobKinds {
			w.registry.Cancel(gardenID, kind)
		}
		return nil, nil
	}
	return g, nil
}

func (w *Worker) executeLightActionInScheduledJob(ctx context.Context, g *pkg.Garden, state pkg.LightState, actionLogger *slog.Logger) error {
	actionLogger = actionLogger.With("state", state.String())
	actionLogger.Info("executing LightAction")

	if g.GetNotificationClientID() != "" {
		w.sendDownNotification(ctx, g, "Light", actionLogger)
	}

	err := w.sendLight(ctx, g, state, 0)
	if err != nil {
		schedulerErrors.WithLabelValues(gardenLabels(g)...).Inc()
		if g.GetNotificationClientID() != "" {
			notifyErr := w.sendNotificationForGarden(ctx, g, fmt.Sprintf("%s: Light Action Error", g.Name), err.Error(), actionLogger)
			if notifyErr != nil {
				actionLogger.Error("unable to send light error notification", "error", notifyErr)
			}
		}
		return fmt.Errorf("error executing scheduled LightAction: %w", err)
	}

	w.sendLightActionNotification(ctx, g, state, actionLogger)
	return nil
}
