package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
)

const notificationClientIDLogField = "notification_client_id"

// sendNotificationForGarden sends a message with the Garden's notification client. It does nothing if the
// Garden does not have one
func (w *Worker) sendNotificationForGarden(ctx context.Context, g *pkg.Garden, title, message string, logger *slog.Logger) error {
	if g.GetNotificationClientID() == "" {
		logger.Info("garden does not have notification client", "garden_id", g.GetID())
		return nil
	}
	logger = logger.With(notificationClientIDLogField, g.GetNotificationClientID())

	notificationClient, err := w.storageClient.NotificationClientConfigs.Get(ctx, g.GetNotificationClientID())
	if err != nil {
		return fmt.Errorf("error getting notification client: %w", err)
	}
	if notificationClient == nil || notificationClient.EndDated() {
		return fmt.Errorf("notification client %q not found", g.GetNotificationClientID())
	}

	err = notificationClient.SendMessage(ctx, logger, title, message)
	if err != nil {
		logger.Error("error sending message", "error", err)
		return err
	}

	logger.Info("successfully sent notification", "title", title)
	return nil
}

func (w *Worker) sendLightActionNotification(ctx context.Context, g *pkg.Garden, state pkg.LightState, logger *slog.Logger) {
	if !g.GetNotificationSettings().LightSchedule {
		return
	}

	title := fmt.Sprintf("%s: Light %s", g.Name, state.String())
	err := w.sendNotificationForGarden(ctx, g, title, "Successfully executed LightAction", logger)
	if err != nil {
		logger.Error("unable to send light notification", "error", err)
	}
}

// sendDownNotification warns that an action is running while the Garden is not UP
func (w *Worker) sendDownNotification(ctx context.Context, g *pkg.Garden, actionName string, logger *slog.Logger) {
	health := w.GetGardenHealth(ctx, g)
	if health.IsUp() {
		return
	}

	title := fmt.Sprintf("%s: %s", g.Name, health.Status)
	message := fmt.Sprintf("attempting to execute %s Action, but Garden is %s: %s", actionName, health.Status, health.Details)
	err := w.sendNotificationForGarden(ctx, g, title, message, logger)
	if err != nil {
		logger.Error("unable to send down notification", "error", err)
	}
}

// handleWaterEvent notifies when a controller starts or finishes watering a Zone
func (w *Worker) handleWaterEvent(ctx context.Context, g *pkg.Garden, event influxdb.Event) error {
	settings := g.GetNotificationSettings()
	started := event.Status == string(pkg.WaterStatusStarted)
	if (started && !settings.WateringStarted) || (!started && !settings.WateringCompleted) {
		return nil
	}

	logger := w.contextLogger(g, nil, nil).With("event_id", event.EventID, "status", event.Status)

	z, err := w.storageClient.Zones.Get(ctx, event.ZoneID)
	if err != nil {
		return fmt.Errorf("error getting zone %s: %w", event.ZoneID, err)
	}
	if z == nil && event.Position != nil {
		z, err = w.storageClient.GetZoneByPosition(ctx, g.ID, *event.Position)
		if err != nil {
			return err
		}
	}
	if z == nil {
		return fmt.Errorf("no zone found for water event %q", event.EventID)
	}
	logger = logger.With("zone_id", z.GetID())

	duration := pkg.FormatDuration(time.Duration(event.Millis) * time.Millisecond)
	title := fmt.Sprintf("%s finished watering", z.Name)
	message := fmt.Sprintf("watered for %s", duration)
	if started {
		title = fmt.Sprintf("%s started watering", z.Name)
		message = fmt.Sprintf("watering for %s", duration)
	}
	return w.sendNotificationForGarden(ctx, g, title, message, logger)
}

// handleLogsEvent notifies when a controller reports that it started up
func (w *Worker) handleLogsEvent(ctx context.Context, g *pkg.Garden, msg string) error {
	if msg != controllerStartupMessage {
		return nil
	}

	logger := w.contextLogger(g, nil, nil)
	if !g.GetNotificationSettings().ControllerStartup {
		logger.Debug("garden does not have controller_startup notification enabled")
		return nil
	}

	title := fmt.Sprintf("%s connected", g.Name)
	return w.sendNotificationForGarden(ctx, g, title, msg, logger)
}
