package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/action"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/mqtt"
	"github.com/rs/xid"
)

var errNoMQTTClient = errors.New("MQTT client is not configured")

// sendWater publishes a water command for the Zone and records it. The returned event ID is echoed by the
// controller in its water events
func (w *Worker) sendWater(ctx context.Context, g *pkg.Garden, z *pkg.Zone, duration time.Duration, source pkg.WaterSource) (string, error) {
	if z.Position == nil {
		return "", fmt.Errorf("zone %q does not have a position", z.ID)
	}

	eventID := xid.New().String()
	msg, err := json.Marshal(action.WaterMessage{
		Duration: duration.Milliseconds(),
		ZoneID:   z.ID.String(),
		Position: *z.Position,
		EventID:  eventID,
		Source:   source,
	})
	if err != nil {
		return "", fmt.Errorf("unable to marshal WaterMessage to JSON: %w", err)
	}

	err = w.publish(mqtt.WaterTopic, g.TopicPrefix, msg)
	if err != nil {
		return "", fmt.Errorf("unable to publish WaterMessage: %w", err)
	}

	logger := w.contextLogger(g, z, nil).With("event_id", eventID, "source", string(source))
	logger.Info("sent water command", "duration", duration.String())

	w.writeCommand(ctx, influxdb.Command{
		TopicPrefix: g.TopicPrefix,
		Kind:        "water",
		EventID:     eventID,
		ZoneID:      z.ID.String(),
		Position:    z.Position,
		Source:      string(source),
		Duration:    duration,
		Time:        clock.Now(),
	})
	return eventID, nil
}

// sendLight publishes a light command. A positive forDuration delays the following ON on the controller
func (w *Worker) sendLight(ctx context.Context, g *pkg.Garden, state pkg.LightState, forDuration time.Duration) error {
	msg, err := json.Marshal(action.LightMessage{
		State:       state,
		ForDuration: forDuration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("unable to marshal LightMessage to JSON: %w", err)
	}

	err = w.publish(mqtt.LightTopic, g.TopicPrefix, msg)
	if err != nil {
		return fmt.Errorf("unable to publish LightMessage: %w", err)
	}

	w.writeCommand(ctx, influxdb.Command{
		TopicPrefix: g.TopicPrefix,
		Kind:        "light",
		EventID:     xid.New().String(),
		Duration:    forDuration,
		State:       state.String(),
		Time:        clock.Now(),
	})
	return nil
}

// sendStop publishes a stop command. With all set the controller also drops its queued waterings
func (w *Worker) sendStop(g *pkg.Garden, all bool) error {
	topicFunc := mqtt.StopTopic
	if all {
		topicFunc = mqtt.StopAllTopic
	}
	return w.publish(topicFunc, g.TopicPrefix, []byte(action.StopMessage))
}

// sendConfigUpdate publishes the Garden's ControllerConfig
func (w *Worker) sendConfigUpdate(g *pkg.Garden) error {
	msg, err := json.Marshal(g.ControllerConfigMessage())
	if err != nil {
		return fmt.Errorf("unable to marshal ControllerConfigMessage to JSON: %w", err)
	}
	return w.publish(mqtt.UpdateConfigTopic, g.TopicPrefix, msg)
}

func (w *Worker) publish(topicFunc func(string) (string, error), topicPrefix string, msg []byte) error {
	mqttClient := w.publisher()
	if mqttClient == nil {
		return errNoMQTTClient
	}

	topic, err := topicFunc(topicPrefix)
	if err != nil {
		return fmt.Errorf("unable to fill MQTT topic template: %w", err)
	}
	return mqttClient.Publish(topic, msg)
}

// writeCommand records a command that was already published. Failures only affect history so they are logged
func (w *Worker) writeCommand(ctx context.Context, cmd influxdb.Command) {
	if w.influxdbClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, influxdb.QueryTimeout)
	defer cancel()

	err := w.influxdbClient.WriteCommand(ctx, cmd)
	if err != nil {
		w.logger.Error("unable to record command", "topic_prefix", cmd.TopicPrefix, "kind", cmd.Kind, "event_id", cmd.EventID, "error", err)
	}
}
