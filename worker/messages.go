package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/mqtt"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// controllerStartupMessage is logged by a controller once it is connected and configured
const controllerStartupMessage = "garden-controller setup complete"

// TopicHandlers returns the subscriptions for every topic controllers publish data on
func (w *Worker) TopicHandlers() []mqtt.TopicHandler {
	handlers := make([]mqtt.TopicHandler, 0, len(mqtt.DataTopics))
	for _, topic := range mqtt.DataTopics {
		handlers = append(handlers, mqtt.TopicHandler{
			Topic:   topic,
			Handler: w.handleDataMessage,
		})
	}
	return handlers
}

func (w *Worker) handleDataMessage(_ paho.Client, msg paho.Message) {
	err := w.HandleDataMessage(context.Background(), msg.Topic(), msg.Payload())
	if err != nil {
		w.logger.With("topic", msg.Topic(), "message", string(msg.Payload()), "error", err).Error("error handling message")
	}
}

// HandleDataMessage parses a message from a controller, records it, and sends any notifications it causes.
// An error means the message was dropped
func (w *Worker) HandleDataMessage(ctx context.Context, topic string, payload []byte) error {
	topicPrefix, kind, ok := mqtt.ParseDataTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected topic %q", topic)
	}

	garden, err := w.storageClient.GetGardenByTopicPrefix(ctx, topicPrefix)
	if err != nil {
		return fmt.Errorf("error getting garden with topic-prefix %q: %w", topicPrefix, err)
	}
	if garden == nil {
		return fmt.Errorf("no garden found with topic-prefix %q", topicPrefix)
	}

	event, err := parseEvent(topicPrefix, kind, payload)
	if err != nil {
		return fmt.Errorf("error parsing %s message: %w", kind, err)
	}
	event.Time = clock.Now()

	logger := w.contextLogger(garden, nil, nil).With("topic", topic)
	logger.Debug("received message", "message", string(payload))

	w.writeEvent(ctx, event)

	switch kind {
	case "health":
		w.handleHealthEvent(garden)
	case "water":
		return w.handleWaterEvent(ctx, garden, event)
	case "logs":
		return w.handleLogsEvent(ctx, garden, event.Message)
	}
	return nil
}

func (w *Worker) writeEvent(ctx context.Context, event influxdb.Event) {
	if w.influxdbClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, influxdb.QueryTimeout)
	defer cancel()

	err := w.influxdbClient.WriteEvent(ctx, event)
	if err != nil {
		w.logger.Error("unable to record event", "topic_prefix", event.TopicPrefix, "kind", event.Kind, "error", err)
	}
}

func parseEvent(topicPrefix, kind string, payload []byte) (influxdb.Event, error) {
	event := influxdb.Event{TopicPrefix: topicPrefix, Kind: kind}

	switch kind {
	case "health":
		if !checkHealthMessage(topicPrefix, string(payload)) {
			return event, fmt.Errorf("unexpected health message %q", string(payload))
		}
	case "temperature", "humidity":
		value, err := parseValueMessage(kind, payload)
		if err != nil {
			return event, err
		}
		event.Value = value
	case "water":
		msg, err := parseWaterMessage(payload)
		if err != nil {
			return event, err
		}
		event.Status = string(msg.Status)
		event.EventID = msg.EventID
		event.ZoneID = msg.ZoneID
		event.Position = &msg.Position
		event.Millis = msg.Millis
	case "light":
		state, err := parseLightMessage(payload)
		if err != nil {
			return event, err
		}
		event.State = state.String()
	case "logs":
		msg, err := parseLogsMessage(payload)
		if err != nil {
			return event, err
		}
		event.Message = msg
	default:
		return event, fmt.Errorf("unknown data kind %q", kind)
	}
	return event, nil
}

// waterEvent is a controller's report about a water command
type waterEvent struct {
	Status   pkg.WaterStatus
	Position uint
	ZoneID   string
	EventID  string
	Millis   int64
}

// parseWaterMessage reads 'water,status=start,zone=0,zone_id="id",id="eventID" millis=6000'. Older
// controllers only report completion and do not send a status
func parseWaterMessage(payload []byte) (waterEvent, error) {
	tags, fields, err := parseLineProtocol("water", payload)
	if err != nil {
		return waterEvent{}, err
	}

	result := waterEvent{Status: pkg.WaterStatusCompleted}
	for key, val := range tags {
		switch key {
		case "status":
			switch pkg.WaterStatus(val) {
			case pkg.WaterStatusStarted, pkg.WaterStatusCompleted:
				result.Status = pkg.WaterStatus(val)
			default:
				return waterEvent{}, fmt.Errorf("invalid status %q", val)
			}
		case "zone":
			position, err := strconv.ParseUint(val, 10, 0)
			if err != nil {
				return waterEvent{}, fmt.Errorf("invalid integer for position: %w", err)
			}
			result.Position = uint(position)
		case "id":
			result.EventID = val
		case "zone_id":
			result.ZoneID = val
		}
	}

	millis, ok := fields["millis"]
	if !ok {
		return waterEvent{}, errors.New("missing required field: millis")
	}
	result.Millis, err = strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return waterEvent{}, fmt.Errorf("invalid integer for millis: %w", err)
	}
	if _, ok := tags["zone"]; !ok {
		return waterEvent{}, errors.New("missing required field: zone")
	}

	return result, nil
}

// parseValueMessage reads '<measurement> value=<float>'
func parseValueMessage(measurement string, payload []byte) (float64, error) {
	_, fields, err := parseLineProtocol(measurement, payload)
	if err != nil {
		return 0, err
	}

	value, ok := fields["value"]
	if !ok {
		return 0, errors.New("missing required field: value")
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for value: %w", err)
	}
	return result, nil
}

// parseLightMessage reads '{"state": "ON"}'
func parseLightMessage(payload []byte) (pkg.LightState, error) {
	var msg struct {
		State pkg.LightState `json:"state"`
	}
	err := json.Unmarshal(payload, &msg)
	if err != nil {
		return 0, err
	}
	return msg.State, nil
}

// parseLogsMessage reads 'logs message="<text>"'
func parseLogsMessage(payload []byte) (string, error) {
	_, fields, err := parseLineProtocol("logs", payload)
	if err != nil {
		return "", err
	}
	msg, ok := fields["message"]
	if !ok {
		return "", errors.New("missing required field: message")
	}
	return msg, nil
}

// message format: 'health garden="{{ TopicPrefix }}"'
func checkHealthMessage(topicPrefix, msg string) bool {
	return topicPrefix != "" && msg == fmt.Sprintf(`health garden="%s"`, topicPrefix)
}

// parseLineProtocol splits 'measurement,tag=a,tag=b field=1,field="x"' into tags and fields. Quotes
// around values are removed
func parseLineProtocol(measurement string, payload []byte) (map[string]string, map[string]string, error) {
	payload = bytes.TrimSpace(payload)
	rest, found := bytes.CutPrefix(payload, []byte(measurement))
	if !found {
		return nil, nil, fmt.Errorf("expected measurement %q", measurement)
	}

	tagPart, fieldPart, found := strings.Cut(string(rest), " ")
	if !found {
		return nil, nil, errors.New("missing fields")
	}

	tags := map[string]string{}
	if tagPart != "" {
		if !strings.HasPrefix(tagPart, ",") {
			return nil, nil, fmt.Errorf("expected measurement %q", measurement)
		}
		err := parsePairs(strings.TrimPrefix(tagPart, ","), tags)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid tags: %w", err)
		}
	}

	fields := map[string]string{}
	err := parsePairs(fieldPart, fields)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid fields: %w", err)
	}
	return tags, fields, nil
}

// parsePairs reads comma-separated key=value pairs. Commas inside double quotes are part of the value
func parsePairs(input string, result map[string]string) error {
	for input != "" {
		key, rest, found := strings.Cut(input, "=")
		if !found || key == "" {
			return fmt.Errorf("invalid pair %q", input)
		}

		var val string
		if strings.HasPrefix(rest, `"`) {
			end := strings.Index(rest[1:], `"`)
			if end < 0 {
				return fmt.Errorf("unterminated quote for %q", key)
			}
			val = rest[1 : end+1]
			rest = rest[end+2:]
		} else {
			val, rest, _ = strings.Cut(rest, ",")
			result[key] = val
			input = rest
			continue
		}

		result[key] = val
		if rest != "" && !strings.HasPrefix(rest, ",") {
			return fmt.Errorf("unexpected characters after %q", key)
		}
		input = strings.TrimPrefix(rest, ",")
	}
	return nil
}
