package controller

import (
	"encoding/json"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/action"
	paho "github.com/eclipse/paho.mqtt.golang"
)

func (c *Controller) waterHandler(topic string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		waterLogger := c.subLogger.With("topic", topic)
		var waterMsg action.WaterMessage
		err := json.Unmarshal(msg.Payload(), &waterMsg)
		if err != nil {
			waterLogger.Error("unable to unmarshal WaterMessage JSON", "error", err)
			return
		}

		c.assertionData.Lock()
		c.assertionData.waterActions = append(c.assertionData.waterActions, waterMsg)
		c.assertionData.Unlock()

		waterLogger.With(
			"zone_id", waterMsg.ZoneID,
			"position", waterMsg.Position,
			"duration", waterMsg.Duration,
			"event_id", waterMsg.EventID,
		).Info("received WaterAction")

		c.mu.Lock()
		numZones := c.NumZones
		c.mu.Unlock()
		if numZones > 0 && waterMsg.Position >= numZones {
			waterLogger.Error("position is out of range", "position", waterMsg.Position, "num_zones", numZones)
			return
		}

		err = c.valve.enqueue(waterMsg)
		if err != nil {
			waterLogger.Error("unable to queue WaterAction", "error", err)
		}
	}
}

func (c *Controller) stopHandler(_ string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		c.assertionData.Lock()
		c.assertionData.stopActions++
		c.assertionData.Unlock()

		c.subLogger.Info("received StopAction", "topic", msg.Topic())
		c.valve.stop()
	}
}

func (c *Controller) stopAllHandler(_ string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		c.assertionData.Lock()
		c.assertionData.stopAllActions++
		c.assertionData.Unlock()

		c.subLogger.Info("received StopAllAction", "topic", msg.Topic())
		c.valve.stopAll()
	}
}

func (c *Controller) lightHandler(topic string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		lightLogger := c.subLogger.With("topic", topic)
		var lightMsg action.LightMessage
		err := json.Unmarshal(msg.Payload(), &lightMsg)
		if err != nil {
			lightLogger.Error("unable to unmarshal LightMessage JSON", "error", err)
			return
		}

		c.assertionData.Lock()
		c.assertionData.lightActions = append(c.assertionData.lightActions, lightMsg)
		c.assertionData.Unlock()

		c.mu.Lock()
		switch lightMsg.State {
		case pkg.LightStateToggle:
			if c.lightState == pkg.LightStateOn {
				c.lightState = pkg.LightStateOff
			} else {
				c.lightState = pkg.LightStateOn
			}
		default:
			c.lightState = lightMsg.State
		}
		state := c.lightState
		c.mu.Unlock()

		lightLogger.Info("received LightAction", "requested_state", lightMsg.State.String(), "state", state.String())
		c.publishLightState(state)
	}
}

func (c *Controller) updateConfigHandler(topic string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		configLogger := c.subLogger.With("topic", topic)
		var configMsg pkg.ControllerConfigMessage
		err := json.Unmarshal(msg.Payload(), &configMsg)
		if err != nil {
			configLogger.Error("unable to unmarshal ControllerConfigMessage JSON", "error", err)
			return
		}

		c.mu.Lock()
		c.config = &configMsg
		if configMsg.NumZones > 0 {
			c.NumZones = configMsg.NumZones
		}
		c.mu.Unlock()

		configLogger.Info("received new config", "num_zones", configMsg.NumZones, "light", configMsg.Light)
		c.publishLog(SetupCompleteMessage)
	}
}

// publishWaterEvent reports a watering on the data topic
func (c *Controller) publishWaterEvent(status pkg.WaterStatus, msg action.WaterMessage, millis int64) {
	if !c.PublishWaterEvent {
		return
	}
	c.publish("water", fmt.Sprintf(
		"water,status=%s,zone=%d,zone_id=%q,id=%q millis=%d",
		status, msg.Position, msg.ZoneID, msg.EventID, millis,
	))
}
