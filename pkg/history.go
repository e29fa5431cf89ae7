package pkg

import (
	"time"
)

// WaterStatus is the latest known state of a water command
type WaterStatus string

const (
	WaterStatusSent      WaterStatus = "sent"
	WaterStatusStarted   WaterStatus = "start"
	WaterStatusCompleted WaterStatus = "complete"
)

// WaterSource describes what triggered a water command
type WaterSource string

const (
	WaterSourceScheduled       WaterSource = "scheduled"
	WaterSourceManual          WaterSource = "manual"
	WaterSourceSensorTriggered WaterSource = "sensor_triggered"
	WaterSourceWaterRoutine    WaterSource = "water_routine"
)

// WaterHistory joins a water command with the events the controller reported for it
type WaterHistory struct {
	Duration    Duration    `json:"duration" mapstructure:"duration"`
	EventID     string      `json:"event_id" mapstructure:"event_id"`
	Status      WaterStatus `json:"status" mapstructure:"status"`
	Source      string      `json:"source" mapstructure:"source"`
	SentAt      time.Time   `json:"sent_at" mapstructure:"sent_at"`
	StartedAt   time.Time   `json:"started_at,omitzero" mapstructure:"started_at"`
	CompletedAt time.Time   `json:"completed_at,omitzero" mapstructure:"completed_at"`
}

// RecordTime is the time of the most recent event for this watering
func (wh WaterHistory) RecordTime() time.Time {
	switch {
	case !wh.CompletedAt.IsZero():
		return wh.CompletedAt
	case !wh.StartedAt.IsZero():
		return wh.StartedAt
	default:
		return wh.SentAt
	}
}
