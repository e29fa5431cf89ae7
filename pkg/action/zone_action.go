package action

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
)

// ZoneAction collects all the possible actions for a Zone into a single struct so these can easily be
// received as one request
type ZoneAction struct {
	Water *WaterAction `json:"water" yaml:"water"`
}

// String...
func (action *ZoneAction) String() string {
	return fmt.Sprintf("%+v", *action.Water)
}

// Validate requires a WaterAction
func (action *ZoneAction) Validate() error {
	if action == nil || action.Water == nil {
		return errors.New("missing required action fields")
	}
	return action.Water.Validate()
}

// WaterAction is an action for watering a Zone for the specified amount of time. Weather scaling
// from the Zone's WaterSchedules applies unless IgnoreWeather is set
type WaterAction struct {
	Duration      *pkg.Duration `json:"duration" yaml:"duration"`
	IgnoreWeather bool          `json:"ignore_weather" yaml:"ignore_weather"`
}

// Validate checks the requested duration against the watering limits
func (action *WaterAction) Validate() error {
	if action.Duration == nil {
		return errors.New("missing required field: duration")
	}
	if action.Duration.Cron != "" {
		return errors.New("duration cannot be a cron expression")
	}
	if action.Duration.Duration < pkg.MinWaterDuration || action.Duration.Duration > pkg.MaxWaterDuration {
		return fmt.Errorf("duration must be between %s and %s", pkg.FormatDuration(pkg.MinWaterDuration), pkg.FormatDuration(pkg.MaxWaterDuration))
	}
	return nil
}

// WaterMessage is the message being sent over MQTT to the embedded garden controller. EventID is echoed
// back in the controller's water events
type WaterMessage struct {
	Duration int64           `json:"duration"`
	ZoneID   string          `json:"zone_id"`
	Position uint            `json:"position"`
	EventID  string          `json:"event_id"`
	Source   pkg.WaterSource `json:"source"`
}

// String...
func (m *WaterMessage) String() string {
	return fmt.Sprintf("%+v", *m)
}
