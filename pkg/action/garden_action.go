// Package action holds the requests that can be made against a Garden or Zone and the payloads
// that carry them to a garden-controller
package action

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
)

// GardenAction collects all the possible actions for a Garden into a single struct so these can easily be
// received as one request
type GardenAction struct {
	Light  *LightAction  `json:"light" yaml:"light"`
	Stop   *StopAction   `json:"stop" yaml:"stop"`
	Update *UpdateAction `json:"update" yaml:"update"`
}

// String...
func (action *GardenAction) String() string {
	return fmt.Sprintf("{LightAction: %+v, StopAction: %+v, UpdateAction: %+v}", action.Light, action.Stop, action.Update)
}

// Validate makes sure at least one action is requested and each one is usable
func (action *GardenAction) Validate() error {
	if action == nil || (action.Light == nil && action.Stop == nil && action.Update == nil) {
		return errors.New("missing required action fields")
	}

	if action.Light != nil {
		err := action.Light.Validate()
		if err != nil {
			return err
		}
	}

	if action.Update != nil && !action.Update.Config {
		return errors.New("update action must have config=true")
	}
	return nil
}

// LightAction turns the light on or off. ForDuration is only allowed with OFF and delays the next ON
type LightAction struct {
	State       pkg.LightState `json:"state" yaml:"state"`
	ForDuration *pkg.Duration  `json:"for_duration,omitempty" yaml:"for_duration,omitempty"`
}

// Validate checks the delay of a LightAction
func (action *LightAction) Validate() error {
	if action.ForDuration == nil {
		return nil
	}
	if action.ForDuration.Cron != "" {
		return errors.New("delay duration cannot be a cron expression")
	}
	if action.ForDuration.Duration <= 0 {
		return errors.New("delay duration must be greater than 0")
	}
	if action.State != pkg.LightStateOff {
		return errors.New("unable to use delay when state is not OFF")
	}
	return nil
}

// LightMessage is the payload sent on the light command topic
type LightMessage struct {
	State       pkg.LightState `json:"state"`
	ForDuration int64          `json:"for_duration"`
}

// StopAction stops the current watering, or all queued waterings when All is set
type StopAction struct {
	All bool `json:"all" yaml:"all"`
}

// StopMessage is the literal payload of a stop command. Controllers only look at the topic
const StopMessage = "no message"

// UpdateAction pushes the Garden's ControllerConfig to the controller
type UpdateAction struct {
	Config bool `json:"config" yaml:"config"`
}
