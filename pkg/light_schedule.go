package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LightStateOff is the value used to turn off a light
	LightStateOff LightState = iota
	// LightStateOn is the value used to turn on a light
	LightStateOn
	// LightStateToggle is the empty value that results in toggling
	LightStateToggle
)

var (
	stateToString = []string{"OFF", "ON", ""}
	stringToState = map[string]LightState{
		`"OFF"`: LightStateOff,
		`OFF`:   LightStateOff,
		`"ON"`:  LightStateOn,
		`ON`:    LightStateOn,
		`""`:    LightStateToggle,
		``:      LightStateToggle,
	}
)

// LightState is an enum representing the state of a Light (ON or OFF)
type LightState int

// Return the string representation of this LightState
func (l LightState) String() string {
	if int(l) < 0 || int(l) >= len(stateToString) {
		return fmt.Sprintf("LightState(%d)", int(l))
	}
	return stateToString[l]
}

// MarshalJSON will convert LightState into it's JSON string representation
func (l LightState) MarshalJSON() ([]byte, error) {
	if int(l) < 0 || int(l) >= len(stateToString) {
		return []byte{}, fmt.Errorf("cannot convert %d to %T", int(l), l)
	}
	return json.Marshal(stateToString[l])
}

// UnmarshalJSON converts LightState's JSON string representation, ignoring case, into a LightState
func (l *LightState) UnmarshalJSON(data []byte) error {
	return l.unmarshal(data)
}

func (l *LightState) UnmarshalText(data []byte) error {
	return l.unmarshal(data)
}

func (l *LightState) unmarshal(data []byte) error {
	upper := strings.ToUpper(string(data))
	var ok bool
	*l, ok = stringToState[upper]
	if !ok {
		return fmt.Errorf("cannot unmarshal %s into Go value of type %T", string(data), l)
	}
	return nil
}

// LightSchedule controls when the Garden light is turned on and off. StartTime is a
// garden-local time-of-day ("HH:MM:SS") and the light stays on for Duration.
// AdhocOnTime is a one-off ON that overrides the next regular ON
type LightSchedule struct {
	Duration    *Duration  `json:"duration" yaml:"duration"`
	StartTime   *StartTime `json:"start_time" yaml:"start_time"`
	AdhocOnTime *time.Time `json:"adhoc_on_time,omitempty" yaml:"adhoc_on_time,omitempty"`
}

// Patch allows modifying the struct in-place with values from a different instance
func (ls *LightSchedule) Patch(newLightSchedule *LightSchedule) {
	if newLightSchedule.Duration != nil {
		ls.Duration = newLightSchedule.Duration
	}
	if newLightSchedule.StartTime != nil {
		ls.StartTime = newLightSchedule.StartTime
	}
	if newLightSchedule.AdhocOnTime == nil {
		ls.AdhocOnTime = nil
	}
}

// Validate checks the LightSchedule against the configured light duration limits
func (ls *LightSchedule) Validate() error {
	if ls.Duration == nil {
		return errors.New("missing required field: duration")
	}
	if ls.Duration.Cron != "" {
		return errors.New("duration cannot be a cron expression")
	}
	if ls.Duration.Duration < MinLightDuration || ls.Duration.Duration > MaxLightDuration {
		return fmt.Errorf("duration must be between %s and %s", FormatDuration(MinLightDuration), FormatDuration(MaxLightDuration))
	}
	if ls.StartTime == nil {
		return errors.New("missing required field: start_time")
	}
	return nil
}
