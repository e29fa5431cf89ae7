package weather

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
)

// Control defines certain parameters and behaviors to influence watering patterns based off weather data
type Control struct {
	Rain        *ScaleControl `json:"rain_control,omitempty" yaml:"rain_control,omitempty"`
	Temperature *ScaleControl `json:"temperature_control,omitempty" yaml:"temperature_control,omitempty"`
}

// Patch allows modifying the struct in-place with values from a different instance
func (c *Control) Patch(newControl *Control) {
	if newControl.Rain != nil {
		if c.Rain == nil {
			c.Rain = &ScaleControl{}
		}
		c.Rain.Patch(newControl.Rain)
	}
	if newControl.Temperature != nil {
		if c.Temperature == nil {
			c.Temperature = &ScaleControl{}
		}
		c.Temperature.Patch(newControl.Temperature)
	}
}

// Validate checks each configured ScaleControl
func (c *Control) Validate() error {
	if c.Temperature != nil {
		err := c.Temperature.Validate()
		if err != nil {
			return fmt.Errorf("error validating temperature_control: %w", err)
		}
	}
	if c.Rain != nil {
		err := c.Rain.Validate()
		if err != nil {
			return fmt.Errorf("error validating rain_control: %w", err)
		}
	}
	return nil
}

// ScaleControl is a generic struct that enables scaling. BaselineValue is the value where no scaling
// happens. Deviation from it is bounded by Range, and Factor is the largest proportional change
type ScaleControl struct {
	BaselineValue *float32 `json:"baseline_value" yaml:"baseline_value"`
	Factor        *float32 `json:"factor" yaml:"factor"`
	Range         *float32 `json:"range" yaml:"range"`
	ClientID      xid.ID   `json:"client_id" yaml:"client_id"`
}

// Patch allows modifying the struct in-place with values from a different instance
func (sc *ScaleControl) Patch(newControl *ScaleControl) {
	if newControl.BaselineValue != nil {
		sc.BaselineValue = newControl.BaselineValue
	}
	if newControl.Factor != nil {
		sc.Factor = newControl.Factor
	}
	if newControl.Range != nil {
		sc.Range = newControl.Range
	}
	if !newControl.ClientID.IsNil() {
		sc.ClientID = newControl.ClientID
	}
}

// Validate checks that all fields are present and in bounds
func (sc *ScaleControl) Validate() error {
	errStringFormat := "missing required field: %s"
	if sc.BaselineValue == nil {
		return fmt.Errorf(errStringFormat, "baseline_value")
	}
	if sc.Factor == nil {
		return fmt.Errorf(errStringFormat, "factor")
	}
	if *sc.Factor > float32(1) || *sc.Factor < float32(0) {
		return errors.New("factor must be between 0 and 1")
	}
	if sc.Range == nil {
		return fmt.Errorf(errStringFormat, "range")
	}
	if *sc.Range < float32(0) {
		return errors.New("range must be a positive number")
	}
	if sc.ClientID.IsNil() {
		return fmt.Errorf(errStringFormat, "client_id")
	}
	return nil
}

// Scale moves the factor up or down depending on which side of the baseline actualValue is.
// The result is in [1-factor, 1+factor]
func (sc *ScaleControl) Scale(actualValue float32) float32 {
	r, ok := sc.scaleRange()
	if !ok {
		return 1
	}

	diff := clamp(actualValue-*sc.BaselineValue, -r, r)
	return (diff/r)*sc.factor() + 1
}

// InvertedScaleDownOnly only reduces the factor. A value below the baseline has no effect, and
// anything above it scales down toward the configured factor. The result is in [factor, 1]
func (sc *ScaleControl) InvertedScaleDownOnly(actualValue float32) float32 {
	r, ok := sc.scaleRange()
	if !ok {
		return 1
	}
	if actualValue < *sc.BaselineValue {
		return 1
	}

	diff := clamp(actualValue-*sc.BaselineValue, 0, r)
	return 1 - (diff/r)*(1-sc.factor())
}

// scaleRange returns false if the control cannot scale, which means a neutral factor of 1
func (sc *ScaleControl) scaleRange() (float32, bool) {
	if sc == nil || sc.BaselineValue == nil || sc.Factor == nil || sc.Range == nil || *sc.Range <= 0 {
		return 0, false
	}
	return *sc.Range, true
}

func (sc *ScaleControl) factor() float32 {
	return clamp(*sc.Factor, 0, 1)
}

func clamp(value, minimum, maximum float32) float32 {
	return max(minimum, min(value, maximum))
}
