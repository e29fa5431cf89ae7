package pkg

// ControllerConfig holds the pin layout and sensor settings pushed to a garden-controller
type ControllerConfig struct {
	ValvePins                   []uint    `json:"valve_pins,omitempty" yaml:"valve_pins,omitempty"`
	PumpPins                    []uint    `json:"pump_pins,omitempty" yaml:"pump_pins,omitempty"`
	LightPin                    *uint     `json:"light_pin,omitempty" yaml:"light_pin,omitempty"`
	TemperatureHumidityPin      *uint     `json:"temperature_humidity_pin,omitempty" yaml:"temperature_humidity_pin,omitempty"`
	TemperatureHumidityInterval *Duration `json:"temperature_humidity_interval,omitempty" yaml:"temperature_humidity_interval,omitempty"`
}

func (c *ControllerConfig) Patch(newVal *ControllerConfig) {
	if newVal.ValvePins != nil {
		c.ValvePins = make([]uint, len(newVal.ValvePins))
		copy(c.ValvePins, newVal.ValvePins)
	}
	if newVal.PumpPins != nil {
		c.PumpPins = make([]uint, len(newVal.PumpPins))
		copy(c.PumpPins, newVal.PumpPins)
	}
	if newVal.LightPin != nil {
		c.LightPin = newVal.LightPin
	}
	if newVal.TemperatureHumidityPin != nil {
		c.TemperatureHumidityPin = newVal.TemperatureHumidityPin
	}
	if newVal.TemperatureHumidityInterval != nil {
		c.TemperatureHumidityInterval = newVal.TemperatureHumidityInterval
	}
}

// ControllerConfigMessage is the payload sent to a controller to update its configuration
type ControllerConfigMessage struct {
	NumZones                    uint   `json:"num_zones"`
	ValvePins                   []uint `json:"valve_pins"`
	PumpPins                    []uint `json:"pump_pins"`
	Light                       bool   `json:"light"`
	LightPin                    uint   `json:"light_pin"`
	TemperatureHumidity         bool   `json:"temp_humidity"`
	TemperatureHumidityPin      uint   `json:"temp_humidity_pin"`
	TemperatureHumidityInterval int64  `json:"temp_humidity_interval"`
}

// ControllerConfigMessage builds the update payload for the Garden. The number of zones is the
// number of valves, or MaxZones when no valves are configured
func (g *Garden) ControllerConfigMessage() ControllerConfigMessage {
	msg := ControllerConfigMessage{
		ValvePins: []uint{},
		PumpPins:  []uint{},
	}
	if g.MaxZones != nil {
		msg.NumZones = *g.MaxZones
	}

	cfg := g.ControllerConfig
	if cfg == nil {
		return msg
	}

	if len(cfg.ValvePins) > 0 {
		msg.ValvePins = cfg.ValvePins
		msg.NumZones = uint(len(cfg.ValvePins))
	}
	if len(cfg.PumpPins) > 0 {
		msg.PumpPins = cfg.PumpPins
	}
	if cfg.LightPin != nil {
		msg.Light = true
		msg.LightPin = *cfg.LightPin
	}
	if cfg.TemperatureHumidityPin != nil {
		msg.TemperatureHumidity = true
		msg.TemperatureHumidityPin = *cfg.TemperatureHumidityPin
	}
	if cfg.TemperatureHumidityInterval != nil {
		msg.TemperatureHumidityInterval = cfg.TemperatureHumidityInterval.Milliseconds()
	}
	return msg
}
