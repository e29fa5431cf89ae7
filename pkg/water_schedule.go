package pkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/recurrence"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/rs/xid"
)

// Limits on watering durations accepted from users
const (
	MinWaterDuration = time.Second
	MaxWaterDuration = 24 * time.Hour
	MinLightDuration = time.Minute
	MaxLightDuration = 24 * time.Hour
)

// WaterSchedule waters every Zone that references it for Duration, every Interval days at StartTime.
// StartDate optionally anchors the multi-day cadence; without it the cadence starts on the day the
// schedule is registered with the scheduler
type WaterSchedule struct {
	ID             xid.ID           `json:"id" yaml:"id"`
	Name           string           `json:"name,omitempty" yaml:"name,omitempty"`
	Description    string           `json:"description,omitempty" yaml:"description,omitempty"`
	Duration       *Duration        `json:"duration" yaml:"duration"`
	Interval       *Duration        `json:"interval" yaml:"interval"`
	StartTime      *StartTime       `json:"start_time" yaml:"start_time"`
	StartDate      *time.Time       `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	WeatherControl *weather.Control `json:"weather_control,omitempty" yaml:"weather_control,omitempty"`
	ActivePeriod   *ActivePeriod    `json:"active_period,omitempty" yaml:"active_period,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

func (ws *WaterSchedule) GetID() string {
	return ws.ID.String()
}

// String...
func (ws *WaterSchedule) String() string {
	return fmt.Sprintf("%+v", *ws)
}

// EndDated returns true if the WaterSchedule is end-dated
func (ws *WaterSchedule) EndDated() bool {
	return ws.EndDate != nil && ws.EndDate.Before(clock.Now())
}

func (ws *WaterSchedule) SetEndDate(now time.Time) {
	ws.EndDate = &now
}

// HasWeatherControl is used to determine if weather conditions should be checked before watering the Zone
func (ws *WaterSchedule) HasWeatherControl() bool {
	return ws != nil &&
		(ws.HasRainControl() || ws.HasTemperatureControl())
}

// HasRainControl is used to determine if rain conditions should be checked before watering the Zone
func (ws *WaterSchedule) HasRainControl() bool {
	return ws.WeatherControl != nil &&
		ws.WeatherControl.Rain != nil
}

// HasTemperatureControl is used to determine if configuration is available for environmental scaling
func (ws *WaterSchedule) HasTemperatureControl() bool {
	return ws.WeatherControl != nil &&
		ws.WeatherControl.Temperature != nil
}

// Patch allows modifying the struct in-place with values from a different instance
func (ws *WaterSchedule) Patch(newWaterSchedule *WaterSchedule) {
	if newWaterSchedule.Duration != nil {
		ws.Duration = newWaterSchedule.Duration
	}
	if newWaterSchedule.Interval != nil {
		ws.Interval = newWaterSchedule.Interval
	}
	if newWaterSchedule.StartTime != nil {
		ws.StartTime = newWaterSchedule.StartTime
	}
	if newWaterSchedule.StartDate != nil {
		ws.StartDate = newWaterSchedule.StartDate
	}
	if ws.EndDate != nil && newWaterSchedule.EndDate == nil {
		ws.EndDate = newWaterSchedule.EndDate
	}
	if newWaterSchedule.WeatherControl != nil {
		if ws.WeatherControl == nil {
			ws.WeatherControl = &weather.Control{}
		}
		ws.WeatherControl.Patch(newWaterSchedule.WeatherControl)
	}
	if newWaterSchedule.Name != "" {
		ws.Name = newWaterSchedule.Name
	}
	if newWaterSchedule.Description != "" {
		ws.Description = newWaterSchedule.Description
	}
	if newWaterSchedule.ActivePeriod != nil {
		if ws.ActivePeriod == nil {
			ws.ActivePeriod = &ActivePeriod{}
		}
		ws.ActivePeriod.Patch(newWaterSchedule.ActivePeriod)
	}
}

// Validate checks everything needed to schedule the WaterSchedule
func (ws *WaterSchedule) Validate() error {
	if ws.Duration == nil {
		return errors.New("missing required field: duration")
	}
	if ws.Duration.Cron != "" {
		return errors.New("duration cannot be a cron expression")
	}
	if ws.Duration.Duration < MinWaterDuration || ws.Duration.Duration > MaxWaterDuration {
		return fmt.Errorf("duration must be between %s and %s", FormatDuration(MinWaterDuration), FormatDuration(MaxWaterDuration))
	}
	if ws.Interval == nil {
		return errors.New("missing required field: interval")
	}
	if !ws.Interval.IsWholeDays() {
		return fmt.Errorf("interval must be a whole number of days, got %s", ws.Interval)
	}
	if ws.StartTime == nil {
		return errors.New("missing required field: start_time")
	}
	if ws.StartTime.IsLocal() {
		return fmt.Errorf("start_time must include a zone offset, got %s", ws.StartTime)
	}
	if ws.WeatherControl != nil {
		err := ws.WeatherControl.Validate()
		if err != nil {
			return fmt.Errorf("error validating weather_control: %w", err)
		}
	}
	if ws.ActivePeriod != nil {
		err := ws.ActivePeriod.Validate()
		if err != nil {
			return fmt.Errorf("error validating active_period: %w", err)
		}
	}
	return nil
}

// IntervalDays is the number of days between occurrences
func (ws *WaterSchedule) IntervalDays() int {
	if ws.Interval == nil {
		return 1
	}
	return max(1, ws.Interval.Days())
}

// Anchor is the first occurrence of the schedule. It is StartTime on StartDate if that is set,
// otherwise StartTime on the date of registeredAt
func (ws *WaterSchedule) Anchor(registeredAt time.Time) time.Time {
	date := registeredAt
	if ws.StartDate != nil {
		date = *ws.StartDate
	}
	return ws.StartTime.OnDate(date, nil)
}

// IsActive determines if the WaterSchedule is currently in its ActivePeriod. Always true if no ActivePeriod
// is configured. The month is read in the StartTime's zone
func (ws *WaterSchedule) IsActive(t time.Time) bool {
	if ws.ActivePeriod == nil {
		return true
	}
	period, err := ws.ActivePeriod.Period()
	if err != nil {
		return false
	}
	if ws.StartTime != nil && !ws.StartTime.IsLocal() {
		t = t.In(ws.StartTime.Location())
	}
	return recurrence.IsActiveTime(period, t)
}

// ActivePeriod contains the start and end months for when a WaterSchedule should be considered active.
// Both of these constraints are inclusive and a StartMonth after EndMonth spans the new year
type ActivePeriod struct {
	StartMonth string `json:"start_month" yaml:"start_month"`
	EndMonth   string `json:"end_month" yaml:"end_month"`
}

// Validate parses the Month strings to make sure they are valid
func (ap *ActivePeriod) Validate() error {
	if ap == nil {
		return nil
	}
	_, err := ap.Period()
	return err
}

// Period converts the month names into a recurrence.Period
func (ap *ActivePeriod) Period() (*recurrence.Period, error) {
	return recurrence.ParsePeriod(ap.StartMonth, ap.EndMonth)
}

// Patch allows for easily updating/editing an ActivePeriod
func (ap *ActivePeriod) Patch(newPeriod *ActivePeriod) {
	if newPeriod.StartMonth != "" {
		ap.StartMonth = newPeriod.StartMonth
	}
	if newPeriod.EndMonth != "" {
		ap.EndMonth = newPeriod.EndMonth
	}
}

// NextWaterDetails has information about the next time this WaterSchedule will be used
type NextWaterDetails struct {
	Time            *time.Time `json:"time,omitempty"`
	Duration        string     `json:"duration,omitempty"`
	WaterScheduleID *xid.ID    `json:"water_schedule_id,omitempty"`
	Message         string     `json:"message,omitempty"`
}
