package pkg

import (
	"testing"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidWaterSchedule(t *testing.T) *WaterSchedule {
	t.Helper()
	st, err := StartTimeFromString("06:00:00+00:00")
	require.NoError(t, err)
	return &WaterSchedule{
		ID:        xid.New(),
		Duration:  NewDuration(30 * time.Second),
		Interval:  NewDuration(24 * time.Hour),
		StartTime: st,
	}
}

func TestWaterScheduleEndDated(t *testing.T) {
	pastDate := time.Now().Add(-1 * time.Minute)
	futureDate := time.Now().Add(time.Minute)
	tests := []struct {
		name     string
		endDate  *time.Time
		expected bool
	}{
		{"NilEndDateFalse", nil, false},
		{"EndDateFutureEndDateFalse", &futureDate, false},
		{"EndDatePastEndDateTrue", &pastDate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := &WaterSchedule{EndDate: tt.endDate}
			assert.Equal(t, tt.expected, ws.EndDated())
		})
	}
}

func TestWaterSchedulePatch(t *testing.T) {
	float := float32(1)
	st, err := StartTimeFromString("10:00:00Z")
	require.NoError(t, err)

	tests := []struct {
		name             string
		newWaterSchedule *WaterSchedule
	}{
		{"PatchDuration", &WaterSchedule{Duration: NewDuration(time.Second)}},
		{"PatchInterval", &WaterSchedule{Interval: NewDuration(48 * time.Hour)}},
		{"PatchName", &WaterSchedule{Name: "new name"}},
		{"PatchDescription", &WaterSchedule{Description: "description"}},
		{"PatchStartTime", &WaterSchedule{StartTime: st}},
		{
			"PatchWeatherControl.Rain",
			&WaterSchedule{WeatherControl: &weather.Control{
				Rain: &weather.ScaleControl{BaselineValue: &float, Factor: &float, Range: &float},
			}},
		},
		{
			"PatchWeatherControl.Temperature",
			&WaterSchedule{WeatherControl: &weather.Control{
				Temperature: &weather.ScaleControl{BaselineValue: &float, Factor: &float, Range: &float},
			}},
		},
		{"PatchActivePeriod", &WaterSchedule{ActivePeriod: &ActivePeriod{StartMonth: "Jan", EndMonth: "Mar"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := &WaterSchedule{}
			ws.Patch(tt.newWaterSchedule)
			assert.Equal(t, tt.newWaterSchedule, ws)
		})
	}

	t.Run("RemoveEndDate", func(t *testing.T) {
		now := time.Now()
		ws := &WaterSchedule{EndDate: &now}
		ws.Patch(&WaterSchedule{})
		assert.Nil(t, ws.EndDate)
	})
}

func TestWaterScheduleValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*WaterSchedule)
		expectedErr string
	}{
		{"Valid", func(*WaterSchedule) {}, ""},
		{"MissingDuration", func(ws *WaterSchedule) { ws.Duration = nil }, "missing required field: duration"},
		{"DurationTooLong", func(ws *WaterSchedule) { ws.Duration = NewDuration(25 * time.Hour) }, "duration must be between 1s and 1d"},
		{"MissingInterval", func(ws *WaterSchedule) { ws.Interval = nil }, "missing required field: interval"},
		{"IntervalNotWholeDays", func(ws *WaterSchedule) { ws.Interval = NewDuration(36 * time.Hour) }, "interval must be a whole number of days, got 1d12h"},
		{"IntervalLessThanDay", func(ws *WaterSchedule) { ws.Interval = NewDuration(time.Hour) }, "interval must be a whole number of days, got 1h"},
		{"MissingStartTime", func(ws *WaterSchedule) { ws.StartTime = nil }, "missing required field: start_time"},
		{
			"StartTimeWithoutOffset",
			func(ws *WaterSchedule) { ws.StartTime, _ = StartTimeFromString("06:00:00") },
			"start_time must include a zone offset, got 06:00:00",
		},
		{
			"InvalidWeatherControl",
			func(ws *WaterSchedule) { ws.WeatherControl = &weather.Control{Rain: &weather.ScaleControl{}} },
			"error validating weather_control: error validating rain_control: missing required field: baseline_value",
		},
		{
			"InvalidActivePeriod",
			func(ws *WaterSchedule) { ws.ActivePeriod = &ActivePeriod{StartMonth: "Smarch", EndMonth: "Mar"} },
			`error validating active_period: invalid start_month: unknown month "Smarch"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := createValidWaterSchedule(t)
			tt.modify(ws)
			err := ws.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedErr)
		})
	}
}

func TestWaterScheduleAnchor(t *testing.T) {
	ws := createValidWaterSchedule(t)
	registered := time.Date(2023, time.August, 23, 5, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, time.August, 23, 6, 0, 0, 0, time.UTC), ws.Anchor(registered).UTC())

	startDate := time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC)
	ws.StartDate = &startDate
	assert.Equal(t, time.Date(2023, time.August, 1, 6, 0, 0, 0, time.UTC), ws.Anchor(registered).UTC())
}

func TestWaterScheduleIntervalDays(t *testing.T) {
	ws := createValidWaterSchedule(t)
	assert.Equal(t, 1, ws.IntervalDays())
	ws.Interval = NewDuration(72 * time.Hour)
	assert.Equal(t, 3, ws.IntervalDays())
	ws.Interval = nil
	assert.Equal(t, 1, ws.IntervalDays())
}

func TestWaterScheduleIsActive(t *testing.T) {
	tests := []struct {
		name         string
		activePeriod *ActivePeriod
		month        time.Month
		expected     bool
	}{
		{"NoPeriod", nil, time.July, true},
		{"Winter_December", &ActivePeriod{"Nov", "Mar"}, time.December, true},
		{"Winter_January", &ActivePeriod{"Nov", "Mar"}, time.January, true},
		{"Winter_March", &ActivePeriod{"Nov", "Mar"}, time.March, true},
		{"Winter_April", &ActivePeriod{"Nov", "Mar"}, time.April, false},
		{"Winter_October", &ActivePeriod{"Nov", "Mar"}, time.October, false},
		{"Summer_FullNames", &ActivePeriod{"June", "August"}, time.July, true},
		{"Summer_September", &ActivePeriod{"Jun", "Aug"}, time.September, false},
		{"InvalidPeriodInactive", &ActivePeriod{"Foo", "Aug"}, time.July, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := createValidWaterSchedule(t)
			ws.ActivePeriod = tt.activePeriod
			assert.Equal(t, tt.expected, ws.IsActive(time.Date(2023, tt.month, 15, 12, 0, 0, 0, time.UTC)))
		})
	}

	t.Run("MonthReadInScheduleZone", func(t *testing.T) {
		ws := createValidWaterSchedule(t)
		ws.StartTime, _ = StartTimeFromString("06:00:00+03:00")
		ws.ActivePeriod = &ActivePeriod{"Sep", "Sep"}
		// 22:00 UTC on Aug 31 is already September at +03:00
		assert.True(t, ws.IsActive(time.Date(2023, time.August, 31, 22, 0, 0, 0, time.UTC)))
	})
}
