package action

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGardenActionValidate(t *testing.T) {
	tests := []struct {
		name        string
		action      *GardenAction
		expectedErr string
	}{
		{"Nil", nil, "missing required action fields"},
		{"Empty", &GardenAction{}, "missing required action fields"},
		{"Light", &GardenAction{Light: &LightAction{State: pkg.LightStateOn}}, ""},
		{"Stop", &GardenAction{Stop: &StopAction{All: true}}, ""},
		{"Update", &GardenAction{Update: &UpdateAction{Config: true}}, ""},
		{"UpdateWithoutConfig", &GardenAction{Update: &UpdateAction{}}, "update action must have config=true"},
		{
			"DelayWithOn",
			&GardenAction{Light: &LightAction{State: pkg.LightStateOn, ForDuration: pkg.NewDuration(time.Hour)}},
			"unable to use delay when state is not OFF",
		},
		{
			"NegativeDelay",
			&GardenAction{Light: &LightAction{State: pkg.LightStateOff, ForDuration: pkg.NewDuration(-time.Hour)}},
			"delay duration must be greater than 0",
		},
		{
			"CronDelay",
			&GardenAction{Light: &LightAction{State: pkg.LightStateOff, ForDuration: &pkg.Duration{Cron: "* * * * *"}}},
			"delay duration cannot be a cron expression",
		},
		{
			"ValidDelay",
			&GardenAction{Light: &LightAction{State: pkg.LightStateOff, ForDuration: pkg.NewDuration(time.Hour)}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedErr)
		})
	}
}

func TestZoneActionValidate(t *testing.T) {
	tests := []struct {
		name        string
		action      *ZoneAction
		expectedErr string
	}{
		{"Nil", nil, "missing required action fields"},
		{"NoWater", &ZoneAction{}, "missing required action fields"},
		{"MissingDuration", &ZoneAction{Water: &WaterAction{}}, "missing required field: duration"},
		{"TooShort", &ZoneAction{Water: &WaterAction{Duration: pkg.NewDuration(time.Millisecond)}}, "duration must be between 1s and 1d"},
		{"TooLong", &ZoneAction{Water: &WaterAction{Duration: pkg.NewDuration(25 * time.Hour)}}, "duration must be between 1s and 1d"},
		{"Valid", &ZoneAction{Water: &WaterAction{Duration: pkg.NewDuration(30 * time.Second)}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedErr)
		})
	}
}

func TestMessagePayloads(t *testing.T) {
	t.Run("Water", func(t *testing.T) {
		data, err := json.Marshal(WaterMessage{
			Duration: 30000,
			ZoneID:   "zone",
			Position: 1,
			EventID:  "event",
			Source:   pkg.WaterSourceScheduled,
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"duration":30000,"zone_id":"zone","position":1,"event_id":"event","source":"scheduled"}`, string(data))
	})

	t.Run("Light", func(t *testing.T) {
		data, err := json.Marshal(LightMessage{State: pkg.LightStateOff, ForDuration: 3600000})
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":"OFF","for_duration":3600000}`, string(data))
	})

	t.Run("LightToggle", func(t *testing.T) {
		data, err := json.Marshal(LightMessage{State: pkg.LightStateToggle})
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":"","for_duration":0}`, string(data))
	})
}
