package pkg

import (
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
)

func TestZoneEndDated(t *testing.T) {
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
			z := &Zone{EndDate: tt.endDate}
			assert.Equal(t, tt.expected, z.EndDated())
		})
	}
}

func TestZonePatch(t *testing.T) {
	zero := uint(0)
	three := uint(3)
	now := time.Now()
	wsID := xid.New()
	tests := []struct {
		name    string
		newZone *Zone
	}{
		{"PatchName", &Zone{Name: "name"}},
		{"PatchPosition", &Zone{Position: &three}},
		{"PatchCreatedAt", &Zone{CreatedAt: &now}},
		{"PatchSkipCount", &Zone{SkipCount: &zero}},
		{"PatchWaterScheduleIDs", &Zone{WaterScheduleIDs: []xid.ID{wsID}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := &Zone{}
			z.Patch(tt.newZone)
			assert.Equal(t, tt.newZone, z)
		})
	}
}

func TestZoneConsumeSkip(t *testing.T) {
	two := uint(2)
	z := &Zone{SkipCount: &two}

	assert.True(t, z.ConsumeSkip())
	assert.Equal(t, uint(1), z.GetSkipCount())
	assert.True(t, z.ConsumeSkip())
	assert.Equal(t, uint(0), z.GetSkipCount())
	assert.False(t, z.ConsumeSkip())
	assert.Equal(t, uint(0), z.GetSkipCount())

	assert.False(t, (&Zone{}).ConsumeSkip())
	assert.Equal(t, uint(2), two, "original value is not modified")
}

func TestZoneHasWaterSchedule(t *testing.T) {
	id := xid.New()
	z := &Zone{WaterScheduleIDs: []xid.ID{xid.New(), id}}
	assert.True(t, z.HasWaterSchedule(id))
	assert.False(t, z.HasWaterSchedule(xid.New()))
}

func TestWaterRoutineValidate(t *testing.T) {
	zoneID := xid.New()
	tests := []struct {
		name        string
		routine     WaterRoutine
		expectedErr string
	}{
		{"Valid", WaterRoutine{Steps: []WaterRoutineStep{{ZoneID: zoneID, Duration: NewDuration(time.Minute)}}}, ""},
		{"NoSteps", WaterRoutine{}, "at least one step is required"},
		{"MissingZone", WaterRoutine{Steps: []WaterRoutineStep{{Duration: NewDuration(time.Minute)}}}, "step 0: missing required field: zone_id"},
		{"MissingDuration", WaterRoutine{Steps: []WaterRoutineStep{{ZoneID: zoneID}}}, "step 0: missing required field: duration"},
		{"ShortDuration", WaterRoutine{Steps: []WaterRoutineStep{{ZoneID: zoneID, Duration: NewDuration(time.Millisecond)}}}, "step 0: duration must be between 1s and 1d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.routine.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedErr)
		})
	}
}
