package weather

import (
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
)

func float32Pointer(n float64) *float32 {
	f := float32(n)
	return &f
}

func scaleDuration(d time.Duration, factor float32) time.Duration {
	return time.Duration(float64(d) * float64(factor)).Round(time.Second)
}

func TestScale(t *testing.T) {
	sc := ScaleControl{
		BaselineValue: float32Pointer(90),
		Factor:        float32Pointer(0.5),
		Range:         float32Pointer(30),
	}

	tests := []struct {
		name             string
		input            float32
		expectedFactor   float32
		expectedDuration time.Duration
	}{
		{"ScaleUpABit", 100, 1 + 1.0/6, 35 * time.Minute},
		{"MaxScaleUp", 120, 1.5, 45 * time.Minute},
		{"BeyondMaxScaleUp", 130, 1.5, 45 * time.Minute},
		{"ScaleDownABit", 80, 1 - 1.0/6, 25 * time.Minute},
		{"MaxScaleDown", 60, 0.5, 15 * time.Minute},
		{"BeyondMaxScaleDown", 50, 0.5, 15 * time.Minute},
		{"Baseline", 90, 1, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale := sc.Scale(tt.input)
			assert.InDelta(t, tt.expectedFactor, scale, 0.0001)
			assert.Equal(t, tt.expectedDuration, scaleDuration(30*time.Minute, scale))
		})
	}
}

func TestScaleBounded(t *testing.T) {
	sc := ScaleControl{
		BaselineValue: float32Pointer(20),
		Factor:        float32Pointer(0.3),
		Range:         float32Pointer(10),
	}

	prev := sc.Scale(-100)
	for v := float32(-100); v <= 100; v += 0.5 {
		scale := sc.Scale(v)
		assert.GreaterOrEqual(t, scale, float32(0.7)-0.0001)
		assert.LessOrEqual(t, scale, float32(1.3)+0.0001)
		assert.GreaterOrEqual(t, scale, prev)
		prev = scale
	}
}

func TestInvertedScaleDownOnly(t *testing.T) {
	sc := ScaleControl{
		BaselineValue: float32Pointer(25.4),
		Factor:        float32Pointer(0.5),
		Range:         float32Pointer(12.7),
	}

	// Any amount of rain will scale watering down, 50mm will stop all watering
	fullRangeScale := ScaleControl{
		BaselineValue: float32Pointer(0),
		Factor:        float32Pointer(0),
		Range:         float32Pointer(50),
	}

	tests := []struct {
		name             string
		sc               ScaleControl
		input            float32
		expectedFactor   float32
		expectedDuration time.Duration
	}{
		{"ValueBelowBaselineNoChange", sc, 20, 1, 30 * time.Minute},
		{"HalfRangePastBaselineScales75%", sc, 25.4 + 6.35, 0.75, 22*time.Minute + 30*time.Second},
		{"FullRangePastBaselineScales50%", sc, 25.4 + 12.7, 0.5, 15 * time.Minute},
		{"BeyondRangeMaxesScaleFactor", sc, 50, 0.5, 15 * time.Minute},
		{"FullRangeScaleNoRain", fullRangeScale, 0, 1, 30 * time.Minute},
		{"FullRangeScaleHalfRain", fullRangeScale, 25, 0.5, 15 * time.Minute},
		{"FullRangeScaleStopsWatering", fullRangeScale, 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale := tt.sc.InvertedScaleDownOnly(tt.input)
			assert.InDelta(t, tt.expectedFactor, scale, 0.0001)
			assert.Equal(t, tt.expectedDuration, scaleDuration(30*time.Minute, scale))
		})
	}
}

func TestInvertedScaleDownOnlyRainScenario(t *testing.T) {
	sc := ScaleControl{
		BaselineValue: float32Pointer(50),
		Factor:        float32Pointer(0.5),
		Range:         float32Pointer(20),
	}

	assert.InDelta(t, 0.75, sc.InvertedScaleDownOnly(60), 0.0001)
	assert.Equal(t, float32(1), sc.InvertedScaleDownOnly(49.9))

	for v := float32(0); v <= 200; v += 1 {
		scale := sc.InvertedScaleDownOnly(v)
		assert.GreaterOrEqual(t, scale, float32(0.5)-0.0001)
		assert.LessOrEqual(t, scale, float32(1))
	}
}

func TestScaleNeutralWithoutRange(t *testing.T) {
	tests := []struct {
		name string
		sc   *ScaleControl
	}{
		{"Nil", nil},
		{"ZeroRange", &ScaleControl{BaselineValue: float32Pointer(1), Factor: float32Pointer(0.5), Range: float32Pointer(0)}},
		{"MissingFactor", &ScaleControl{BaselineValue: float32Pointer(1), Range: float32Pointer(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, float32(1), tt.sc.Scale(100))
			assert.Equal(t, float32(1), tt.sc.InvertedScaleDownOnly(100))
		})
	}
}

func TestScaleControlValidate(t *testing.T) {
	id := xid.New()
	tests := []struct {
		name        string
		sc          ScaleControl
		expectedErr string
	}{
		{"MissingBaseline", ScaleControl{}, "missing required field: baseline_value"},
		{"MissingFactor", ScaleControl{BaselineValue: float32Pointer(1)}, "missing required field: factor"},
		{"FactorTooBig", ScaleControl{BaselineValue: float32Pointer(1), Factor: float32Pointer(2)}, "factor must be between 0 and 1"},
		{"MissingRange", ScaleControl{BaselineValue: float32Pointer(1), Factor: float32Pointer(0.5)}, "missing required field: range"},
		{"NegativeRange", ScaleControl{BaselineValue: float32Pointer(1), Factor: float32Pointer(0.5), Range: float32Pointer(-1)}, "range must be a positive number"},
		{"MissingClientID", ScaleControl{BaselineValue: float32Pointer(1), Factor: float32Pointer(0.5), Range: float32Pointer(1)}, "missing required field: client_id"},
		{"Valid", ScaleControl{BaselineValue: float32Pointer(1), Factor: float32Pointer(0.5), Range: float32Pointer(1), ClientID: id}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedErr)
		})
	}
}

func TestControlValidateWrapsErrors(t *testing.T) {
	c := &Control{Rain: &ScaleControl{}}
	assert.EqualError(t, c.Validate(), "error validating rain_control: missing required field: baseline_value")

	c = &Control{Temperature: &ScaleControl{}}
	assert.EqualError(t, c.Validate(), "error validating temperature_control: missing required field: baseline_value")
}
