package pkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/rs/xid"
)

// WaterRoutineStep specifies a Zone and Duration to water
type WaterRoutineStep struct {
	ZoneID   xid.ID    `json:"zone_id" yaml:"zone_id"`
	Duration *Duration `json:"duration" yaml:"duration"`
}

// WaterRoutine waters multiple Zones one after the other with one request
type WaterRoutine struct {
	ID      xid.ID             `json:"id" yaml:"id"`
	Name    string             `json:"name" yaml:"name"`
	Steps   []WaterRoutineStep `json:"steps" yaml:"steps"`
	EndDate *time.Time         `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

func (wr *WaterRoutine) GetID() string {
	return wr.ID.String()
}

// EndDated returns true if the WaterRoutine is end-dated
func (wr *WaterRoutine) EndDated() bool {
	return wr.EndDate != nil && wr.EndDate.Before(clock.Now())
}

func (wr *WaterRoutine) SetEndDate(now time.Time) {
	wr.EndDate = &now
}

// Validate requires at least one step and checks each step's duration
func (wr *WaterRoutine) Validate() error {
	if len(wr.Steps) == 0 {
		return errors.New("at least one step is required")
	}
	for i, step := range wr.Steps {
		if step.ZoneID.IsNil() {
			return fmt.Errorf("step %d: missing required field: zone_id", i)
		}
		if step.Duration == nil {
			return fmt.Errorf("step %d: missing required field: duration", i)
		}
		if step.Duration.Duration < MinWaterDuration || step.Duration.Duration > MaxWaterDuration {
			return fmt.Errorf("step %d: duration must be between %s and %s", i, FormatDuration(MinWaterDuration), FormatDuration(MaxWaterDuration))
		}
	}
	return nil
}
