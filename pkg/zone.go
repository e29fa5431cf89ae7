package pkg

import (
	"fmt"
	"slices"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/rs/xid"
)

// Zone is a "waterable resource" owned by a Garden. Position tells the controller which valve to open.
// SkipCount suppresses that many upcoming scheduled waterings without changing the schedules
type Zone struct {
	ID               xid.ID     `json:"id" yaml:"id"`
	GardenID         xid.ID     `json:"garden_id" yaml:"garden_id"`
	Name             string     `json:"name" yaml:"name,omitempty"`
	Position         *uint      `json:"position" yaml:"position"`
	WaterScheduleIDs []xid.ID   `json:"water_schedule_ids" yaml:"water_schedule_ids"`
	SkipCount        *uint      `json:"skip_count,omitempty" yaml:"skip_count,omitempty"`
	CreatedAt        *time.Time `json:"created_at" yaml:"created_at,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

func (z *Zone) GetID() string {
	return z.ID.String()
}

// String...
func (z *Zone) String() string {
	return fmt.Sprintf("%+v", *z)
}

// EndDated returns true if the Zone is end-dated
func (z *Zone) EndDated() bool {
	return z.EndDate != nil && z.EndDate.Before(clock.Now())
}

func (z *Zone) SetEndDate(now time.Time) {
	z.EndDate = &now
}

// HasWaterSchedule is true if the Zone uses the WaterSchedule
func (z *Zone) HasWaterSchedule(id xid.ID) bool {
	return slices.Contains(z.WaterScheduleIDs, id)
}

// GetSkipCount returns zero when SkipCount is unset
func (z *Zone) GetSkipCount() uint {
	if z.SkipCount == nil {
		return 0
	}
	return *z.SkipCount
}

// ConsumeSkip decrements SkipCount and returns true if the upcoming watering should be skipped
func (z *Zone) ConsumeSkip() bool {
	if z.GetSkipCount() == 0 {
		return false
	}
	remaining := *z.SkipCount - 1
	z.SkipCount = &remaining
	return true
}

// Patch allows for easily updating individual fields of a Zone by passing in a new Zone containing
// the desired values
func (z *Zone) Patch(newZone *Zone) {
	if newZone.Name != "" {
		z.Name = newZone.Name
	}
	if newZone.Position != nil {
		z.Position = newZone.Position
	}
	if newZone.CreatedAt != nil {
		z.CreatedAt = newZone.CreatedAt
	}
	if z.EndDate != nil && newZone.EndDate == nil {
		z.EndDate = newZone.EndDate
	}
	if newZone.SkipCount != nil {
		z.SkipCount = newZone.SkipCount
	}
	if len(newZone.WaterScheduleIDs) != 0 {
		z.WaterScheduleIDs = newZone.WaterScheduleIDs
	}
}

// ZoneAndGarden allows grouping the Zone and Garden it belongs too and is useful in some cases
// where both are needed in a return value
type ZoneAndGarden struct {
	*Zone
	*Garden
}
