package pkg

import (
	"fmt"
	"time"
)

// HealthTimeout is how recently a Garden must have been heard from to be considered UP
const HealthTimeout = 5 * time.Minute

// HealthStatus is the connectivity state of a garden-controller
type HealthStatus string

const (
	HealthStatusUp      HealthStatus = "UP"
	HealthStatusDown    HealthStatus = "DOWN"
	HealthStatusUnknown HealthStatus = "N/A"
)

// GardenHealth holds information about the Garden controller's health status
type GardenHealth struct {
	Status      HealthStatus `json:"status,omitempty"`
	Details     string       `json:"details,omitempty"`
	LastContact *time.Time   `json:"last_contact,omitempty"`
}

// NewGardenHealth interprets the result of a last contact lookup at now
func NewGardenHealth(lastContact time.Time, err error, now time.Time) GardenHealth {
	if err != nil {
		return GardenHealth{
			Status:  HealthStatusUnknown,
			Details: err.Error(),
		}
	}
	if lastContact.IsZero() {
		return GardenHealth{
			Status:  HealthStatusDown,
			Details: "no last contact time available",
		}
	}

	health := GardenHealth{
		Status:      HealthStatusDown,
		LastContact: &lastContact,
		Details:     fmt.Sprintf("last contact from Garden was %s ago", FormatDuration(now.Sub(lastContact))),
	}
	if now.Sub(lastContact) < HealthTimeout {
		health.Status = HealthStatusUp
	}
	return health
}

// IsUp is true if the Garden was contacted recently
func (h GardenHealth) IsUp() bool {
	return h.Status == HealthStatusUp
}
