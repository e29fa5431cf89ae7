package pkg

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/rs/xid"
)

// invalidTopicPrefix matches characters that would break MQTT topic routing
var invalidTopicPrefix = regexp.MustCompile(`[\s$#*>+/]`)

// Garden is the representation of a single garden-controller device. TopicPrefix routes all of its
// commands and telemetry
type Garden struct {
	ID                   xid.ID                `json:"id" yaml:"id"`
	Name                 string                `json:"name" yaml:"name"`
	TopicPrefix          string                `json:"topic_prefix" yaml:"topic_prefix"`
	MaxZones             *uint                 `json:"max_zones" yaml:"max_zones"`
	LightSchedule        *LightSchedule        `json:"light_schedule,omitempty" yaml:"light_schedule,omitempty"`
	ControllerConfig     *ControllerConfig     `json:"controller_config,omitempty" yaml:"controller_config,omitempty"`
	NotificationClientID *string               `json:"notification_client_id,omitempty" yaml:"notification_client_id,omitempty"`
	NotificationSettings *NotificationSettings `json:"notification_settings,omitempty" yaml:"notification_settings,omitempty"`
	CreatedAt            *time.Time            `json:"created_at" yaml:"created_at"`
	EndDate              *time.Time            `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

// NotificationSettings choose which events are sent to the Garden's notification client. Downtime
// is how long a Garden can be silent before it is reported as down
type NotificationSettings struct {
	ControllerStartup bool      `json:"controller_startup,omitempty" yaml:"controller_startup,omitempty"`
	LightSchedule     bool      `json:"light_schedule,omitempty" yaml:"light_schedule,omitempty"`
	WateringStarted   bool      `json:"watering_started,omitempty" yaml:"watering_started,omitempty"`
	WateringCompleted bool      `json:"watering_completed,omitempty" yaml:"watering_completed,omitempty"`
	Downtime          *Duration `json:"downtime,omitempty" yaml:"downtime,omitempty"`
}

func (g *Garden) GetID() string {
	return g.ID.String()
}

// String...
func (g *Garden) String() string {
	return fmt.Sprintf("%+v", *g)
}

// EndDated returns true if the garden is end-dated
func (g *Garden) EndDated() bool {
	return g.EndDate != nil && g.EndDate.Before(clock.Now())
}

func (g *Garden) SetEndDate(now time.Time) {
	g.EndDate = &now
}

// HasLightSchedule is true when the Garden has a light that is scheduled
func (g *Garden) HasLightSchedule() bool {
	return g.LightSchedule != nil && g.LightSchedule.Duration != nil && g.LightSchedule.StartTime != nil
}

// GetNotificationClientID returns the ID of the notification client, or empty string if there is none
func (g *Garden) GetNotificationClientID() string {
	if g.NotificationClientID == nil {
		return ""
	}
	return *g.NotificationClientID
}

// GetNotificationSettings never returns nil so callers can check individual settings directly
func (g *Garden) GetNotificationSettings() NotificationSettings {
	if g.NotificationSettings == nil {
		return NotificationSettings{}
	}
	return *g.NotificationSettings
}

// Validate checks the fields needed to route messages and schedule lights
func (g *Garden) Validate() error {
	if g.TopicPrefix == "" {
		return errors.New("missing required field: topic_prefix")
	}
	if invalidTopicPrefix.MatchString(g.TopicPrefix) {
		return fmt.Errorf("topic_prefix %q must not contain whitespace or any of: $ # * > + /", g.TopicPrefix)
	}
	if g.LightSchedule != nil {
		err := g.LightSchedule.Validate()
		if err != nil {
			return fmt.Errorf("error validating light_schedule: %w", err)
		}
	}
	if g.NotificationSettings != nil && g.NotificationSettings.Downtime != nil && g.NotificationSettings.Downtime.Duration <= 0 {
		return errors.New("notification_settings.downtime must be positive")
	}
	return nil
}

// Patch allows modifying the struct in-place with values from a different instance
func (g *Garden) Patch(newGarden *Garden) {
	if newGarden.Name != "" {
		g.Name = newGarden.Name
	}
	if newGarden.TopicPrefix != "" {
		g.TopicPrefix = newGarden.TopicPrefix
	}
	if newGarden.MaxZones != nil {
		g.MaxZones = newGarden.MaxZones
	}
	if newGarden.CreatedAt != nil {
		g.CreatedAt = newGarden.CreatedAt
	}
	if g.EndDate != nil && newGarden.EndDate == nil {
		g.EndDate = newGarden.EndDate
	}
	if newGarden.LightSchedule != nil {
		if g.LightSchedule == nil {
			g.LightSchedule = &LightSchedule{}
		}
		g.LightSchedule.Patch(newGarden.LightSchedule)
	}
	if newGarden.ControllerConfig != nil {
		if g.ControllerConfig == nil {
			g.ControllerConfig = &ControllerConfig{}
		}
		g.ControllerConfig.Patch(newGarden.ControllerConfig)
	}
	if newGarden.NotificationClientID != nil {
		g.NotificationClientID = newGarden.NotificationClientID
	}
	if newGarden.NotificationSettings != nil {
		g.NotificationSettings = newGarden.NotificationSettings
	}
}
