package notifications

import (
	"errors"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/rs/xid"
)

// Client is used to interact with an external notification API. It has generic options to allow multiple Client implementations
type Client struct {
	ID      xid.ID         `json:"id" yaml:"id"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type    string         `json:"type" yaml:"type"`
	Options map[string]any `json:"options" yaml:"options"`
	EndDate *time.Time     `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

// Validate checks required fields and makes sure the implementation can be created with the Options
func (nc *Client) Validate() error {
	if nc.Type == "" {
		return errors.New("missing required type field")
	}
	if nc.Options == nil {
		return errors.New("missing required options field")
	}
	_, err := nc.NewSender(nil)
	return err
}

// GetID returns the string form of the ID
func (nc *Client) GetID() string {
	return nc.ID.String()
}

// Patch allows modifying an existing Config with fields from a new one
func (nc *Client) Patch(newConfig *Client) {
	if newConfig.Name != "" {
		nc.Name = newConfig.Name
	}
	if newConfig.Type != "" {
		nc.Type = newConfig.Type
	}

	if nc.Options == nil && newConfig.Options != nil {
		nc.Options = map[string]any{}
	}
	for k, v := range newConfig.Options {
		nc.Options[k] = v
	}

	if nc.EndDate != nil && newConfig.EndDate == nil {
		nc.EndDate = newConfig.EndDate
	}
}

// EndDated returns true if the Client is end-dated
func (nc *Client) EndDated() bool {
	return nc.EndDate != nil && nc.EndDate.Before(clock.Now())
}

// SetEndDate soft deletes the Client
func (nc *Client) SetEndDate(now time.Time) {
	nc.EndDate = &now
}
