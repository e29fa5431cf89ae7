package weather

import (
	"fmt"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather/fake"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather/netatmo"
	"github.com/rs/xid"
)

// Config is used to identify and configure a client type
type Config struct {
	ID      xid.ID         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type" mapstructure:"type"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
	EndDate *time.Time     `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

func (wc *Config) GetID() string {
	return wc.ID.String()
}

// EndDated returns true if the Config is end-dated
func (wc *Config) EndDated() bool {
	return wc.EndDate != nil && wc.EndDate.Before(clock.Now())
}

func (wc *Config) SetEndDate(now time.Time) {
	wc.EndDate = &now
}

// Patch allows modifying the struct in-place with values from a different instance
func (wc *Config) Patch(newConfig *Config) {
	if newConfig.Type != "" {
		wc.Type = newConfig.Type
	}
	for k, v := range newConfig.Options {
		if wc.Options == nil {
			wc.Options = map[string]any{}
		}
		wc.Options[k] = v
	}
	if wc.EndDate != nil && newConfig.EndDate == nil {
		wc.EndDate = newConfig.EndDate
	}
}

// Client is an interface defining the possible methods used to interact with the weather client APIs
type Client interface {
	GetTotalRain(since time.Duration) (float32, error)
	GetAverageHighTemperature(since time.Duration) (float32, error)
}

// NewClient uses the config to create the correct type of weather client. When cache is provided,
// the client's results are shared through it with every other client using the same ID.
// storageCallback is used by clients that need to persist refreshed credentials
func NewClient(c *Config, cache *Cache, storageCallback func(map[string]any) error) (Client, error) {
	var client Client
	var err error
	switch c.Type {
	case "netatmo":
		client, err = netatmo.NewClient(c.Options, storageCallback)
	case "fake":
		client, err = fake.NewClient(c.Options)
	default:
		return nil, fmt.Errorf("invalid type '%s'", c.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating %s client: %w", c.Type, err)
	}

	if cache == nil {
		return client, nil
	}
	return &cachedClient{id: c.ID, client: client, cache: cache}, nil
}

type cachedClient struct {
	id     xid.ID
	client Client
	cache  *Cache
}

func (c *cachedClient) GetTotalRain(since time.Duration) (float32, error) {
	return c.cache.fetch(MetricTotalRain, c.id, since, c.client.GetTotalRain)
}

func (c *cachedClient) GetAverageHighTemperature(since time.Duration) (float32, error) {
	return c.cache.fetch(MetricAverageHighTemperature, c.id, since, c.client.GetAverageHighTemperature)
}
