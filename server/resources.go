package server

import (
	"context"
	"fmt"
	"io"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/notifications"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"gopkg.in/yaml.v3"
)

// Resources is a set of stored resources read from a YAML document. It is used to seed or update storage
// without an API
type Resources struct {
	Gardens             []*pkg.Garden           `yaml:"gardens,omitempty"`
	Zones               []*pkg.Zone             `yaml:"zones,omitempty"`
	WaterSchedules      []*pkg.WaterSchedule    `yaml:"water_schedules,omitempty"`
	WaterRoutines       []*pkg.WaterRoutine     `yaml:"water_routines,omitempty"`
	WeatherClients      []*weather.Config       `yaml:"weather_clients,omitempty"`
	NotificationClients []*notifications.Client `yaml:"notification_clients,omitempty"`
}

// ReadResources decodes a YAML document of Resources
func ReadResources(r io.Reader) (*Resources, error) {
	var resources Resources
	err := yaml.NewDecoder(r).Decode(&resources)
	if err != nil {
		return nil, fmt.Errorf("unable to decode resources: %w", err)
	}
	return &resources, nil
}

// Count is the total number of resources
func (r *Resources) Count() int {
	return len(r.Gardens) + len(r.Zones) + len(r.WaterSchedules) + len(r.WaterRoutines) +
		len(r.WeatherClients) + len(r.NotificationClients)
}

// Save writes every resource to storage, replacing any with the same ID. Everything is written and then
// the whole store is validated, so resources can reference each other in any order
func (r *Resources) Save(ctx context.Context, storageClient *storage.Client) error {
	for _, wc := range r.WeatherClients {
		err := storageClient.SaveWeatherClientConfig(ctx, wc)
		if err != nil {
			return fmt.Errorf("unable to save WeatherClient %q: %w", wc.ID, err)
		}
	}
	for _, nc := range r.NotificationClients {
		err := storageClient.NotificationClientConfigs.Set(ctx, nc)
		if err != nil {
			return fmt.Errorf("unable to save NotificationClient %q: %w", nc.ID, err)
		}
	}
	for _, g := range r.Gardens {
		err := storageClient.Gardens.Set(ctx, g)
		if err != nil {
			return fmt.Errorf("unable to save Garden %q: %w", g.ID, err)
		}
	}
	for _, z := range r.Zones {
		err := storageClient.Zones.Set(ctx, z)
		if err != nil {
			return fmt.Errorf("unable to save Zone %q: %w", z.ID, err)
		}
	}
	for _, ws := range r.WaterSchedules {
		err := storageClient.WaterSchedules.Set(ctx, ws)
		if err != nil {
			return fmt.Errorf("unable to save WaterSchedule %q: %w", ws.ID, err)
		}
	}
	for _, wr := range r.WaterRoutines {
		err := storageClient.WaterRoutines.Set(ctx, wr)
		if err != nil {
			return fmt.Errorf("unable to save WaterRoutine %q: %w", wr.ID, err)
		}
	}

	return validateAllStoredResources(ctx, storageClient)
}

// LoadResources reads Resources from r and saves them with the storage configured in cfg
func LoadResources(ctx context.Context, cfg Config, r io.Reader) (int, error) {
	resources, err := ReadResources(r)
	if err != nil {
		return 0, err
	}

	storageClient, err := storage.NewClient(cfg.StorageConfig, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to initialize storage client: %w", err)
	}
	defer storageClient.Close()

	err = resources.Save(ctx, storageClient)
	if err != nil {
		return 0, err
	}
	return resources.Count(), nil
}
