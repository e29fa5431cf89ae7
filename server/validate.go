package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
)

// validateAllStoredResources will read all resources from storage and make sure they are valid for the types
func validateAllStoredResources(ctx context.Context, storageClient *storage.Client) error {
	gardens, err := storageClient.Gardens.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get all Gardens: %w", err)
	}

	for _, g := range gardens {
		if g.ID.IsNil() {
			return errors.New("invalid Garden: missing required field 'id'")
		}
		err = g.Validate()
		if err != nil {
			return fmt.Errorf("invalid Garden %q: %w", g.ID, err)
		}
	}

	zones, err := storageClient.Zones.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get all Zones: %w", err)
	}

	for _, z := range zones {
		if z.ID.IsNil() {
			return errors.New("invalid Zone: missing required field 'id'")
		}
		if z.GardenID.IsNil() {
			return fmt.Errorf("invalid Zone %q: missing required field 'garden_id'", z.ID)
		}
		if z.Position == nil {
			return fmt.Errorf("invalid Zone %q: missing required field 'position'", z.ID)
		}
	}

	waterSchedules, err := storageClient.WaterSchedules.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get all WaterSchedules: %w", err)
	}

	for _, ws := range waterSchedules {
		if ws.ID.IsNil() {
			return errors.New("invalid WaterSchedule: missing required field 'id'")
		}
		err = ws.Validate()
		if err != nil {
			return fmt.Errorf("invalid WaterSchedule %q: %w", ws.ID, err)
		}
	}

	waterRoutines, err := storageClient.WaterRoutines.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get all WaterRoutines: %w", err)
	}

	for _, wr := range waterRoutines {
		if wr.ID.IsNil() {
			return errors.New("invalid WaterRoutine: missing required field 'id'")
		}
		err = wr.Validate()
		if err != nil {
			return fmt.Errorf("invalid WaterRoutine %q: %w", wr.ID, err)
		}
	}

	weatherClients, err := storageClient.WeatherClientConfigs.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get all WeatherClients: %w", err)
	}

	for _, wc := range weatherClients {
		if wc.ID.IsNil() {
			return errors.New("invalid WeatherClient: missing required field 'id'")
		}
		if wc.Type == "" {
			return fmt.Errorf("invalid WeatherClient %q: missing required type field", wc.ID)
		}
		_, err = weather.NewClient(wc, nil, nil)
		if err != nil {
			return fmt.Errorf("invalid WeatherClient %q: %w", wc.ID, err)
		}
	}

	notificationClients, err := storageClient.NotificationClientConfigs.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get all NotificationClients: %w", err)
	}

	for _, nc := range notificationClients {
		if nc.ID.IsNil() {
			return errors.New("invalid NotificationClient: missing required field 'id'")
		}
		err = nc.Validate()
		if err != nil {
			return fmt.Errorf("invalid NotificationClient %q: %w", nc.ID, err)
		}
	}

	return nil
}
