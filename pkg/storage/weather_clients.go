package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/rs/xid"
)

var _ weather.ClientGetter = &Client{}

// GetWeatherClient creates the weather client for a stored config. Clients share the Client's weather cache.
// Options changed by the client, like refreshed tokens, are saved back to storage
func (c *Client) GetWeatherClient(id xid.ID) (weather.Client, error) {
	ctx := context.Background()
	clientConfig, err := c.WeatherClientConfigs.Get(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("error getting weather client config: %w", err)
	}

	if clientConfig == nil {
		return nil, errors.New("weather client config not found")
	}

	return weather.NewClient(clientConfig, c.weatherCache, func(weatherClientOptions map[string]any) error {
		clientConfig.Options = weatherClientOptions
		return c.WeatherClientConfigs.Set(ctx, clientConfig)
	})
}

// SaveWeatherClientConfig stores the config and drops any cached readings from its previous configuration
func (c *Client) SaveWeatherClientConfig(ctx context.Context, config *weather.Config) error {
	err := c.WeatherClientConfigs.Set(ctx, config)
	if err != nil {
		return err
	}
	if c.weatherCache != nil {
		c.weatherCache.ClearByID(config.ID)
	}
	return nil
}

// GetWaterSchedulesUsingWeatherClient will return all WaterSchedules that rely on this WeatherClient
func (c *Client) GetWaterSchedulesUsingWeatherClient(ctx context.Context, id xid.ID) ([]*pkg.WaterSchedule, error) {
	waterSchedules, err := c.WaterSchedules.GetAll(ctx, func(ws *pkg.WaterSchedule) bool {
		if ws.EndDated() || !ws.HasWeatherControl() {
			return false
		}
		if ws.HasRainControl() && ws.WeatherControl.Rain.ClientID == id {
			return true
		}
		if ws.HasTemperatureControl() && ws.WeatherControl.Temperature.ClientID == id {
			return true
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get all WaterSchedules: %w", err)
	}

	return waterSchedules, nil
}
