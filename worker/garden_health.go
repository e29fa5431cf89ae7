package worker

import (
	"context"
	"errors"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
)

var errNoInfluxDBClient = errors.New("InfluxDB client is not configured")

// GetGardenHealth returns a GardenHealth struct after querying InfluxDB for the Garden controller's last contact time
func (w *Worker) GetGardenHealth(ctx context.Context, g *pkg.Garden) pkg.GardenHealth {
	if w.influxdbClient == nil {
		return pkg.NewGardenHealth(clock.Now(), errNoInfluxDBClient, clock.Now())
	}

	ctx, cancel := context.WithTimeout(ctx, influxdb.QueryTimeout)
	defer cancel()

	lastContact, err := w.influxdbClient.GetLastContact(ctx, g.TopicPrefix)
	return pkg.NewGardenHealth(lastContact, err, clock.Now())
}

// GetWaterHistory returns the Zone's recent water commands joined with the controller's events
func (w *Worker) GetWaterHistory(ctx context.Context, g *pkg.Garden, z *pkg.Zone, timeRange time.Duration, limit uint64) ([]pkg.WaterHistory, error) {
	if w.influxdbClient == nil {
		return nil, errNoInfluxDBClient
	}

	ctx, cancel := context.WithTimeout(ctx, influxdb.QueryTimeout)
	defer cancel()

	return w.influxdbClient.GetWaterHistory(ctx, z.GetID(), g.TopicPrefix, timeRange, limit)
}
