package server

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/calvinmclean/automated-garden/garden-scheduler/worker"
)

// JobSchedule describes a scheduled Job and when it fires next
type JobSchedule struct {
	Kind        worker.JobKind `json:"kind" yaml:"kind"`
	Target      string         `json:"target" yaml:"target"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	DelayedFrom *time.Time     `json:"delayed_from,omitempty" yaml:"delayed_from,omitempty"`
	Next        []time.Time    `json:"next" yaml:"next"`
}

// ScheduledJobs builds the Jobs for everything in storage, without connecting to MQTT or InfluxDB, and
// returns the next count fire times of each. If resources is not nil it is saved to storage first
func ScheduledJobs(ctx context.Context, cfg Config, resources io.Reader, count int) ([]JobSchedule, error) {
	err := cfg.SchedulerConfig.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}

	storageClient, err := storage.NewClient(cfg.StorageConfig, weather.NewCache(clock.New(), weather.CacheTTL))
	if err != nil {
		return nil, fmt.Errorf("unable to initialize storage client: %w", err)
	}
	defer storageClient.Close()

	if resources != nil {
		r, err := ReadResources(resources)
		if err != nil {
			return nil, err
		}
		err = r.Save(ctx, storageClient)
		if err != nil {
			return nil, err
		}
	}

	w, err := worker.NewWorker(storageClient, nil, nil, nil, cfg.SchedulerConfig, cfg.LogConfig.NewLogger())
	if err != nil {
		return nil, err
	}
	err = w.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	result := []JobSchedule{}
	for _, job := range w.Registry().Jobs() {
		name, err := jobTargetName(ctx, storageClient, job)
		if err != nil {
			return nil, err
		}

		result = append(result, JobSchedule{
			Kind:        job.Kind,
			Target:      job.Target.String(),
			Name:        name,
			DelayedFrom: job.DelayedFrom,
			Next:        job.Upcoming(count),
		})
	}
	return result, nil
}

func jobTargetName(ctx context.Context, storageClient *storage.Client, job worker.Job) (string, error) {
	if job.Kind == worker.JobKindWater {
		ws, err := storageClient.WaterSchedules.Get(ctx, job.Target.String())
		if err != nil || ws == nil {
			return "", err
		}
		return ws.Name, nil
	}

	g, err := storageClient.Gardens.Get(ctx, job.Target.String())
	if err != nil || g == nil {
		return "", err
	}
	return g.Name, nil
}
