package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/mqtt"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

const (
	defaultTick         = time.Minute
	weatherPurgeEvery   = 10 * time.Minute
	mqttDisconnectDelay = 100
)

var (
	scheduleJobsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "garden_app",
		Name:      "scheduled_jobs",
		Help:      "gauge of the currently-scheduled jobs",
	}, []string{"type", "id"})
	schedulerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garden_app",
		Name:      "scheduler_errors",
		Help:      "count of errors that occur in the background and do not have any visibility except logs",
	}, []string{"type", "id"})
)

// Collectors returns the metrics recorded by the Worker
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{scheduleJobsGauge, schedulerErrors}
}

// Config controls the tick loop. Location is used for light start times that do not have a zone offset
type Config struct {
	Tick     *pkg.Duration `mapstructure:"tick" yaml:"tick"`
	Location string        `mapstructure:"location" yaml:"location"`
}

// Validate checks the tick cadence and location
func (c Config) Validate() error {
	if c.Tick != nil {
		if c.Tick.Cron != "" {
			_, err := cron.ParseStandard(c.Tick.Cron)
			if err != nil {
				return fmt.Errorf("invalid tick cron expression: %w", err)
			}
		} else if c.Tick.Duration <= 0 {
			return fmt.Errorf("tick must be positive, got %s", c.Tick)
		}
	}
	_, err := c.location()
	return err
}

func (c Config) tick() *pkg.Duration {
	if c.Tick == nil {
		return pkg.NewDuration(defaultTick)
	}
	return c.Tick
}

func (c Config) location() (*time.Location, error) {
	if c.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", c.Location, err)
	}
	return loc, nil
}

// Worker contains the necessary clients to schedule and execute actions
type Worker struct {
	storageClient  *storage.Client
	influxdbClient influxdb.Client
	mqttClient     mqtt.Client
	mqttMu         sync.RWMutex
	scaler         *weather.Scaler
	weatherCache   *weather.Cache

	registry  *Registry
	scheduler *gocron.Scheduler
	tick      *pkg.Duration
	location  *time.Location
	tickMu    sync.Mutex

	logger *slog.Logger
}

// NewWorker creates a Worker with specified clients. The MQTT client can be set later with SetMQTTClient
// because its subscriptions are handled by the Worker
func NewWorker(
	storageClient *storage.Client,
	influxdbClient influxdb.Client,
	mqttClient mqtt.Client,
	weatherCache *weather.Cache,
	config Config,
	logger *slog.Logger,
) (*Worker, error) {
	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	loc, _ := config.location()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.CustomTime(clock.DefaultClock)
	scheduler.SingletonModeAll()

	logger = logger.With("source", "worker")
	return &Worker{
		storageClient:  storageClient,
		influxdbClient: influxdbClient,
		mqttClient:     mqttClient,
		scaler:         weather.NewScaler(storageClient, logger),
		weatherCache:   weatherCache,
		registry:       NewRegistry(),
		scheduler:      scheduler,
		tick:           config.tick(),
		location:       loc,
		logger:         logger,
	}, nil
}

// SetMQTTClient sets the client used to publish commands. It is safe to call while ticks are running
func (w *Worker) SetMQTTClient(mqttClient mqtt.Client) {
	w.mqttMu.Lock()
	defer w.mqttMu.Unlock()
	w.mqttClient = mqttClient
}

func (w *Worker) publisher() mqtt.Client {
	w.mqttMu.RLock()
	defer w.mqttMu.RUnlock()
	return w.mqttClient
}

// Registry exposes the scheduled Jobs
func (w *Worker) Registry() *Registry {
	return w.registry
}

// StartAsync starts the tick loop and background maintenance
func (w *Worker) StartAsync() error {
	_, err := w.tick.SchedulerFunc(w.scheduler).Tag("tick").Do(func() {
		w.Tick(context.Background(), clock.Now())
	})
	if err != nil {
		return fmt.Errorf("error scheduling tick: %w", err)
	}

	if w.weatherCache != nil {
		_, err = w.scheduler.Every(weatherPurgeEvery).WaitForSchedule().Tag("weather_cache").Do(func() {
			purged := w.weatherCache.PurgeExpired()
			w.logger.Debug("purged expired weather readings", "count", purged)
		})
		if err != nil {
			return fmt.Errorf("error scheduling weather cache purge: %w", err)
		}
	}

	w.scheduler.StartAsync()
	return nil
}

// Stop stops the Worker's background jobs
func (w *Worker) Stop() {
	w.scheduler.Stop()
	if mqttClient := w.publisher(); mqttClient != nil {
		mqttClient.Disconnect(mqttDisconnectDelay)
	}
	if w.influxdbClient != nil {
		w.influxdbClient.Close()
	}
}

func (w *Worker) contextLogger(g *pkg.Garden, z *pkg.Zone, ws *pkg.WaterSchedule) *slog.Logger {
	logger := w.logger.With()
	if g != nil {
		logger = logger.With("garden_id", g.ID.String())
	}
	if z != nil {
		logger = logger.With("zone_id", z.ID.String())
	}
	if ws != nil {
		logger = logger.With("water_schedule_id", ws.ID.String())
	}
	return logger
}

func zoneLabels(z *pkg.Zone) []string {
	return []string{"zone", z.ID.String()}
}

func gardenLabels(g *pkg.Garden) []string {
	return []string{"garden", g.ID.String()}
}

func waterScheduleLabels(ws *pkg.WaterSchedule) []string {
	return []string{"water_schedule", ws.ID.String()}
}

func jobLabels(j Job) []string {
	return []string{string(j.Kind), j.Target.String()}
}
