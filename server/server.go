// Package server wires the storage, MQTT, InfluxDB and weather clients into a running scheduler
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/metrics"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/mqtt"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/calvinmclean/automated-garden/garden-scheduler/worker"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	shutdownTimeout          = 10 * time.Second
)

// Server contains all of the necessary resources for running the scheduler
type Server struct {
	config         Config
	storageClient  *storage.Client
	influxdbClient influxdb.Client
	mqttClient     mqtt.Client
	worker         *worker.Worker
	metrics        *metrics.Metrics
	metricsServer  *http.Server
	logger         *slog.Logger
}

// NewServer creates all clients based on config. Nothing connects until Start. If validateData is set,
// every stored resource must be valid
func NewServer(cfg Config, validateData bool) (*Server, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	logger := cfg.LogConfig.NewLogger().With("source", "server")
	slog.SetDefault(logger)

	weatherCache := weather.NewCache(clock.New(), weather.CacheTTL)

	// Initialize Storage Client
	logger.Info("initializing storage client", "driver", cfg.StorageConfig.Driver)
	storageClient, err := storage.NewClient(cfg.StorageConfig, weatherCache)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize storage client: %w", err)
	}

	if validateData {
		err = validateAllStoredResources(context.Background(), storageClient)
		if err != nil {
			return nil, fmt.Errorf("error validating all existing stored data: %w", err)
		}
	}

	// Initialize InfluxDB Client
	logger.With(
		"address", cfg.InfluxDBConfig.Address,
		"org", cfg.InfluxDBConfig.Org,
		"bucket", cfg.InfluxDBConfig.Bucket,
	).Info("initializing InfluxDB client")
	influxdbClient := influxdb.NewClient(cfg.InfluxDBConfig)

	// Initialize Scheduler
	logger.Info("initializing scheduler")
	w, err := worker.NewWorker(storageClient, influxdbClient, nil, weatherCache, cfg.SchedulerConfig, cfg.LogConfig.NewLogger())
	if err != nil {
		return nil, err
	}

	// Initialize MQTT Client. Its subscriptions are handled by the Worker
	logger.With(
		"client_id", cfg.MQTTConfig.ClientID,
		"broker", cfg.MQTTConfig.Broker,
		"port", cfg.MQTTConfig.Port,
	).Info("initializing MQTT client")
	mqttClient, err := mqtt.NewClient(cfg.MQTTConfig, logger, mqtt.DefaultHandler(logger), w.TopicHandlers()...)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize MQTT client: %w", err)
	}
	w.SetMQTTClient(mqttClient)

	s := &Server{
		config:         cfg,
		storageClient:  storageClient,
		influxdbClient: influxdbClient,
		mqttClient:     mqttClient,
		worker:         w,
		logger:         logger,
	}

	if cfg.MetricsConfig.Address != "" {
		m := metrics.New(worker.Collectors()...)
		m.AddCollector(influxdb.Collectors()...)
		m.AddCollector(weather.Collectors()...)
		err = m.Register()
		if err != nil {
			return nil, fmt.Errorf("unable to register metrics: %w", err)
		}
		s.metrics = m

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		s.metricsServer = &http.Server{
			Addr:              cfg.MetricsConfig.Address,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
	}

	return s, nil
}

// Worker returns the scheduler so callers can execute actions against it
func (s *Server) Worker() *worker.Worker {
	return s.worker
}

// Storage returns the storage client shared by the scheduler
func (s *Server) Storage() *storage.Client {
	return s.storageClient
}

// Start connects to the broker, builds every Job from storage and starts the tick loop
func (s *Server) Start(ctx context.Context) error {
	err := s.mqttClient.Connect(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to MQTT broker: %w", err)
	}

	err = s.worker.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("unable to initialize scheduled jobs: %w", err)
	}

	err = s.worker.StartAsync()
	if err != nil {
		return fmt.Errorf("unable to start scheduler: %w", err)
	}

	if s.metricsServer != nil {
		go func() {
			s.logger.Info("serving metrics", "address", s.metricsServer.Addr)
			err := s.metricsServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	return nil
}

// Stop shuts down the scheduler and closes every client
func (s *Server) Stop() {
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := s.metricsServer.Shutdown(ctx)
		if err != nil {
			s.logger.Error("unable to shutdown metrics server", "error", err)
		}
	}

	s.worker.Stop()
	s.storageClient.Close()
	if s.metrics != nil {
		s.metrics.Unregister()
	}
}

// SeedResources saves resources read from r into the Server's storage. It is used before Start
func (s *Server) SeedResources(ctx context.Context, r io.Reader) (int, error) {
	resources, err := ReadResources(r)
	if err != nil {
		return 0, err
	}

	err = resources.Save(ctx, s.storageClient)
	if err != nil {
		return 0, err
	}

	count := resources.Count()
	s.logger.Info("saved resources", "count", count)
	return count, nil
}

// RunOptions change how Run starts the server
type RunOptions struct {
	// ValidateData requires every stored resource to be valid before starting
	ValidateData bool
	// ResourcesFile is a YAML file of Resources saved to storage before starting
	ResourcesFile string
}

// Run starts the server and blocks until it receives SIGINT or SIGTERM
func Run(cfg Config, opts RunOptions) error {
	s, err := NewServer(cfg, opts.ValidateData)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.ResourcesFile != "" {
		err = s.seedFromFile(ctx, opts.ResourcesFile)
		if err != nil {
			s.Stop()
			return err
		}
	}

	err = s.Start(ctx)
	if err != nil {
		s.Stop()
		return err
	}

	<-ctx.Done()
	shutdownStart := time.Now()
	s.logger.Info("gracefully shutting down server")
	s.Stop()
	s.logger.Info("server shutdown gracefully", "time_elapsed", time.Since(shutdownStart))

	return nil
}

func (s *Server) seedFromFile(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("unable to open resources file: %w", err)
	}
	defer f.Close()

	_, err = s.SeedResources(ctx, f)
	return err
}
