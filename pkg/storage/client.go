package storage

import (
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/notifications"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/weather"
	"github.com/mitchellh/mapstructure"
	"github.com/tarmac-project/hord"
	"github.com/tarmac-project/hord/drivers/hashmap"
	"github.com/tarmac-project/hord/drivers/redis"
)

// Config is used to identify and configure a storage client
type Config struct {
	Driver  string         `mapstructure:"driver"`
	Options map[string]any `mapstructure:"options"`
}

// Client gives typed access to every stored resource
type Client struct {
	Gardens                   *TypedClient[*pkg.Garden]
	Zones                     *TypedClient[*pkg.Zone]
	WaterSchedules            *TypedClient[*pkg.WaterSchedule]
	WaterRoutines             *TypedClient[*pkg.WaterRoutine]
	WeatherClientConfigs      *TypedClient[*weather.Config]
	NotificationClientConfigs *TypedClient[*notifications.Client]

	db           hord.Database
	weatherCache *weather.Cache
}

// NewClient connects to the configured database. weatherCache is shared by all weather clients created
// with GetWeatherClient and may be nil
func NewClient(config Config, weatherCache *weather.Cache) (*Client, error) {
	db, err := newDatabase(config)
	if err != nil {
		return nil, err
	}

	bc := &baseClient{db: db}
	return &Client{
		Gardens:                   NewTypedClient[*pkg.Garden](bc, "Garden"),
		Zones:                     NewTypedClient[*pkg.Zone](bc, "Zone"),
		WaterSchedules:            NewTypedClient[*pkg.WaterSchedule](bc, "WaterSchedule"),
		WaterRoutines:             NewTypedClient[*pkg.WaterRoutine](bc, "WaterRoutine"),
		WeatherClientConfigs:      NewTypedClient[*weather.Config](bc, "WeatherClient"),
		NotificationClientConfigs: NewTypedClient[*notifications.Client](bc, "NotificationClient"),
		db:                        db,
		weatherCache:              weatherCache,
	}, nil
}

// Close disconnects from the database
func (c *Client) Close() {
	c.db.Close()
}

func newDatabase(config Config) (hord.Database, error) {
	var db hord.Database
	var err error
	switch config.Driver {
	case "hashmap":
		var cfg hashmap.Config
		err = mapstructure.Decode(config.Options, &cfg)
		if err != nil {
			return nil, fmt.Errorf("invalid hashmap options: %w", err)
		}
		db, err = hashmap.Dial(cfg)
	case "redis":
		var cfg redis.Config
		err = mapstructure.Decode(config.Options, &cfg)
		if err != nil {
			return nil, fmt.Errorf("invalid redis options: %w", err)
		}
		db, err = redis.Dial(cfg)
	default:
		return nil, fmt.Errorf("invalid storage driver '%s'", config.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating database connection: %w", err)
	}

	err = db.Setup()
	if err != nil {
		return nil, fmt.Errorf("error setting up database: %w", err)
	}

	return db, nil
}
