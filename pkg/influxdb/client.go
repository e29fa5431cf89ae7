package influxdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/template"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// QueryTimeout is the default time to use for a query's context timeout
	QueryTimeout        = time.Millisecond * 1000
	healthQueryTemplate = `from(bucket: "{{.Bucket}}")
|> range(start: -{{.Start}})
|> filter(fn: (r) => r["_measurement"] == "health")
|> filter(fn: (r) => r["_field"] == "garden")
|> filter(fn: (r) => r["_value"] == "{{.TopicPrefix}}")
|> drop(columns: ["host"])
|> last()`
	waterHistoryQueryTemplate = `from(bucket: "{{.Bucket}}")
|> range(start: -{{.Start}})
|> filter(fn: (r) => r["_measurement"] == "water" or r["_measurement"] == "water_command")
|> filter(fn: (r) => r["topic"] == "{{.TopicPrefix}}/data/water" or r["topic"] == "{{.TopicPrefix}}/command/water")
|> filter(fn: (r) => r["zone_id"] == "{{.ZoneID}}")
|> drop(columns: ["host"])
|> sort(columns: ["_time"], desc: true)`
	temperatureAndHumidityQueryTemplate = `from(bucket: "{{.Bucket}}")
|> range(start: -{{.Start}})
|> filter(fn: (r) => r["_measurement"] == "temperature" or r["_measurement"] == "humidity")
|> filter(fn: (r) => r["_field"] == "value")
|> filter(fn: (r) => r["topic"] == "{{.TopicPrefix}}/data/temperature" or r["topic"] == "{{.TopicPrefix}}/data/humidity")
|> drop(columns: ["host"])
|> mean()`
)

var influxDBClientSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
	Namespace: "garden_app",
	Name:      "influxdb_client_duration_seconds",
	Help:      "summary of influxdb client calls",
}, []string{"function"})

// Collectors returns the metrics recorded by the InfluxDB client
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{influxDBClientSummary}
}

// Client is an interface that allows writing commands and events to InfluxDB and querying them
type Client interface {
	WriteCommand(context.Context, Command) error
	WriteEvent(context.Context, Event) error
	GetLastContact(context.Context, string) (time.Time, error)
	GetWaterHistory(context.Context, string, string, time.Duration, uint64) ([]pkg.WaterHistory, error)
	GetTemperatureAndHumidity(context.Context, string) (float64, float64, error)
	Close()
}

var _ Client = &client{}

// Config holds configuration values for connecting the the InfluxDB server
type Config struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// queryData is used to fill out any of the query templates
type queryData struct {
	Bucket      string
	Start       time.Duration
	ZoneID      string
	TopicPrefix string
}

// Render executes the specified template with the queryData to create a string
func (q queryData) Render(queryTemplate string) (string, error) {
	t := template.Must(template.New("query").Parse(queryTemplate))
	var queryBytes bytes.Buffer
	err := t.Execute(&queryBytes, q)
	if err != nil {
		return "", err
	}
	return queryBytes.String(), nil
}

// client wraps an InfluxDB2 Client and our custom config
type client struct {
	influxdb2.Client
	config Config
	writer api.WriteAPIBlocking
}

// NewClient creates an InfluxDB client from the viper config
func NewClient(config Config) Client {
	c := influxdb2.NewClient(config.Address, config.Token)
	return &client{
		Client: c,
		config: config,
		writer: c.WriteAPIBlocking(config.Org, config.Bucket),
	}
}

// Command is a message sent to a controller, recorded before the controller confirms it
type Command struct {
	TopicPrefix string
	Kind        string
	EventID     string
	ZoneID      string
	Position    *uint
	Source      string
	Duration    time.Duration
	State       string
	Time        time.Time
}

func (c Command) point() *write.Point {
	tags := map[string]string{
		"topic": fmt.Sprintf("%s/command/%s", c.TopicPrefix, c.Kind),
	}
	setTag(tags, "id", c.EventID)
	setTag(tags, "zone_id", c.ZoneID)
	setTag(tags, "source", c.Source)
	if c.Position != nil {
		tags["position"] = strconv.FormatUint(uint64(*c.Position), 10)
	}

	fields := map[string]any{
		"duration": c.Duration.Milliseconds(),
	}
	if c.State != "" {
		fields["state"] = c.State
	}

	return influxdb2.NewPoint(c.Kind+"_command", tags, fields, c.Time)
}

// Event is a message received from a controller. Kind is the last segment of the data topic
type Event struct {
	TopicPrefix string
	Kind        string
	EventID     string
	ZoneID      string
	Position    *uint
	Status      string
	Millis      int64
	Value       float64
	State       string
	Message     string
	Time        time.Time
}

func (e Event) point() (*write.Point, error) {
	tags := map[string]string{
		"topic": fmt.Sprintf("%s/data/%s", e.TopicPrefix, e.Kind),
	}

	var fields map[string]any
	switch e.Kind {
	case "water":
		setTag(tags, "status", e.Status)
		setTag(tags, "id", e.EventID)
		setTag(tags, "zone_id", e.ZoneID)
		if e.Position != nil {
			tags["zone"] = strconv.FormatUint(uint64(*e.Position), 10)
		}
		fields = map[string]any{"millis": e.Millis}
	case "temperature", "humidity":
		fields = map[string]any{"value": e.Value}
	case "health":
		fields = map[string]any{"garden": e.TopicPrefix}
	case "light":
		fields = map[string]any{"state": e.State}
	case "logs":
		fields = map[string]any{"message": e.Message}
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	return influxdb2.NewPoint(e.Kind, tags, fields, e.Time), nil
}

func setTag(tags map[string]string, key, value string) {
	if value != "" {
		tags[key] = value
	}
}

// WriteCommand records an outbound command
func (client *client) WriteCommand(ctx context.Context, cmd Command) error {
	timer := prometheus.NewTimer(influxDBClientSummary.WithLabelValues("WriteCommand"))
	defer timer.ObserveDuration()

	err := client.writer.WritePoint(ctx, cmd.point())
	if err != nil {
		return fmt.Errorf("error writing %s command: %w", cmd.Kind, err)
	}
	return nil
}

// WriteEvent records an inbound controller event
func (client *client) WriteEvent(ctx context.Context, event Event) error {
	timer := prometheus.NewTimer(influxDBClientSummary.WithLabelValues("WriteEvent"))
	defer timer.ObserveDuration()

	p, err := event.point()
	if err != nil {
		return err
	}
	err = client.writer.WritePoint(ctx, p)
	if err != nil {
		return fmt.Errorf("error writing %s event: %w", event.Kind, err)
	}
	return nil
}

// GetLastContact returns the time of the most recent health message from a Garden. The zero time
// is returned when there are no recent messages
func (client *client) GetLastContact(ctx context.Context, topicPrefix string) (time.Time, error) {
	timer := prometheus.NewTimer(influxDBClientSummary.WithLabelValues("GetLastContact"))
	defer timer.ObserveDuration()

	// Prepare query
	queryString, err := queryData{
		Bucket:      client.config.Bucket,
		Start:       time.Minute * 15,
		TopicPrefix: topicPrefix,
	}.Render(healthQueryTemplate)
	if err != nil {
		return time.Time{}, err
	}

	// Query InfluxDB
	queryAPI := client.QueryAPI(client.config.Org)
	queryResult, err := queryAPI.Query(ctx, queryString)
	if err != nil {
		return time.Time{}, err
	}

	// Read and return the result
	var result time.Time
	if queryResult.Next() {
		result = queryResult.Record().Time()
	}

	return result, queryResult.Err()
}

// GetWaterHistory gets recent water commands for a specific Zone joined with the events reported for them
func (client *client) GetWaterHistory(ctx context.Context, zoneID string, topicPrefix string, timeRange time.Duration, limit uint64) ([]pkg.WaterHistory, error) {
	timer := prometheus.NewTimer(influxDBClientSummary.WithLabelValues("GetWaterHistory"))
	defer timer.ObserveDuration()

	// Prepare query
	queryString, err := queryData{
		Bucket:      client.config.Bucket,
		Start:       timeRange,
		TopicPrefix: topicPrefix,
		ZoneID:      zoneID,
	}.Render(waterHistoryQueryTemplate)
	if err != nil {
		return nil, err
	}

	// Query InfluxDB
	queryAPI := client.QueryAPI(client.config.Org)
	queryResult, err := queryAPI.Query(ctx, queryString)
	if err != nil {
		return nil, err
	}

	records := []waterRecord{}
	for queryResult.Next() {
		r := queryResult.Record()
		eventID, _ := r.ValueByKey("id").(string)
		status, _ := r.ValueByKey("status").(string)
		source, _ := r.ValueByKey("source").(string)
		records = append(records, waterRecord{
			command: r.Measurement() == "water_command",
			eventID: eventID,
			status:  status,
			source:  source,
			value:   r.Value(),
			time:    r.Time(),
		})
	}
	if queryResult.Err() != nil {
		return nil, queryResult.Err()
	}

	return joinWaterHistory(records, limit)
}

// waterRecord is one row of the water history query
type waterRecord struct {
	command bool
	eventID string
	status  string
	source  string
	value   any
	time    time.Time
}

// joinWaterHistory groups records by event ID. Records are expected newest first and the result keeps
// that order. A command without any events has the sent status
func joinWaterHistory(records []waterRecord, limit uint64) ([]pkg.WaterHistory, error) {
	byID := map[string]*pkg.WaterHistory{}
	order := []string{}

	for _, r := range records {
		if r.eventID == "" {
			continue
		}
		millis, err := toMillis(r.value)
		if err != nil {
			return nil, fmt.Errorf("invalid water record %q: %w", r.eventID, err)
		}

		h, ok := byID[r.eventID]
		if !ok {
			h = &pkg.WaterHistory{EventID: r.eventID, Status: pkg.WaterStatusSent}
			byID[r.eventID] = h
			order = append(order, r.eventID)
		}

		switch {
		case r.command:
			h.SentAt = r.time
			h.Source = r.source
			if h.Duration.Duration == 0 {
				h.Duration = pkg.Duration{Duration: time.Duration(millis) * time.Millisecond}
			}
		case r.status == string(pkg.WaterStatusStarted):
			h.StartedAt = r.time
			if h.Status != pkg.WaterStatusCompleted {
				h.Status = pkg.WaterStatusStarted
			}
		case r.status == string(pkg.WaterStatusCompleted):
			h.CompletedAt = r.time
			h.Status = pkg.WaterStatusCompleted
			// completed events carry the actual run time
			h.Duration = pkg.Duration{Duration: time.Duration(millis) * time.Millisecond}
		}
	}

	result := []pkg.WaterHistory{}
	for _, id := range order {
		if limit > 0 && uint64(len(result)) >= limit {
			break
		}
		result = append(result, *byID[id])
	}
	return result, nil
}

func toMillis(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case nil:
		return 0, errors.New("missing value")
	default:
		return 0, fmt.Errorf("unexpected type for duration millis: %T", v)
	}
}

// GetTemperatureAndHumidity gets the recent temperature and humidity data for a Garden
func (client *client) GetTemperatureAndHumidity(ctx context.Context, topicPrefix string) (float64, float64, error) {
	timer := prometheus.NewTimer(influxDBClientSummary.WithLabelValues("GetTemperatureAndHumidity"))
	defer timer.ObserveDuration()

	queryString, err := queryData{
		Bucket:      client.config.Bucket,
		Start:       time.Minute * 15,
		TopicPrefix: topicPrefix,
	}.Render(temperatureAndHumidityQueryTemplate)
	if err != nil {
		return 0, 0, err
	}

	queryAPI := client.QueryAPI(client.config.Org)
	queryResult, err := queryAPI.Query(ctx, queryString)
	if err != nil {
		return 0, 0, err
	}

	var temperature float64
	var humidity float64
	for queryResult.Next() {
		value, ok := queryResult.Record().Value().(float64)
		if !ok {
			continue
		}
		switch queryResult.Record().Measurement() {
		case "temperature":
			temperature = value
		case "humidity":
			humidity = value
		}
	}

	return temperature, humidity, queryResult.Err()
}
