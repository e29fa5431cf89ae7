package weather

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/sony/gobreaker"
)

// CacheTTL is how long a weather reading is reused before the upstream API is queried again
const CacheTTL = 5 * time.Minute

const (
	breakerFailures = 3
	breakerTimeout  = time.Minute
)

// Metric identifies the kind of reading stored in the Cache
type Metric string

const (
	MetricTotalRain              Metric = "total_rain"
	MetricAverageHighTemperature Metric = "avg_high_temperature"
)

var cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "garden_app",
	Name:      "weather_cache_requests",
	Help:      "count of weather reading lookups by metric and result (hit, miss, error)",
}, []string{"metric", "result"})

// Collectors returns the metrics recorded by the Cache
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{cacheRequests}
}

type cacheEntry struct {
	value     float32
	fetchedAt time.Time
}

// Cache holds recent weather readings keyed by metric, client and lookback horizon. One Cache is shared
// by every weather client in the process. Freshness is judged by the injected clock. Each client ID also
// gets a circuit breaker so a failing upstream API is not called on every schedule
type Cache struct {
	mu       sync.Mutex
	clock    clock.Clock
	ttl      time.Duration
	// go-cache expires items by time.Now, so items never expire there and age is checked with clock
	items    *cache.Cache
	breakers map[xid.ID]*gobreaker.CircuitBreaker
}

// NewCache creates a Cache. Stale entries are ignored on read and removed by PurgeExpired
func NewCache(c clock.Clock, ttl time.Duration) *Cache {
	if c == nil {
		c = clock.New()
	}
	if ttl <= 0 {
		ttl = CacheTTL
	}
	return &Cache{
		clock:    c,
		ttl:      ttl,
		items:    cache.New(cache.NoExpiration, 0),
		breakers: map[xid.ID]*gobreaker.CircuitBreaker{},
	}
}

func cacheKey(metric Metric, id xid.ID, horizon time.Duration) string {
	return fmt.Sprintf("%s_%d_%s", metric, horizon.Milliseconds(), id)
}

// Get returns a reading if it was stored less than ttl ago
func (c *Cache) Get(metric Metric, id xid.ID, horizon time.Duration) (float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(cacheKey(metric, id, horizon))
}

func (c *Cache) get(key string) (float32, bool) {
	item, found := c.items.Get(key)
	if !found {
		return 0, false
	}

	entry := item.(cacheEntry)
	if c.clock.Since(entry.fetchedAt) >= c.ttl {
		c.items.Delete(key)
		return 0, false
	}
	return entry.value, true
}

// Set stores a reading with the current time
func (c *Cache) Set(metric Metric, id xid.ID, horizon time.Duration, value float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Set(cacheKey(metric, id, horizon), cacheEntry{value, c.clock.Now()}, cache.NoExpiration)
}

// ClearByID removes every reading and the breaker state for a weather client. It is used when
// the client's configuration changes
func (c *Cache) ClearByID(id xid.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	suffix := "_" + id.String()
	for key := range c.items.Items() {
		if strings.HasSuffix(key, suffix) {
			c.items.Delete(key)
		}
	}
	delete(c.breakers, id)
}

// PurgeExpired deletes every entry older than ttl and returns how many were removed
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, item := range c.items.Items() {
		entry := item.Object.(cacheEntry)
		if c.clock.Since(entry.fetchedAt) >= c.ttl {
			c.items.Delete(key)
			count++
		}
	}
	return count
}

// Len is the number of stored readings, including stale ones not yet purged
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

func (c *Cache) breaker(id xid.ID) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[id]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "weather-client-" + id.String(),
			Timeout: breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
		})
		c.breakers[id] = cb
	}
	return cb
}

// fetch returns a fresh cached reading or calls the upstream client through the breaker. The lock
// is not held during the upstream call
func (c *Cache) fetch(metric Metric, id xid.ID, horizon time.Duration, upstream func(time.Duration) (float32, error)) (float32, error) {
	if value, ok := c.Get(metric, id, horizon); ok {
		cacheRequests.WithLabelValues(string(metric), "hit").Inc()
		return value, nil
	}

	result, err := c.breaker(id).Execute(func() (any, error) {
		return upstream(horizon)
	})
	if err != nil {
		cacheRequests.WithLabelValues(string(metric), "error").Inc()
		return 0, err
	}

	value := result.(float32)
	c.Set(metric, id, horizon, value)
	cacheRequests.WithLabelValues(string(metric), "miss").Inc()
	return value, nil
}
