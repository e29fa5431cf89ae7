package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/tarmac-project/hord"
)

// Resource is anything that can be stored by ID and soft-deleted
type Resource interface {
	GetID() string
	EndDated() bool
	SetEndDate(time.Time)
}

// FilterFunc is used to select resources in GetAll
type FilterFunc[T any] func(T) bool

// baseClient is shared by every TypedClient so read-modify-write updates are serialized
type baseClient struct {
	mu sync.Mutex
	db hord.Database
}

// TypedClient is a wrapper around hord.Database to allow for easy interactions with resources
type TypedClient[T Resource] struct {
	prefix    string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
	*baseClient
}

func NewTypedClient[T Resource](bc *baseClient, prefix string) *TypedClient[T] {
	return &TypedClient[T]{prefix, json.Marshal, json.Unmarshal, bc}
}

func (c *TypedClient[T]) key(id string) string {
	return fmt.Sprintf("%s_%s", c.prefix, id)
}

// Get will use the provided key to read data from the data source. Then, it will Unmarshal
// into the generic type. A missing resource is returned as the zero value without an error
func (c *TypedClient[T]) Get(_ context.Context, id string) (T, error) {
	result, _, err := c.get(c.key(id))
	return result, err
}

func (c *TypedClient[T]) get(key string) (T, bool, error) {
	if c.db == nil {
		return *new(T), false, errors.New("error missing database connection")
	}

	dataBytes, err := c.db.Get(key)
	if err != nil {
		if errors.Is(err, hord.ErrNil) {
			return *new(T), false, nil
		}
		return *new(T), false, fmt.Errorf("error getting data: %w", err)
	}

	var result T
	err = c.unmarshal(dataBytes, &result)
	if err != nil {
		return *new(T), false, fmt.Errorf("error parsing data: %w", err)
	}

	return result, true, nil
}

// GetAll reads every resource with this client's prefix, ordered by key, and keeps the ones accepted by filter
func (c *TypedClient[T]) GetAll(_ context.Context, filter FilterFunc[T]) ([]T, error) {
	keys, err := c.db.Keys()
	if err != nil {
		return nil, fmt.Errorf("error getting keys: %w", err)
	}
	sort.Strings(keys)

	results := []T{}
	for _, key := range keys {
		if !strings.HasPrefix(key, c.prefix+"_") {
			continue
		}

		result, found, err := c.get(key)
		if err != nil {
			return nil, fmt.Errorf("error getting data: %w", err)
		}
		if !found {
			continue
		}

		if filter == nil || filter(result) {
			results = append(results, result)
		}
	}

	return results, nil
}

// Set marshals the provided item and writes it to the database
func (c *TypedClient[T]) Set(_ context.Context, item T) error {
	return c.set(item)
}

func (c *TypedClient[T]) set(item T) error {
	asBytes, err := c.marshal(item)
	if err != nil {
		return fmt.Errorf("error marshalling data: %w", err)
	}

	err = c.db.Set(c.key(item.GetID()), asBytes)
	if err != nil {
		return fmt.Errorf("error writing data to database: %w", err)
	}

	return nil
}

// Update reads the resource, applies update, and writes it back. Concurrent updates are serialized.
// The updated resource is returned, or the zero value if it does not exist
func (c *TypedClient[T]) Update(_ context.Context, id string, update func(T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, found, err := c.get(c.key(id))
	if err != nil || !found {
		return *new(T), err
	}

	err = update(result)
	if err != nil {
		return *new(T), err
	}

	return result, c.set(result)
}

// Delete end-dates the resource. A resource that is already end-dated is removed permanently
func (c *TypedClient[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.key(id)
	result, found, err := c.get(key)
	if err != nil {
		return fmt.Errorf("error getting resource before deleting: %w", err)
	}
	if !found {
		return nil
	}
	if result.EndDated() {
		return c.db.Delete(key)
	}

	result.SetEndDate(clock.Now())
	return c.set(result)
}
