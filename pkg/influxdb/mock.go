package influxdb

import (
	"context"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client
type MockClient struct {
	mock.Mock
}

var _ Client = &MockClient{}

func (c *MockClient) WriteCommand(ctx context.Context, cmd Command) error {
	args := c.Called(ctx, cmd)
	return args.Error(0)
}

func (c *MockClient) WriteEvent(ctx context.Context, event Event) error {
	args := c.Called(ctx, event)
	return args.Error(0)
}

func (c *MockClient) GetLastContact(ctx context.Context, topicPrefix string) (time.Time, error) {
	args := c.Called(ctx, topicPrefix)
	return args.Get(0).(time.Time), args.Error(1)
}

func (c *MockClient) GetWaterHistory(ctx context.Context, zoneID string, topicPrefix string, timeRange time.Duration, limit uint64) ([]pkg.WaterHistory, error) {
	args := c.Called(ctx, zoneID, topicPrefix, timeRange, limit)
	return args.Get(0).([]pkg.WaterHistory), args.Error(1)
}

func (c *MockClient) GetTemperatureAndHumidity(ctx context.Context, topicPrefix string) (float64, float64, error) {
	args := c.Called(ctx, topicPrefix)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func (c *MockClient) Close() {
	c.Called()
}
