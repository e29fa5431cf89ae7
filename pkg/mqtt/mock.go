package mqtt

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client
type MockClient struct {
	mock.Mock
}

var _ Client = &MockClient{}

func (c *MockClient) Connect(ctx context.Context) error {
	args := c.Called(ctx)
	return args.Error(0)
}

func (c *MockClient) Publish(topic string, message []byte) error {
	args := c.Called(topic, message)
	return args.Error(0)
}

func (c *MockClient) Disconnect(quiesce uint) {
	c.Called(quiesce)
}
