package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err      error
	timedOut bool
}

func (t *fakeToken) Wait() bool                     { return !t.timedOut }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

// fakePahoClient implements the parts of the paho client used here
type fakePahoClient struct {
	mqtt.Client
	open         bool
	connectErrs  []error
	connectCalls int
	publishToken *fakeToken
	published    map[string][]byte
	subscribed   map[string]byte
}

func (f *fakePahoClient) IsConnectionOpen() bool { return f.open }

func (f *fakePahoClient) Connect() mqtt.Token {
	f.connectCalls++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return &fakeToken{err: err}
	}
	f.open = true
	return &fakeToken{}
}

func (f *fakePahoClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	f.published[topic] = payload.([]byte)
	if f.publishToken != nil {
		return f.publishToken
	}
	return &fakeToken{}
}

func (f *fakePahoClient) SubscribeMultiple(filters map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	f.subscribed = filters
	return &fakeToken{}
}

func (f *fakePahoClient) Disconnect(uint) {
	f.open = false
}

func newTestClient(t *testing.T, fake *fakePahoClient, handlers ...TopicHandler) *client {
	t.Helper()
	c, err := NewClient(Config{Broker: "localhost", Port: 1883, ClientID: "test", MaxRetries: 1}, slog.Default(), nil, handlers...)
	require.NoError(t, err)
	result := c.(*client)
	result.Client = fake
	return result
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{}, slog.Default(), nil)
	assert.EqualError(t, err, "missing required field: broker")

	_, err = NewClient(Config{Broker: "localhost", QOS: 3}, slog.Default(), nil)
	assert.EqualError(t, err, "invalid qos 3, must be 0, 1, or 2")
}

func TestClientOptions(t *testing.T) {
	c := &client{
		config: Config{Broker: "localhost", Port: 1883, ClientID: "garden-app", User: "user", Password: "pass"},
		logger: slog.Default(),
	}
	opts := c.clientOptions(nil)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", opts.Servers[0].String())
	assert.Equal(t, "garden-app", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "pass", opts.Password)
	assert.True(t, opts.AutoReconnect)
	assert.Equal(t, defaultConnectTimeout, opts.ConnectTimeout)
	assert.NotNil(t, opts.OnConnect)
}

func TestPublish(t *testing.T) {
	t.Run("NotConnected", func(t *testing.T) {
		fake := &fakePahoClient{}
		c := newTestClient(t, fake)
		err := c.Publish("garden/command/water", []byte("{}"))
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.Empty(t, fake.published)
	})

	t.Run("Successful", func(t *testing.T) {
		fake := &fakePahoClient{open: true}
		c := newTestClient(t, fake)
		err := c.Publish("garden/command/water", []byte("{}"))
		assert.NoError(t, err)
		assert.Equal(t, []byte("{}"), fake.published["garden/command/water"])
	})

	t.Run("TokenError", func(t *testing.T) {
		fake := &fakePahoClient{open: true, publishToken: &fakeToken{err: errors.New("broker error")}}
		c := newTestClient(t, fake)
		err := c.Publish("garden/command/water", []byte("{}"))
		assert.EqualError(t, err, "unable to publish MQTT message: broker error")
	})

	t.Run("Timeout", func(t *testing.T) {
		fake := &fakePahoClient{open: true, publishToken: &fakeToken{timedOut: true}}
		c := newTestClient(t, fake)
		err := c.Publish("garden/command/water", []byte("{}"))
		assert.EqualError(t, err, "unable to publish MQTT message: timed out after 5s")
	})
}

func TestConnect(t *testing.T) {
	t.Run("RetriesUntilConnected", func(t *testing.T) {
		fake := &fakePahoClient{connectErrs: []error{errors.New("connection refused")}}
		c := newTestClient(t, fake)
		err := c.Connect(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, fake.connectCalls)
		assert.True(t, fake.open)
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		fake := &fakePahoClient{connectErrs: []error{errors.New("refused"), errors.New("refused"), errors.New("refused")}}
		c := newTestClient(t, fake)
		err := c.Connect(context.Background())
		assert.EqualError(t, err, "unable to connect to MQTT broker: refused")
		assert.Equal(t, 2, fake.connectCalls)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fake := &fakePahoClient{connectErrs: []error{errors.New("refused"), errors.New("refused")}}
		c := newTestClient(t, fake)
		err := c.Connect(ctx)
		assert.Error(t, err)
		assert.Equal(t, 1, fake.connectCalls)
	})
}

func TestOnConnectSubscribesAndRoutes(t *testing.T) {
	var waterMessages, healthMessages int
	fake := &fakePahoClient{open: true}
	c := newTestClient(t, fake,
		TopicHandler{Topic: WaterDataTopic, Handler: func(mqtt.Client, mqtt.Message) { waterMessages++ }},
		TopicHandler{Topic: HealthDataTopic, Handler: func(mqtt.Client, mqtt.Message) { healthMessages++ }},
	)

	c.onConnect(fake)
	assert.Equal(t, map[string]byte{WaterDataTopic: 0, HealthDataTopic: 0}, fake.subscribed)

	c.route(fake, fakeMessage{topic: "garden/data/water", payload: []byte("water")})
	c.route(fake, fakeMessage{topic: "garden/data/water", payload: []byte("water")})
	c.route(fake, fakeMessage{topic: "garden/data/health", payload: []byte("health")})
	c.route(fake, fakeMessage{topic: "garden/data/logs", payload: []byte("logs")})

	assert.Equal(t, 2, waterMessages)
	assert.Equal(t, 1, healthMessages)

	// reconnect subscribes again
	fake.subscribed = nil
	c.onConnect(fake)
	assert.Len(t, fake.subscribed, 2)
}

func TestDisconnect(t *testing.T) {
	fake := &fakePahoClient{open: true}
	c := newTestClient(t, fake)
	c.Disconnect(0)
	assert.False(t, fake.open)
}
