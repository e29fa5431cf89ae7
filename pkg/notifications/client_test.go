package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/notifications/fake"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/notifications/pushover"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPatch(t *testing.T) {
	tests := []struct {
		name      string
		newConfig *Client
	}{
		{
			"PatchType",
			&Client{Type: "other_type"},
		},
		{
			"PatchName",
			&Client{Name: "phone"},
		},
		{
			"PatchOptions",
			&Client{Options: map[string]interface{}{
				"key": "value",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{}
			c.Patch(tt.newConfig)
			assert.Equal(t, tt.newConfig, c)
		})
	}

	t.Run("MergeOptions", func(t *testing.T) {
		c := &Client{Options: map[string]any{"app_token": "a"}}
		c.Patch(&Client{Options: map[string]any{"recipient_token": "b"}})
		assert.Equal(t, map[string]any{"app_token": "a", "recipient_token": "b"}, c.Options)
	})
}

func TestClientValidate(t *testing.T) {
	tests := []struct {
		name        string
		client      *Client
		expectedErr string
	}{
		{"Valid", &Client{Type: "fake", Options: map[string]any{}}, ""},
		{"MissingType", &Client{Options: map[string]any{}}, "missing required type field"},
		{"MissingOptions", &Client{Type: "fake"}, "missing required options field"},
		{"InvalidType", &Client{Type: "DNE", Options: map[string]any{}}, "invalid type 'DNE'"},
		{"CreateError", &Client{Type: "fake", Options: map[string]any{"create_error": "bad"}}, "bad"},
		{"PushoverMissingToken", &Client{Type: "pushover", Options: map[string]any{}}, "missing required app_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedErr)
		})
	}
}

func TestSendMessage(t *testing.T) {
	defer fake.Reset()
	ctx := context.Background()

	c := &Client{ID: xid.New(), Type: TypeFake, Options: map[string]any{}}
	assert.NoError(t, c.SendMessage(ctx, nil, "title", "message"))
	assert.Equal(t, fake.Message{Title: "title", Message: "message"}, fake.LastMessage())

	t.Run("SendError", func(t *testing.T) {
		c.Options["send_message_error"] = "failed"
		defer delete(c.Options, "send_message_error")

		err := c.SendMessage(ctx, nil, "title", "message")
		assert.EqualError(t, err, fmt.Sprintf("unable to send notification with client %q: failed", c.GetID()))
		assert.Len(t, fake.Messages(), 1)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := c.SendMessage(cancelled, nil, "title", "message")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, fake.Messages(), 1)
	})

	t.Run("InvalidType", func(t *testing.T) {
		invalid := &Client{ID: c.ID, Type: "DNE"}
		err := invalid.SendMessage(ctx, nil, "", "")
		assert.EqualError(t, err, fmt.Sprintf("unable to create \"DNE\" notification client %q: invalid type 'DNE'", c.GetID()))
	})
}

func TestNewSender(t *testing.T) {
	s, err := (&Client{Type: TypePushover, Options: map[string]any{"app_token": "a", "recipient_token": "r"}}).NewSender(slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &pushover.Client{}, s)

	s, err = (&Client{Type: TypeFake, Options: map[string]any{}}).NewSender(nil)
	require.NoError(t, err)
	assert.IsType(t, &fake.Client{}, s)

	s, err = (&Client{Type: TypePushover, Options: map[string]any{}}).NewSender(nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestEndDated(t *testing.T) {
	assert.False(t, (&Client{}).EndDated())

	c := &Client{}
	c.SetEndDate(time.Now().Add(-time.Minute))
	assert.True(t, c.EndDated())
}
