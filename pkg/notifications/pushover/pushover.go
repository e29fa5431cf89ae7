// Package pushover sends garden notifications to a Pushover user or group
package pushover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gregdel/pushover"
	"github.com/mitchellh/mapstructure"
)

// Config holds the tokens and delivery options read from a notification client's options
type Config struct {
	AppToken       string `mapstructure:"app_token"`
	RecipientToken string `mapstructure:"recipient_token"`
	// DeviceName limits delivery to one of the recipient's devices
	DeviceName string `mapstructure:"device_name"`
	// Priority is between -2 (lowest) and 1 (high). Emergency priority needs acknowledgement and is not allowed
	Priority int `mapstructure:"priority"`
}

func (c *Config) validate() error {
	if c.AppToken == "" {
		return errors.New("missing required app_token")
	}
	if c.RecipientToken == "" {
		return errors.New("missing required recipient_token")
	}
	if c.Priority < pushover.PriorityLowest || c.Priority > pushover.PriorityHigh {
		return fmt.Errorf("priority must be between %d and %d, got %d", pushover.PriorityLowest, pushover.PriorityHigh, c.Priority)
	}
	return nil
}

// Client sends messages with the Pushover API
type Client struct {
	Config
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    *slog.Logger
}

// NewClient decodes and validates options. Unknown option keys are an error so typos do not go unnoticed
func NewClient(options map[string]any, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := &Client{logger: logger.With("notification_type", "pushover")}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &client.Config,
	})
	if err != nil {
		return nil, err
	}
	err = decoder.Decode(options)
	if err != nil {
		return nil, fmt.Errorf("unable to decode pushover options: %w", err)
	}

	err = client.validate()
	if err != nil {
		return nil, err
	}

	client.app = pushover.New(client.AppToken)
	client.recipient = pushover.NewRecipient(client.RecipientToken)

	return client, nil
}

// SendMessage sends a message unless ctx is already done. The Pushover library does not take a context,
// so a request in flight is not interrupted
func (c *Client) SendMessage(ctx context.Context, title, message string) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("not sending pushover message: %w", err)
	}

	msg := c.newMessage(title, message)
	resp, err := c.app.SendMessage(msg, c.recipient)
	if err != nil {
		return fmt.Errorf("unable to send pushover message %q: %w", title, err)
	}

	c.logger.Debug("sent pushover message", "title", title, "request_id", resp.ID)
	return nil
}

func (c *Client) newMessage(title, message string) *pushover.Message {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.DeviceName = c.DeviceName
	msg.Priority = c.Priority
	return msg
}
