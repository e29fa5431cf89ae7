// Package fake is a notification client that records messages instead of sending them
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Message is a notification received by the fake client
type Message struct {
	Title   string
	Message string
}

var (
	messagesMu sync.Mutex
	messages   []Message
)

// Messages returns every message sent since the last Reset
func Messages() []Message {
	messagesMu.Lock()
	defer messagesMu.Unlock()
	return append([]Message{}, messages...)
}

// LastMessage returns the most recent message, or an empty Message if there are none
func LastMessage() Message {
	messagesMu.Lock()
	defer messagesMu.Unlock()
	if len(messages) == 0 {
		return Message{}
	}
	return messages[len(messages)-1]
}

// Reset clears recorded messages
func Reset() {
	messagesMu.Lock()
	defer messagesMu.Unlock()
	messages = nil
}

// Config makes the fake fail on creation or on every send
type Config struct {
	CreateError      string `mapstructure:"create_error"`
	SendMessageError string `mapstructure:"send_message_error"`
}

// Client records messages in memory
type Client struct {
	*Config
}

// NewClient decodes options into Config
func NewClient(options map[string]any) (*Client, error) {
	client := &Client{}

	err := mapstructure.Decode(options, &client.Config)
	if err != nil {
		return nil, err
	}

	if client.Config.CreateError != "" {
		return nil, errors.New(client.CreateError)
	}

	return client, nil
}

// SendMessage records the message, or returns the configured error
func (c *Client) SendMessage(ctx context.Context, title, message string) error {
	if c.SendMessageError != "" {
		return errors.New(c.SendMessageError)
	}
	err := ctx.Err()
	if err != nil {
		return err
	}

	messagesMu.Lock()
	defer messagesMu.Unlock()
	messages = append(messages, Message{title, message})
	return nil
}
