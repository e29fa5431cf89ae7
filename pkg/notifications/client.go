// Package notifications holds notification client configs and creates the senders they describe
package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/notifications/fake"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/notifications/pushover"
)

// Client types
const (
	TypePushover = "pushover"
	TypeFake     = "fake"
)

// Sender delivers one notification
type Sender interface {
	SendMessage(ctx context.Context, title, message string) error
}

// NewSender creates the Sender for the Client's Type from its Options
func (nc *Client) NewSender(logger *slog.Logger) (Sender, error) {
	var s Sender
	var err error
	switch nc.Type {
	case TypePushover:
		s, err = pushover.NewClient(nc.Options, logger)
	case TypeFake:
		s, err = fake.NewClient(nc.Options)
	default:
		err = fmt.Errorf("invalid type '%s'", nc.Type)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SendMessage creates a Sender and sends one message with it
func (nc *Client) SendMessage(ctx context.Context, logger *slog.Logger, title, message string) error {
	s, err := nc.NewSender(logger)
	if err != nil {
		return fmt.Errorf("unable to create %q notification client %q: %w", nc.Type, nc.GetID(), err)
	}

	err = s.SendMessage(ctx, title, message)
	if err != nil {
		return fmt.Errorf("unable to send notification with client %q: %w", nc.GetID(), err)
	}
	return nil
}
