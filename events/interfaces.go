// Package events publishes language support completion outcomes on a
// gocloud.dev pubsub topic so other processes can follow installations.
package events

import (
	"context"
	"time"
)

// EventHeaderName is the message metadata key carrying the event name.
const EventHeaderName = "l10n.event"

const (
	EventSupportProgress  = "language.support.progress"
	EventSupportCompleted = "language.support.completed"
	EventSupportFailed    = "language.support.failed"
)

// SupportEvent is the message body of every support event.
type SupportEvent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Language    string    `json:"language"`
	Progress    int       `json:"progress,omitempty"`
	Transaction string    `json:"transaction,omitempty"`
	Status      string    `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Handler processes received support events.
type Handler interface {
	Handle(ctx context.Context, evt SupportEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, evt SupportEvent) error

func (f HandlerFunc) Handle(ctx context.Context, evt SupportEvent) error {
	return f(ctx, evt)
}
