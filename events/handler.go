package events

import (
	"context"
	"encoding/json"
	"errors"

	_ "github.com/pitabwire/natspubsub" // required for NATS pubsub driver registration
	"github.com/pitabwire/util"
	"gocloud.dev/pubsub"
)

// Subscriber receives support events from a pubsub subscription.
type Subscriber struct {
	subscription *pubsub.Subscription
}

// NewSubscriber opens the subscription at url. In-memory subscriptions use
// the topic url, need the topic to be opened first and only see messages sent
// after they were opened.
func NewSubscriber(ctx context.Context, url string) (*Subscriber, error) {
	sub, err := pubsub.OpenSubscription(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{subscription: sub}, nil
}

// Receive handles messages until ctx is done or handler fails. Messages
// that cannot be decoded are acknowledged and skipped.
func (s *Subscriber) Receive(ctx context.Context, handler Handler) error {
	for {
		msg, err := s.subscription.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		eventName := msg.Metadata[EventHeaderName]
		if eventName == "" {
			util.Log(ctx).Error("missing event header in message")
			msg.Ack()
			continue
		}

		var evt SupportEvent
		if err = json.Unmarshal(msg.Body, &evt); err != nil {
			util.Log(ctx).WithError(err).WithField("event", eventName).Error("failed to unmarshal payload")
			msg.Ack()
			continue
		}

		err = handler.Handle(ctx, evt)
		msg.Ack()
		if err != nil {
			util.Log(ctx).WithError(err).WithField("event", eventName).Error("event handling failed")
			return err
		}
	}
}

func (s *Subscriber) Close(ctx context.Context) error {
	return s.subscription.Shutdown(ctx)
}
