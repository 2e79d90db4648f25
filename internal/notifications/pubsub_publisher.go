package notifications

import (
	"context"

	"github.com/relaydrop/relaydrop-backend/pkg/pubsub"
)

// PubSubPublisher adapts the Pub/Sub client to the EventPublisher interface.
type PubSubPublisher struct {
	Client *pubsub.Client
}

func (p PubSubPublisher) PublishDriverEvent(ctx context.Context, event OrderEvent) error {
	return pubsub.PublishJSON(ctx, p.Client.DriverPublisher(), event, eventAttributes(event))
}

func (p PubSubPublisher) PublishStoreEvent(ctx context.Context, event OrderEvent) error {
	return pubsub.PublishJSON(ctx, p.Client.StorePublisher(), event, eventAttributes(event))
}

func eventAttributes(event OrderEvent) map[string]string {
	return map[string]string{
		"type":     string(event.Type),
		"order_id": event.OrderID.String(),
	}
}
