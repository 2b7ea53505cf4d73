package queue

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes to one Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPublisher creates a publisher for the given topic.
func NewPublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// Publish sends one message and waits for the server's ID so ingest can
// report enqueue failures to the webhook caller.
func (p *PubSubPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// PubSubConsumer receives from one subscription.
type PubSubConsumer struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
}

// NewConsumer creates a consumer for the given subscription. Receiving is
// kept strictly sequential: one message outstanding, one goroutine, so an
// event is processed start to finish before the next is pulled. Horizontal
// scale comes from running more worker instances, which share the
// subscription.
func NewConsumer(ctx context.Context, projectID, subscriptionID string, opts ...option.ClientOption) (*PubSubConsumer, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	sub := client.Subscription(subscriptionID)
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1

	return &PubSubConsumer{client: client, sub: sub}, nil
}

// Receive blocks, feeding deliveries to h until ctx is canceled.
func (c *PubSubConsumer) Receive(ctx context.Context, h Handler) error {
	return c.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		h(ctx, &pubsubDelivery{msg: m})
	})
}

// Close releases the client.
func (c *PubSubConsumer) Close() error {
	return c.client.Close()
}

// pubsubDelivery adapts *pubsub.Message to Delivery.
type pubsubDelivery struct {
	msg *pubsub.Message
}

func (d *pubsubDelivery) ID() string   { return d.msg.ID }
func (d *pubsubDelivery) Data() []byte { return d.msg.Data }
func (d *pubsubDelivery) Ack()         { d.msg.Ack() }
func (d *pubsubDelivery) Nack()        { d.msg.Nack() }

var _ Publisher = (*PubSubPublisher)(nil)
var _ Consumer = (*PubSubConsumer)(nil)
