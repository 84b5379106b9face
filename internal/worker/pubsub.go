package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler feeds Pub/Sub messages to a Processor.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	Client         *pubsub.Client
	Subscription   string
	MaxOutstanding int
	Processor      *Processor
	Logger         zerolog.Logger
}

// NewClient creates a Pub/Sub client for projectID.
func NewClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub: project ID is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return client, nil
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(cfg PubSubConfig) *PubSubHandler {
	subscriber := cfg.Client.Subscriber(cfg.Subscription)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	// Raw-mode answers can take several minutes.
	subscriber.ReceiveSettings.MaxExtension = 15 * time.Minute

	return &PubSubHandler{
		client:           cfg.Client,
		subscriber:       subscriber,
		subscriptionName: cfg.Subscription,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, h.handleMessage)
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	attempt := 1
	if msg.DeliveryAttempt != nil {
		attempt = *msg.DeliveryAttempt
	}

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Int("attempt", attempt).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if err := h.processor.Handle(ctx, msg.Data, attempt); err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed")
	msg.Ack()
}

// TopicPublisher publishes results to a Pub/Sub topic.
type TopicPublisher struct {
	publisher *pubsub.Publisher
}

// NewTopicPublisher creates a publisher for topic.
func NewTopicPublisher(client *pubsub.Client, topic string) *TopicPublisher {
	return &TopicPublisher{publisher: client.Publisher(topic)}
}

// Publish sends data and waits for the server to acknowledge it.
func (p *TopicPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	res := p.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	_, err := res.Get(ctx)
	return err
}

// Stop flushes pending messages.
func (p *TopicPublisher) Stop() {
	p.publisher.Stop()
}
