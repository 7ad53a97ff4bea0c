package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventBus is the publisher/subscriber pair every module router is given.
type EventBus interface {
	message.Publisher
	message.Subscriber
	EnsureStreams(ctx context.Context) error
}

type eventBus struct {
	publisher      message.Publisher
	subscriber     message.Subscriber
	js             jetstream.JetStream
	natsConn       *nc.Conn
	logger         *slog.Logger
	streams        []jetstream.StreamConfig
	createdStreams map[string]bool
	streamMutex    sync.Mutex
}

// NewEventBus connects to NATS JetStream and builds the Watermill publisher and subscriber.
func NewEventBus(ctx context.Context, natsURL, queueGroup string, logger *slog.Logger) (EventBus, error) {
	natsConn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true), nc.MaxReconnects(-1))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}
	jsConfig := wmnats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		TrackMsgId:    true,
	}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         natsURL,
		Marshaler:   marshaler,
		NatsOptions: []nc.Option{nc.RetryOnFailedConnect(true)},
		JetStream:   jsConfig,
	}, wmLogger)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              natsURL,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		Unmarshaler:      marshaler,
		NatsOptions:      []nc.Option{nc.RetryOnFailedConnect(true)},
		JetStream:        jsConfig,
	}, wmLogger)
	if err != nil {
		natsConn.Close()
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	return &eventBus{
		publisher:      publisher,
		subscriber:     subscriber,
		js:             js,
		natsConn:       natsConn,
		logger:         logger,
		streams:        StreamConfigs(),
		createdStreams: make(map[string]bool),
	}, nil
}

func (eb *eventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
	}
	if err := eb.publisher.Publish(topic, messages...); err != nil {
		eb.logger.Error("Failed to publish message", slog.String("topic", topic), slog.Any("error", err))
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.InfoContext(ctx, "Subscribing to topic", slog.String("topic", topic))
	return eb.subscriber.Subscribe(ctx, topic)
}

// EnsureStreams creates or extends every stream the service publishes to.
func (eb *eventBus) EnsureStreams(ctx context.Context) error {
	eb.streamMutex.Lock()
	defer eb.streamMutex.Unlock()

	for _, cfg := range eb.streams {
		if eb.createdStreams[cfg.Name] {
			continue
		}
		if err := eb.ensureStream(ctx, cfg); err != nil {
			return err
		}
		eb.createdStreams[cfg.Name] = true
	}
	return nil
}

func (eb *eventBus) ensureStream(ctx context.Context, cfg jetstream.StreamConfig) error {
	stream, err := eb.js.Stream(ctx, cfg.Name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := eb.js.CreateStream(ctx, cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
		eb.logger.InfoContext(ctx, "Stream created", slog.String("stream_name", cfg.Name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check if stream exists: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	missing := missingSubjects(info.Config.Subjects, cfg.Subjects)
	if len(missing) == 0 {
		return nil
	}
	info.Config.Subjects = append(info.Config.Subjects, missing...)
	if _, err := eb.js.UpdateStream(ctx, info.Config); err != nil {
		return fmt.Errorf("failed to update stream with new subject: %w", err)
	}
	eb.logger.InfoContext(ctx, "Stream updated with new subjects",
		slog.String("stream_name", cfg.Name),
		slog.Any("subjects", missing),
	)
	return nil
}

func missingSubjects(existing, wanted []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		have[s] = struct{}{}
	}
	var out []string
	for _, s := range wanted {
		if _, ok := have[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Close closes all NATS and Watermill resources.
func (eb *eventBus) Close() error {
	if eb.publisher != nil {
		if err := eb.publisher.Close(); err != nil {
			eb.logger.Error("Error closing NATS publisher", "error", err)
		}
	}
	if eb.subscriber != nil {
		if err := eb.subscriber.Close(); err != nil {
			eb.logger.Error("Error closing NATS subscriber", "error", err)
		}
	}
	if eb.natsConn != nil {
		eb.natsConn.Close()
	}
	return nil
}
