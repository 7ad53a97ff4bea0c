package handlerwrapper

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishByTopic adapts a transforming handler for AddNoPublisherHandler. Every
// message the handler returns is published to the topic stored in its metadata.
// Messages without a topic are dropped and logged.
func PublishByTopic(
	handlerName string,
	logger *slog.Logger,
	publisher message.Publisher,
	h message.HandlerFunc,
) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		produced, err := h(msg)
		if err != nil {
			return err
		}

		for _, m := range produced {
			topic := m.Metadata.Get(MetadataTopic)
			if topic == "" {
				logger.Error("Produced message has no topic, dropping",
					slog.String("handler", handlerName),
					slog.String("msg_uuid", m.UUID),
				)
				continue
			}
			if err := publisher.Publish(topic, m); err != nil {
				return fmt.Errorf("failed to publish to %s: %w", topic, err)
			}
		}
		return nil
	}
}
