package eventbus

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfigs lists the JetStream streams backing every topic family.
func StreamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:     "match",
			Subjects: []string{"match.>"},
			MaxAge:   7 * 24 * time.Hour,
		},
		{
			Name:     "stage",
			Subjects: []string{"stage.>"},
			MaxAge:   7 * 24 * time.Hour,
		},
		{
			Name:     "audit",
			Subjects: []string{"audit.>"},
			MaxAge:   30 * 24 * time.Hour,
		},
	}
}
