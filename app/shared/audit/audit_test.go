package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topics []string
	msgs   []*message.Message
	err    error
}

func (f *fakePublisher) Publish(topic string, msgs ...*message.Message) error {
	f.topics = append(f.topics, topic)
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func TestPublisherSinkRecord(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewPublisherSink(pub, slog.Default())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	err := sink.Append(context.Background(), Event{
		Kind:       KindMatchConfirmed,
		EntityType: "match",
		EntityID:   "m-1",
		Version:    3,
	})
	require.NoError(t, err)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, []string{TopicEventV1}, pub.topics)

	var got Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].Payload, &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, KindMatchConfirmed, got.Kind)
	assert.Equal(t, int64(3), got.Version)
	assert.True(t, fixed.Equal(got.OccurredAt))
}

func TestPublisherSinkReportsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	sink := NewPublisherSink(pub, slog.Default())

	err := sink.Append(context.Background(), Event{Kind: KindLivesReset, EntityID: "s-1"})
	assert.ErrorContains(t, err, "nats down")
	assert.Len(t, pub.msgs, 1)
}

func TestAppendOrLogSwallowsFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	sink := NewPublisherSink(pub, slog.Default())

	assert.NotPanics(t, func() {
		AppendOrLog(context.Background(), sink, slog.Default(), Event{Kind: KindLivesReset})
		AppendOrLog(context.Background(), nil, slog.Default(), Event{Kind: KindLivesReset})
	})
}
