package handlerwrapper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type pingPayload struct {
	Value int `json:"value"`
}

type pongPayload struct {
	Doubled int `json:"doubled"`
}

func TestWrapTransformingTyped(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")

	tests := []struct {
		name    string
		body    string
		handler TypedHandler[pingPayload]
		wantErr bool
		verify  func(t *testing.T, out []*message.Message)
	}{
		{
			name: "decodes payload and tags outputs with topic and correlation id",
			body: `{"value":21}`,
			handler: func(ctx context.Context, p *pingPayload) ([]Result, error) {
				return []Result{{Topic: "pong.v1", Payload: pongPayload{Doubled: p.Value * 2}}}, nil
			},
			verify: func(t *testing.T, out []*message.Message) {
				require.Len(t, out, 1)
				assert.Equal(t, "pong.v1", out[0].Metadata.Get(MetadataTopic))
				assert.Equal(t, "corr-1", out[0].Metadata.Get(observability.MetadataCorrelationID))
				var got pongPayload
				require.NoError(t, json.Unmarshal(out[0].Payload, &got))
				assert.Equal(t, 42, got.Doubled)
			},
		},
		{
			name:    "malformed payload is an error",
			body:    `{"value":`,
			handler: func(context.Context, *pingPayload) ([]Result, error) { return nil, nil },
			wantErr: true,
		},
		{
			name: "handler error propagates",
			body: `{"value":1}`,
			handler: func(context.Context, *pingPayload) ([]Result, error) {
				return nil, errors.New("db down")
			},
			wantErr: true,
		},
		{
			name: "no results produces no messages",
			body: `{"value":1}`,
			handler: func(context.Context, *pingPayload) ([]Result, error) {
				return nil, nil
			},
			verify: func(t *testing.T, out []*message.Message) {
				assert.Empty(t, out)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := message.NewMessage("m-1", []byte(tt.body))
			msg.Metadata.Set(observability.MetadataCorrelationID, "corr-1")

			h := WrapTransformingTyped("test.ping", slog.Default(), tracer, nil, tt.handler)
			out, err := h(msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.verify != nil {
				tt.verify(t, out)
			}
		})
	}
}

func TestWrapTransformingTypedExposesReplyTo(t *testing.T) {
	msg := message.NewMessage("m-2", []byte(`{}`))
	msg.Metadata.Set("reply_to", "inbox.123")

	var seen string
	h := WrapTransformingTyped("test.reply", slog.Default(), noop.NewTracerProvider().Tracer("test"), nil,
		func(ctx context.Context, _ *pingPayload) ([]Result, error) {
			seen, _ = ctx.Value(CtxKeyReplyTo).(string)
			return nil, nil
		})

	_, err := h(msg)
	require.NoError(t, err)
	assert.Equal(t, "inbox.123", seen)
}
