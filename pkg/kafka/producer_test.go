package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("grocery.purchase.recorded", "7", "user", "account", map[string]any{"product_ids": []int64{1, 2}})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.Equal(t, "account", ev.Source)

	var payload struct {
		ProductIDs []int64 `json:"product_ids"`
	}
	require.NoError(t, ev.UnmarshalData(&payload))
	assert.Equal(t, []int64{1, 2}, payload.ProductIDs)
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent("x", "1", "user", "account", make(chan int))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, discard())

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	ev, err := NewEvent("grocery.basket.synced", "7", "user", "account", map[string]int{"items": 2})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "grocery.basket", ev.WithCorrelationID("corr-1")))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "grocery.basket", msg.Topic)
	assert.Equal(t, []byte("7"), msg.Key)

	carrier := &HeaderCarrier{Headers: &msg.Headers}
	assert.Equal(t, "grocery.basket.synced", carrier.Get("event_type"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{err: errors.New("leader not available")}, nil, discard())
	ev, _ := NewEvent("grocery.avatar.updated", "7", "user", "account", nil)

	err := p.Publish(context.Background(), "grocery.avatar", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to grocery.avatar")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{}, nil, discard())
	assert.Error(t, p.Ping(context.Background()))
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := &HeaderCarrier{Headers: &headers}

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
