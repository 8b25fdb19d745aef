package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func TestQueryTracer_SpanAttributes(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := NewQueryTracer(0, nil).Start(context.Background(), "ListBasket", "SELECT product_id, quantity FROM basket_items WHERE user_id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.ListBasket", spans[0].Name)

	attrs := make(map[string]string)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "ListBasket", attrs["db.operation"])
	assert.Contains(t, attrs["db.statement"], "basket_items")
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestQueryTracer_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := NewQueryTracer(0, nil).Start(context.Background(), "UpdateFavorites", "UPDATE users SET fav_products = $1 WHERE id = $2")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestQueryTracer_ChildOfParentSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, end := NewQueryTracer(0, nil).Start(ctx, "GetUser", "SELECT 1")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestQueryTracer_SlowQueryLogged(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	tracer := NewQueryTracer(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))

	_, end := tracer.Start(context.Background(), "ClearBasket", "DELETE FROM basket_items WHERE user_id = $1")
	end(errors.New("deadlock detected"))

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "ClearBasket")
	assert.Contains(t, out, "deadlock detected")
}

func TestQueryTracer_FastQueryNotLogged(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	tracer := NewQueryTracer(time.Hour, slog.New(slog.NewJSONHandler(&buf, nil)))

	_, end := tracer.Start(context.Background(), "GetUser", "SELECT 1")
	end(nil)

	assert.Empty(t, buf.String())
}

func TestQueryTracer_NilReceiver(t *testing.T) {
	setupTestTracer(t)

	var tracer *QueryTracer
	_, end := tracer.Start(context.Background(), "AnyOp", "SELECT 1")
	assert.NotPanics(t, func() { end(nil) })
}
