package event

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

	pkgkafka "github.com/sultanmr/aws-grocery/pkg/kafka"
	"github.com/sultanmr/aws-grocery/pkg/logger"
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

func newTestProducer(w *recordingWriter) *Producer {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProducer(pkgkafka.NewProducerWithWriter(w, nil, log), log)
}

func decode(t *testing.T, msg kafka.Message) pkgkafka.Event {
	t.Helper()
	var ev pkgkafka.Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	return ev
}

func TestProducer_PublishPurchaseRecorded(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	err := p.PublishPurchaseRecorded(ctx, PurchaseRecordedData{
		UserID:     7,
		ProductIDs: []int64{3, 1},
		Purchased:  []int64{1, 2, 3},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, TopicPurchaseRecorded, msg.Topic)
	assert.Equal(t, "7", string(msg.Key))

	ev := decode(t, msg)
	assert.Equal(t, TopicPurchaseRecorded, ev.EventType)
	assert.Equal(t, AggregateTypeUser, ev.AggregateType)
	assert.Equal(t, SourceAccountService, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)

	var data PurchaseRecordedData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, []int64{1, 2, 3}, data.Purchased)
}

func TestProducer_Topics(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)
	ctx := context.Background()

	require.NoError(t, p.PublishBasketSynced(ctx, BasketSyncedData{UserID: 1, Items: []BasketLine{{ProductID: 2, Quantity: 1}}}))
	require.NoError(t, p.PublishFavoritesUpdated(ctx, FavoritesUpdatedData{UserID: 1, ProductID: 2, Action: FavoriteAdded}))
	require.NoError(t, p.PublishAvatarUpdated(ctx, AvatarUpdatedData{UserID: 1, Backend: "local", Ref: "user_1_1_a.png"}))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, TopicBasketSynced, w.msgs[0].Topic)
	assert.Equal(t, TopicFavoritesUpdated, w.msgs[1].Topic)
	assert.Equal(t, TopicAvatarUpdated, w.msgs[2].Topic)
	assert.Empty(t, decode(t, w.msgs[0]).CorrelationID)
}

func TestProducer_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	err := p.PublishAvatarUpdated(context.Background(), AvatarUpdatedData{UserID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish grocery.avatar.updated event")
	assert.Contains(t, err.Error(), "broker down")
}
