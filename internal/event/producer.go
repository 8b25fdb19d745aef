package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pkgkafka "github.com/sultanmr/aws-grocery/pkg/kafka"
	"github.com/sultanmr/aws-grocery/pkg/logger"
)

// Kafka topic constants for account events.
const (
	TopicBasketSynced     = "grocery.basket.synced"
	TopicFavoritesUpdated = "grocery.favorites.updated"
	TopicPurchaseRecorded = "grocery.purchase.recorded"
	TopicAvatarUpdated    = "grocery.avatar.updated"
)

// AggregateTypeUser is the aggregate every account event belongs to.
const AggregateTypeUser = "user"

// SourceAccountService identifies events originating from this service.
const SourceAccountService = "account-service"

// BasketLine is one product line in a basket.synced payload.
type BasketLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// BasketSyncedData is the payload for a basket.synced event.
type BasketSyncedData struct {
	UserID  int64        `json:"user_id"`
	Version int64        `json:"version"`
	Items   []BasketLine `json:"items"`
	Deleted int          `json:"deleted"`
	Updated int          `json:"updated"`
	Added   int          `json:"added"`
}

// FavoritesUpdatedData is the payload for a favorites.updated event.
type FavoritesUpdatedData struct {
	UserID    int64   `json:"user_id"`
	ProductID int64   `json:"product_id"`
	Action    string  `json:"action"`
	Favorites []int64 `json:"fav_products"`
}

// Favorite actions.
const (
	FavoriteAdded   = "added"
	FavoriteRemoved = "removed"
)

// PurchaseRecordedData is the payload for a purchase.recorded event.
type PurchaseRecordedData struct {
	UserID     int64   `json:"user_id"`
	ProductIDs []int64 `json:"product_ids"`
	Purchased  []int64 `json:"purchased_products"`
}

// AvatarUpdatedData is the payload for an avatar.updated event.
type AvatarUpdatedData struct {
	UserID  int64  `json:"user_id"`
	Backend string `json:"backend"`
	Ref     string `json:"ref"`
}

// Producer publishes account events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the account service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishBasketSynced publishes a basket.synced event.
func (p *Producer) PublishBasketSynced(ctx context.Context, data BasketSyncedData) error {
	return p.publish(ctx, TopicBasketSynced, data.UserID, data)
}

// PublishFavoritesUpdated publishes a favorites.updated event.
func (p *Producer) PublishFavoritesUpdated(ctx context.Context, data FavoritesUpdatedData) error {
	return p.publish(ctx, TopicFavoritesUpdated, data.UserID, data)
}

// PublishPurchaseRecorded publishes a purchase.recorded event.
func (p *Producer) PublishPurchaseRecorded(ctx context.Context, data PurchaseRecordedData) error {
	return p.publish(ctx, TopicPurchaseRecorded, data.UserID, data)
}

// PublishAvatarUpdated publishes an avatar.updated event.
func (p *Producer) PublishAvatarUpdated(ctx context.Context, data AvatarUpdatedData) error {
	return p.publish(ctx, TopicAvatarUpdated, data.UserID, data)
}

func (p *Producer) publish(ctx context.Context, topic string, userID int64, data any) error {
	aggregateID := strconv.FormatInt(userID, 10)

	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeUser, SourceAccountService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published account event",
		slog.String("topic", topic),
		slog.Int64("user_id", userID),
	)

	return nil
}
