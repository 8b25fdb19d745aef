package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/sultanmr/aws-grocery/internal/avatar"
	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/event"
	"github.com/sultanmr/aws-grocery/internal/idset"
	"github.com/sultanmr/aws-grocery/internal/repository"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
	"github.com/sultanmr/aws-grocery/pkg/logger"
	"github.com/sultanmr/aws-grocery/pkg/pagination"
)

// EventPublisher is the subset of event.Producer the service needs.
type EventPublisher interface {
	PublishBasketSynced(ctx context.Context, data event.BasketSyncedData) error
	PublishFavoritesUpdated(ctx context.Context, data event.FavoritesUpdatedData) error
	PublishPurchaseRecorded(ctx context.Context, data event.PurchaseRecordedData) error
	PublishAvatarUpdated(ctx context.Context, data event.AvatarUpdatedData) error
}

// StorageInfo describes the configured avatar storage.
type StorageInfo struct {
	UseS3    bool   `json:"use_s3_storage"`
	S3Bucket string `json:"s3_bucket"`
	S3Region string `json:"s3_region"`
}

// AccountService implements the account operations: favorites, basket,
// purchase history and avatar. Each write runs in one transaction.
type AccountService struct {
	store    repository.Store
	products repository.ProductRepository
	avatars  *avatar.Storage
	events   EventPublisher
	storage  StorageInfo
	logger   *slog.Logger
}

// NewAccountService creates a new account service. events may be nil.
func NewAccountService(
	store repository.Store,
	products repository.ProductRepository,
	avatars *avatar.Storage,
	events EventPublisher,
	storage StorageInfo,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		store:    store,
		products: products,
		avatars:  avatars,
		events:   events,
		storage:  storage,
		logger:   logger,
	}
}

// GetProfile returns the user's account view.
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fail("load profile", err)
	}

	items, err := s.store.Basket().ListByUser(ctx, userID)
	if err != nil {
		return nil, fail("load profile", err)
	}
	if items == nil {
		items = []domain.BasketItem{}
	}

	return &domain.Profile{
		Username:  user.Username,
		Email:     user.Email,
		Favorites: user.Favorites,
		Basket:    items,
		Purchased: user.Purchased,
		Avatar:    user.AvatarURL(),
	}, nil
}

// ListUsers returns one page of user summaries and the total user count.
func (s *AccountService) ListUsers(ctx context.Context, page pagination.Params) ([]domain.UserSummary, int, error) {
	users, total, err := s.store.Users().List(ctx, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, fail("list users", err)
	}

	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, total, nil
}

// StorageInfo returns the avatar storage configuration.
func (s *AccountService) StorageInfo() StorageInfo {
	return s.storage
}

// productsIn returns the catalog entries for ids in ascending id order.
// Identifiers with no product are skipped.
func (s *AccountService) productsIn(ctx context.Context, ids idset.Set) ([]domain.Product, error) {
	sorted := ids.Sorted()
	if len(sorted) == 0 {
		return []domain.Product{}, nil
	}

	found, err := s.products.GetByIDs(ctx, sorted)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(found))
	for _, id := range sorted {
		if p, ok := found[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// requireProducts fails with NOT_FOUND naming the first unknown product.
func (s *AccountService) requireProducts(ctx context.Context, ids ...int64) error {
	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return fail("look up products", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return apperrors.NotFound("product", strconv.FormatInt(id, 10))
		}
	}
	return nil
}

func (s *AccountService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}

// publish runs fn when an event publisher is configured. Failures are
// logged and never reach the caller.
func (s *AccountService) publish(ctx context.Context, topic string, fn func(EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

// fail passes application errors through and reports anything else as a
// persistence failure of op.
func fail(op string, err error) error {
	if apperrors.IsApp(err) {
		return err
	}
	return apperrors.Persistence(op, err)
}
