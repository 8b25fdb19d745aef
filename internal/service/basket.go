package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sultanmr/aws-grocery/internal/basket"
	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/event"
	"github.com/sultanmr/aws-grocery/internal/repository"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
	"github.com/sultanmr/aws-grocery/pkg/tracing"
)

// SyncResult summarizes an applied basket sync.
type SyncResult struct {
	Deleted int   `json:"deleted"`
	Updated int   `json:"updated"`
	Added   int   `json:"added"`
	Version int64 `json:"version"`
}

// GetBasket returns the user's basket joined with product details. Lines
// whose product no longer exists are left out.
func (s *AccountService) GetBasket(ctx context.Context, userID int64) (*domain.Basket, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fail("load basket", err)
	}

	items, err := s.store.Basket().ListByUser(ctx, userID)
	if err != nil {
		return nil, fail("load basket", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fail("load basket", err)
	}

	out := &domain.Basket{Items: make([]domain.BasketEntry, 0, len(items)), Version: user.BasketVersion}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			s.log(ctx).WarnContext(ctx, "basket references missing product", slog.Int64("product_id", it.ProductID))
			continue
		}
		out.Items = append(out.Items, domain.BasketEntry{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Name:      p.Name,
			Price:     p.Price,
			ImageURL:  p.ImageURL,
		})
	}
	return out, nil
}

// SyncBasket converges the stored basket to desired in one transaction.
// When expectedVersion is non-nil a stale version fails with CONFLICT;
// otherwise the last sync to commit wins. A sync that changes nothing
// writes nothing and keeps the version.
func (s *AccountService) SyncBasket(ctx context.Context, userID int64, desired []basket.Line, expectedVersion *int64) (*SyncResult, error) {
	ctx, span := tracing.Start(ctx, "account.SyncBasket",
		attribute.Int64("user.id", userID),
		attribute.Int("basket.lines", len(desired)),
	)
	res, err := s.syncBasket(ctx, userID, desired, expectedVersion)
	tracing.End(span, err)
	return res, err
}

func (s *AccountService) syncBasket(ctx context.Context, userID int64, desired []basket.Line, expectedVersion *int64) (*SyncResult, error) {
	if err := basket.Validate(desired); err != nil {
		return nil, err
	}
	if len(desired) > 0 {
		ids := make([]int64, 0, len(desired))
		for _, l := range desired {
			ids = append(ids, l.ProductID)
		}
		if err := s.requireProducts(ctx, ids...); err != nil {
			return nil, err
		}
	}

	var (
		plan    basket.Plan
		version int64
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		items, err := tx.Basket().ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		plan, err = basket.Reconcile(linesOf(items), desired)
		if err != nil {
			return err
		}

		if plan.IsEmpty() {
			user, err := tx.Users().GetByID(ctx, userID)
			if err != nil {
				return err
			}
			if expectedVersion != nil && *expectedVersion != user.BasketVersion {
				return apperrors.Conflict("basket was modified by another request")
			}
			version = user.BasketVersion
			return nil
		}

		if version, err = tx.Users().BumpBasketVersion(ctx, userID, expectedVersion); err != nil {
			return err
		}
		return basket.Apply(ctx, tx.Basket(), userID, plan)
	})
	if err != nil {
		return nil, fail("sync basket", err)
	}

	res := &SyncResult{
		Deleted: plan.ToDelete.Len(),
		Updated: len(plan.ToUpdate),
		Added:   len(plan.ToInsert),
		Version: version,
	}
	if plan.IsEmpty() {
		return res, nil
	}

	s.log(ctx).InfoContext(ctx, "basket synced",
		slog.Int("deleted", res.Deleted),
		slog.Int("updated", res.Updated),
		slog.Int("added", res.Added),
		slog.Int64("version", version),
	)
	s.publish(ctx, event.TopicBasketSynced, func(p EventPublisher) error {
		lines := make([]event.BasketLine, 0, len(desired))
		for _, l := range desired {
			lines = append(lines, event.BasketLine{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		return p.PublishBasketSynced(ctx, event.BasketSyncedData{
			UserID:  userID,
			Version: version,
			Items:   lines,
			Deleted: res.Deleted,
			Updated: res.Updated,
			Added:   res.Added,
		})
	})
	return res, nil
}

// RemoveBasketItem deletes one product from the basket and returns the new
// basket version. An absent product is NOT_FOUND.
func (s *AccountService) RemoveBasketItem(ctx context.Context, userID, productID int64) (int64, error) {
	var version int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Basket().Remove(ctx, userID, productID); err != nil {
			return err
		}
		var err error
		version, err = tx.Users().BumpBasketVersion(ctx, userID, nil)
		return err
	})
	if err != nil {
		return 0, fail("remove basket item", err)
	}

	s.log(ctx).InfoContext(ctx, "basket item removed", slog.Int64("product_id", productID))
	s.publish(ctx, event.TopicBasketSynced, func(p EventPublisher) error {
		return p.PublishBasketSynced(ctx, event.BasketSyncedData{UserID: userID, Version: version, Deleted: 1})
	})
	return version, nil
}

func linesOf(items []domain.BasketItem) []basket.Line {
	out := make([]basket.Line, 0, len(items))
	for _, it := range items {
		out = append(out, basket.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
