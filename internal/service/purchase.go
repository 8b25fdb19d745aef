package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/event"
	"github.com/sultanmr/aws-grocery/internal/idset"
	"github.com/sultanmr/aws-grocery/internal/ledger"
	"github.com/sultanmr/aws-grocery/internal/repository"
	"github.com/sultanmr/aws-grocery/pkg/tracing"
)

// ledgerStore adapts a transaction's user repository to ledger.Store. The
// read takes the row lock.
type ledgerStore struct {
	users repository.UserRepository
}

func (l ledgerStore) Purchased(ctx context.Context, userID int64) (idset.Set, error) {
	user, err := l.users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Purchased, nil
}

func (l ledgerStore) UpdatePurchased(ctx context.Context, userID int64, purchased idset.Set) error {
	return l.users.UpdatePurchased(ctx, userID, purchased)
}

// Purchase records productIDs in the user's purchase history and empties the
// basket. Both happen in one transaction or not at all.
func (s *AccountService) Purchase(ctx context.Context, userID int64, productIDs []int64) (idset.Set, error) {
	ctx, span := tracing.Start(ctx, "account.Purchase",
		attribute.Int64("user.id", userID),
		attribute.Int("purchase.products", len(productIDs)),
	)
	purchased, err := s.purchase(ctx, userID, productIDs)
	tracing.End(span, err)
	return purchased, err
}

func (s *AccountService) purchase(ctx context.Context, userID int64, productIDs []int64) (idset.Set, error) {
	if err := ledger.Validate(productIDs); err != nil {
		return nil, err
	}

	var (
		purchased idset.Set
		cleared   int64
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		purchased, err = ledger.Record(ctx, ledgerStore{users: tx.Users()}, userID, productIDs)
		if err != nil {
			return err
		}

		if cleared, err = tx.Basket().Clear(ctx, userID); err != nil {
			return err
		}
		if cleared > 0 {
			_, err = tx.Users().BumpBasketVersion(ctx, userID, nil)
		}
		return err
	})
	if err != nil {
		return nil, fail("record purchase", err)
	}

	s.log(ctx).InfoContext(ctx, "purchase recorded",
		slog.Int("products", len(productIDs)),
		slog.Int64("basket_items_cleared", cleared),
	)
	s.publish(ctx, event.TopicPurchaseRecorded, func(p EventPublisher) error {
		return p.PublishPurchaseRecorded(ctx, event.PurchaseRecordedData{
			UserID:     userID,
			ProductIDs: productIDs,
			Purchased:  purchased.Sorted(),
		})
	})
	return purchased, nil
}

// ListPurchased returns the products the user has ever purchased.
func (s *AccountService) ListPurchased(ctx context.Context, userID int64) ([]domain.Product, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fail("list purchased products", err)
	}

	products, err := s.productsIn(ctx, user.Purchased)
	if err != nil {
		return nil, fail("list purchased products", err)
	}
	return products, nil
}
