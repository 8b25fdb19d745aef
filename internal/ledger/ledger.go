// Package ledger merges purchased products into a user's permanent history.
package ledger

import (
	"context"
	"fmt"

	"github.com/sultanmr/aws-grocery/internal/idset"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

// Store reads and writes a user's purchase history. Implementations used by
// Record should be transaction-scoped and lock the row on read.
type Store interface {
	Purchased(ctx context.Context, userID int64) (idset.Set, error)
	UpdatePurchased(ctx context.Context, userID int64, purchased idset.Set) error
}

// Validate rejects an empty list and non-positive identifiers.
func Validate(productIDs []int64) error {
	if len(productIDs) == 0 {
		return apperrors.InvalidInput("purchased_products must contain at least one product")
	}
	for _, id := range productIDs {
		if id <= 0 {
			return apperrors.InvalidInput(fmt.Sprintf("product id must be positive, got %d", id))
		}
	}
	return nil
}

// Merge returns existing ∪ productIDs and how many identifiers were new.
// existing is not modified.
func Merge(existing idset.Set, productIDs []int64) (idset.Set, int) {
	merged := existing.Clone()
	return merged, merged.Union(productIDs...)
}

// Record unions productIDs into the user's purchase history and returns the
// resulting set. Repeats are absorbed; when nothing is new no write happens.
func Record(ctx context.Context, s Store, userID int64, productIDs []int64) (idset.Set, error) {
	if err := Validate(productIDs); err != nil {
		return nil, err
	}

	existing, err := s.Purchased(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged, added := Merge(existing, productIDs)
	if added == 0 {
		return merged, nil
	}
	if err := s.UpdatePurchased(ctx, userID, merged); err != nil {
		return nil, fmt.Errorf("update purchased products: %w", err)
	}
	return merged, nil
}
