// Package basket converges a stored basket to a client-submitted desired
// state with the fewest row mutations.
package basket

import (
	"context"
	"fmt"

	"github.com/sultanmr/aws-grocery/internal/idset"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

// Line is a product and its quantity.
type Line struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// Plan is the set of mutations that turns the current basket into the
// desired one. ToUpdate and ToInsert follow the order of the desired input.
type Plan struct {
	ToDelete idset.Set
	ToUpdate []Line
	ToInsert []Line
}

// IsEmpty reports whether applying p would change nothing.
func (p Plan) IsEmpty() bool {
	return p.ToDelete.Len() == 0 && len(p.ToUpdate) == 0 && len(p.ToInsert) == 0
}

// Ops returns the number of row mutations in p.
func (p Plan) Ops() int {
	return p.ToDelete.Len() + len(p.ToUpdate) + len(p.ToInsert)
}

// Validate checks desired lines before any persistence work: identifiers and
// quantities must be positive and no product may appear twice.
func Validate(desired []Line) error {
	seen := make(map[int64]struct{}, len(desired))
	for _, l := range desired {
		if l.ProductID <= 0 {
			return apperrors.InvalidInput(fmt.Sprintf("product_id must be positive, got %d", l.ProductID))
		}
		if l.Quantity <= 0 {
			return apperrors.InvalidInput(fmt.Sprintf("quantity for product %d must be positive, got %d", l.ProductID, l.Quantity))
		}
		if _, dup := seen[l.ProductID]; dup {
			return apperrors.DuplicateProduct(l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return nil
}

// Reconcile computes the plan that converges current to desired. current is
// trusted to be unique per product; desired is validated first.
func Reconcile(current, desired []Line) (Plan, error) {
	if err := Validate(desired); err != nil {
		return Plan{}, err
	}

	have := make(map[int64]int, len(current))
	for _, l := range current {
		have[l.ProductID] = l.Quantity
	}

	plan := Plan{ToDelete: idset.New()}
	want := idset.New()
	for _, l := range desired {
		want.Add(l.ProductID)
		qty, ok := have[l.ProductID]
		switch {
		case !ok:
			plan.ToInsert = append(plan.ToInsert, l)
		case qty != l.Quantity:
			plan.ToUpdate = append(plan.ToUpdate, l)
		}
	}
	for id := range have {
		if !want.Has(id) {
			plan.ToDelete.Add(id)
		}
	}
	return plan, nil
}

// Writer is the basket persistence a plan is applied through. Callers pass a
// transaction-scoped implementation so the whole plan commits or none of it.
type Writer interface {
	DeleteProducts(ctx context.Context, userID int64, productIDs []int64) (int64, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error
	Insert(ctx context.Context, userID, productID int64, quantity int) error
}

// Apply executes p through w: deletions, then updates, then insertions. It
// stops at the first failure and returns it; rolling back is the caller's
// transaction's job.
func Apply(ctx context.Context, w Writer, userID int64, p Plan) error {
	if p.ToDelete.Len() > 0 {
		if _, err := w.DeleteProducts(ctx, userID, p.ToDelete.Sorted()); err != nil {
			return fmt.Errorf("delete basket items: %w", err)
		}
	}
	for _, l := range p.ToUpdate {
		if err := w.UpdateQuantity(ctx, userID, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("update basket item %d: %w", l.ProductID, err)
		}
	}
	for _, l := range p.ToInsert {
		if err := w.Insert(ctx, userID, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("insert basket item %d: %w", l.ProductID, err)
		}
	}
	return nil
}
