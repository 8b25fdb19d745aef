package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/pkg/database"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

// BasketRepository implements repository.BasketRepository using PostgreSQL.
type BasketRepository struct {
	db     database.DBTX
	tracer *database.QueryTracer
}

// NewBasketRepository creates a new PostgreSQL-backed basket repository.
func NewBasketRepository(db database.DBTX, tracer *database.QueryTracer) *BasketRepository {
	return &BasketRepository{db: db, tracer: tracer}
}

// ListByUser returns the user's basket ordered by product id.
func (r *BasketRepository) ListByUser(ctx context.Context, userID int64) ([]domain.BasketItem, error) {
	query := `
		SELECT user_id, product_id, quantity
		FROM basket_items
		WHERE user_id = $1
		ORDER BY product_id`

	ctx, end := r.tracer.Start(ctx, "ListBasket", query)
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list basket items: %w", err)
	}
	defer rows.Close()

	items := []domain.BasketItem{}
	for rows.Next() {
		var it domain.BasketItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity); err != nil {
			end(err)
			return nil, fmt.Errorf("scan basket item: %w", err)
		}
		items = append(items, it)
	}
	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("iterate basket rows: %w", err)
	}
	return items, nil
}

// DeleteProducts removes the listed products in one statement.
func (r *BasketRepository) DeleteProducts(ctx context.Context, userID int64, productIDs []int64) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM basket_items WHERE user_id = $1 AND product_id = ANY($2)`

	ctx, end := r.tracer.Start(ctx, "DeleteBasketItems", query)
	ct, err := r.db.Exec(ctx, query, userID, productIDs)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("delete basket items: %w", err)
	}
	return ct.RowsAffected(), nil
}

// UpdateQuantity sets the quantity of an existing basket item.
func (r *BasketRepository) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	query := `UPDATE basket_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`

	ctx, end := r.tracer.Start(ctx, "UpdateBasketItem", query)
	ct, err := r.db.Exec(ctx, query, userID, productID, quantity)
	end(err)
	if err != nil {
		return fmt.Errorf("update basket item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("basket item", strconv.FormatInt(productID, 10))
	}
	return nil
}

// Insert adds a new basket item.
func (r *BasketRepository) Insert(ctx context.Context, userID, productID int64, quantity int) error {
	query := `INSERT INTO basket_items (user_id, product_id, quantity) VALUES ($1, $2, $3)`

	ctx, end := r.tracer.Start(ctx, "InsertBasketItem", query)
	_, err := r.db.Exec(ctx, query, userID, productID, quantity)
	end(err)
	if err != nil {
		return fmt.Errorf("insert basket item: %w", err)
	}
	return nil
}

// Remove deletes a single basket item.
func (r *BasketRepository) Remove(ctx context.Context, userID, productID int64) error {
	query := `DELETE FROM basket_items WHERE user_id = $1 AND product_id = $2`

	ctx, end := r.tracer.Start(ctx, "RemoveBasketItem", query)
	ct, err := r.db.Exec(ctx, query, userID, productID)
	end(err)
	if err != nil {
		return fmt.Errorf("remove basket item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundMsg(fmt.Sprintf("product %d not found in basket", productID))
	}
	return nil
}

// Clear empties the user's basket.
func (r *BasketRepository) Clear(ctx context.Context, userID int64) (int64, error) {
	query := `DELETE FROM basket_items WHERE user_id = $1`

	ctx, end := r.tracer.Start(ctx, "ClearBasket", query)
	ct, err := r.db.Exec(ctx, query, userID)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("clear basket: %w", err)
	}
	return ct.RowsAffected(), nil
}
