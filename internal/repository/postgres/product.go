package postgres

import (
	"context"
	"fmt"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/pkg/database"
)

// ProductRepository reads the product catalog.
type ProductRepository struct {
	db     database.DBTX
	tracer *database.QueryTracer
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX, tracer *database.QueryTracer) *ProductRepository {
	return &ProductRepository{db: db, tracer: tracer}
}

// GetByIDs returns the existing products among ids. Unknown ids are absent
// from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, name, price, image_url FROM products WHERE id = ANY($1)`

	ctx, end := r.tracer.Start(ctx, "GetProducts", query)
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL); err != nil {
			end(err)
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return out, nil
}
