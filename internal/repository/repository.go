package repository

import (
	"context"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/idset"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// GetByID retrieves a user by identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetForUpdate retrieves a user and locks the row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)

	// List returns a page of users ordered by id and the total count.
	List(ctx context.Context, offset, limit int) ([]*domain.User, int, error)

	// UpdateFavorites overwrites the user's favorite set.
	UpdateFavorites(ctx context.Context, id int64, favorites idset.Set) error

	// UpdatePurchased overwrites the user's purchased set.
	UpdatePurchased(ctx context.Context, id int64, purchased idset.Set) error

	// UpdateAvatar stores a new avatar reference.
	UpdateAvatar(ctx context.Context, id int64, ref string) error

	// BumpBasketVersion increments the basket version and returns the new
	// value. When expected is non-nil and does not match the stored version
	// the call fails with a conflict.
	BumpBasketVersion(ctx context.Context, id int64, expected *int64) (int64, error)
}

// BasketRepository defines the interface for basket item persistence.
type BasketRepository interface {
	// ListByUser returns the user's basket items ordered by product id.
	ListByUser(ctx context.Context, userID int64) ([]domain.BasketItem, error)

	// DeleteProducts removes the given products from the basket and returns
	// how many rows were deleted.
	DeleteProducts(ctx context.Context, userID int64, productIDs []int64) (int64, error)

	// UpdateQuantity sets the quantity of an existing item.
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error

	// Insert adds a new item.
	Insert(ctx context.Context, userID, productID int64, quantity int) error

	// Remove deletes one item, failing with not found when absent.
	Remove(ctx context.Context, userID, productID int64) error

	// Clear deletes every item and returns how many were removed.
	Clear(ctx context.Context, userID int64) (int64, error)
}

// ProductRepository defines read access to the product catalog.
type ProductRepository interface {
	// GetByIDs returns the products that exist among ids, keyed by id.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Basket() BasketRepository
}

// Store opens transactions. Its own repositories run outside any transaction.
type Store interface {
	Repositories

	// WithinTx runs fn inside one transaction. It commits when fn returns nil
	// and rolls back otherwise; fn's error is returned unchanged.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
