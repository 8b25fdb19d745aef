package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/idset"
	"github.com/sultanmr/aws-grocery/pkg/database"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

const userColumns = `id, username, email, fav_products, purchased_products, avatar, basket_version`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db     database.DBTX
	tracer *database.QueryTracer
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX, tracer *database.QueryTracer) *UserRepository {
	return &UserRepository{db: db, tracer: tracer}
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, "GetUser", query, id)
}

// GetForUpdate retrieves a user and holds a row lock for the transaction.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "GetUserForUpdate", query, id)
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, id int64) (*domain.User, error) {
	ctx, end := r.tracer.Start(ctx, op, query)
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// List returns a page of users and the total count.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	countQuery := `SELECT COUNT(*) FROM users`

	var total int
	cctx, end := r.tracer.Start(ctx, "CountUsers", countQuery)
	err := r.db.QueryRow(cctx, countQuery).Scan(&total)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`

	qctx, end := r.tracer.Start(ctx, "ListUsers", query)
	rows, err := r.db.Query(qctx, query, limit, offset)
	if err != nil {
		end(err)
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			end(err)
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	err = rows.Err()
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, total, nil
}

// UpdateFavorites overwrites the encoded favorite set.
func (r *UserRepository) UpdateFavorites(ctx context.Context, id int64, favorites idset.Set) error {
	query := `UPDATE users SET fav_products = $2 WHERE id = $1`
	return r.updateOne(ctx, "UpdateFavorites", query, id, idset.Encode(favorites))
}

// UpdatePurchased overwrites the encoded purchased set.
func (r *UserRepository) UpdatePurchased(ctx context.Context, id int64, purchased idset.Set) error {
	query := `UPDATE users SET purchased_products = $2 WHERE id = $1`
	return r.updateOne(ctx, "UpdatePurchased", query, id, idset.Encode(purchased))
}

// UpdateAvatar stores a new avatar reference.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id int64, ref string) error {
	query := `UPDATE users SET avatar = $2 WHERE id = $1`
	return r.updateOne(ctx, "UpdateAvatar", query, id, ref)
}

func (r *UserRepository) updateOne(ctx context.Context, op, query string, id int64, value string) error {
	ctx, end := r.tracer.Start(ctx, op, query)
	ct, err := r.db.Exec(ctx, query, id, value)
	end(err)
	if err != nil {
		return fmt.Errorf("%s for user %d: %w", op, id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// BumpBasketVersion increments basket_version, optionally guarded by the
// version the caller last saw.
func (r *UserRepository) BumpBasketVersion(ctx context.Context, id int64, expected *int64) (int64, error) {
	query := `
		UPDATE users SET basket_version = basket_version + 1
		WHERE id = $1 AND ($2::BIGINT IS NULL OR basket_version = $2)
		RETURNING basket_version`

	var version int64
	ctx, end := r.tracer.Start(ctx, "BumpBasketVersion", query)
	err := r.db.QueryRow(ctx, query, id, expected).Scan(&version)
	end(err)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("bump basket version for user %d: %w", id, err)
	}
	if expected == nil {
		return 0, apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return 0, apperrors.Conflict(fmt.Sprintf("basket version %d is stale", *expected))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		favorites string
		purchased string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &favorites, &purchased, &u.Avatar, &u.BasketVersion); err != nil {
		return nil, err
	}

	var err error
	if u.Favorites, err = idset.Decode(favorites); err != nil {
		return nil, err
	}
	if u.Purchased, err = idset.Decode(purchased); err != nil {
		return nil, err
	}
	return &u, nil
}
