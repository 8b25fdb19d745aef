package postgres

import (
	"context"
	"fmt"

	"github.com/sultanmr/aws-grocery/internal/repository"
	"github.com/sultanmr/aws-grocery/pkg/database"
)

// Store implements repository.Store on a pgx pool.
type Store struct {
	db     database.TxBeginner
	tracer *database.QueryTracer
	users  *UserRepository
	basket *BasketRepository
}

// NewStore creates a store whose repositories run directly on db.
func NewStore(db database.TxBeginner, tracer *database.QueryTracer) *Store {
	return &Store{
		db:     db,
		tracer: tracer,
		users:  NewUserRepository(db, tracer),
		basket: NewBasketRepository(db, tracer),
	}
}

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) Basket() repository.BasketRepository { return s.basket }

// WithinTx runs fn in a transaction. The deferred rollback is a no-op after
// a successful commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txRepos{
		users:  NewUserRepository(tx, s.tracer),
		basket: NewBasketRepository(tx, s.tracer),
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	users  *UserRepository
	basket *BasketRepository
}

func (t *txRepos) Users() repository.UserRepository { return t.users }

func (t *txRepos) Basket() repository.BasketRepository { return t.basket }
