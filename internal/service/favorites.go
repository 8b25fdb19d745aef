package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/event"
	"github.com/sultanmr/aws-grocery/internal/idset"
	"github.com/sultanmr/aws-grocery/internal/repository"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

// FavoriteResult is the outcome of adding a favorite.
type FavoriteResult struct {
	Added     bool      `json:"added"`
	Favorites idset.Set `json:"fav_products"`
}

// ListFavorites returns the user's favorite products with details.
func (s *AccountService) ListFavorites(ctx context.Context, userID int64) ([]domain.Product, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fail("list favorites", err)
	}

	products, err := s.productsIn(ctx, user.Favorites)
	if err != nil {
		return nil, fail("list favorites", err)
	}
	return products, nil
}

// AddFavorite adds productID to the user's favorites. Adding a product that
// is already a favorite succeeds with Added false and writes nothing.
func (s *AccountService) AddFavorite(ctx context.Context, userID, productID int64) (*FavoriteResult, error) {
	if productID <= 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product id must be positive, got %d", productID))
	}
	if err := s.requireProducts(ctx, productID); err != nil {
		return nil, err
	}

	res := &FavoriteResult{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		user, err := tx.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		res.Favorites = user.Favorites.Clone()
		if res.Added = res.Favorites.Add(productID); !res.Added {
			return nil
		}
		return tx.Users().UpdateFavorites(ctx, userID, res.Favorites)
	})
	if err != nil {
		return nil, fail("add favorite", err)
	}

	if res.Added {
		s.log(ctx).InfoContext(ctx, "favorite added", slog.Int64("product_id", productID))
		s.publishFavorites(ctx, userID, productID, event.FavoriteAdded, res.Favorites)
	}
	return res, nil
}

// RemoveFavorite removes productID from the user's favorites. A product
// that is not a favorite is NOT_FOUND.
func (s *AccountService) RemoveFavorite(ctx context.Context, userID, productID int64) (idset.Set, error) {
	var favorites idset.Set
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		user, err := tx.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		favorites = user.Favorites.Clone()
		if !favorites.Remove(productID) {
			return apperrors.NotFoundMsg("product not found in favorites")
		}
		return tx.Users().UpdateFavorites(ctx, userID, favorites)
	})
	if err != nil {
		return nil, fail("remove favorite", err)
	}

	s.log(ctx).InfoContext(ctx, "favorite removed", slog.Int64("product_id", productID))
	s.publishFavorites(ctx, userID, productID, event.FavoriteRemoved, favorites)
	return favorites, nil
}

func (s *AccountService) publishFavorites(ctx context.Context, userID, productID int64, action string, favorites idset.Set) {
	s.publish(ctx, event.TopicFavoritesUpdated, func(p EventPublisher) error {
		return p.PublishFavoritesUpdated(ctx, event.FavoritesUpdatedData{
			UserID:    userID,
			ProductID: productID,
			Action:    action,
			Favorites: favorites.Sorted(),
		})
	})
}
