package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_GetByIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	mock.ExpectQuery("SELECT id, name, price, image_url FROM products WHERE id = ANY\\(\\$1\\)").
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "price", "image_url"}).
			AddRow(int64(1), "Apples", 2.5, "/img/apples.png"))

	got, err := repo.GetByIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Apples", got[1].Name)
	assert.InDelta(t, 2.5, got[1].Price, 0.001)
	_, ok := got[2]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDs_EmptySkipsQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	got, err := NewProductRepository(mock, nil).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDs_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, price, image_url FROM products").
		WillReturnError(errors.New("connection refused"))

	_, err = NewProductRepository(mock, nil).GetByIDs(context.Background(), []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get products")
}
