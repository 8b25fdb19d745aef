package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sultanmr/aws-grocery/internal/idset"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

type memStore struct {
	purchased map[int64]idset.Set
	writes    int
	readErr   error
	writeErr  error
}

func newMemStore() *memStore {
	return &memStore{purchased: map[int64]idset.Set{}}
}

func (m *memStore) Purchased(_ context.Context, userID int64) (idset.Set, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if s, ok := m.purchased[userID]; ok {
		return s.Clone(), nil
	}
	return nil, apperrors.NotFound("user", "1")
}

func (m *memStore) UpdatePurchased(_ context.Context, userID int64, purchased idset.Set) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.purchased[userID] = purchased.Clone()
	return nil
}

func TestRecord_UnionAndIdempotence(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.purchased[1] = idset.Of(5)

	got, err := Record(ctx, s, 1, []int64{3, 3, 5, 9})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 9}, got.Sorted())
	assert.Equal(t, 1, s.writes)

	got, err = Record(ctx, s, 1, []int64{3, 3, 5, 9})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 9}, got.Sorted())
	assert.Equal(t, 1, s.writes, "repeat purchase must not write")
}

func TestRecord_Validation(t *testing.T) {
	s := newMemStore()
	s.purchased[1] = idset.New()

	for _, in := range [][]int64{nil, {}, {1, 0}, {-4}} {
		_, err := Record(context.Background(), s, 1, in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	}
	assert.Zero(t, s.writes)
}

func TestRecord_UserNotFound(t *testing.T) {
	_, err := Record(context.Background(), newMemStore(), 42, []int64{1})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRecord_CorruptHistory(t *testing.T) {
	s := newMemStore()
	s.readErr = apperrors.MalformedSet("1,a", errors.New("bad token"))
	_, err := Record(context.Background(), s, 1, []int64{1})
	assert.True(t, errors.Is(err, apperrors.ErrMalformedSet))
}

func TestRecord_WriteFailure(t *testing.T) {
	s := newMemStore()
	s.purchased[1] = idset.New()
	s.writeErr = errors.New("connection reset")

	_, err := Record(context.Background(), s, 1, []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update purchased products")
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	existing := idset.Of(1)
	merged, added := Merge(existing, []int64{1, 2})
	assert.Equal(t, 1, added)
	assert.Equal(t, []int64{1}, existing.Sorted())
	assert.Equal(t, []int64{1, 2}, merged.Sorted())
}
