package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/stretchr/testify/mock"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/event"
	"github.com/sultanmr/aws-grocery/internal/idset"
	"github.com/sultanmr/aws-grocery/internal/repository"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

var errInjected = errors.New("injected failure")

// --- In-memory store with transactional snapshots ---

type memDB struct {
	users  map[int64]*domain.User
	basket map[int64]map[int64]int
}

func (d *memDB) clone() *memDB {
	out := &memDB{users: make(map[int64]*domain.User), basket: make(map[int64]map[int64]int)}
	for id, u := range d.users {
		out.users[id] = cloneUser(u)
	}
	for id, lines := range d.basket {
		m := make(map[int64]int, len(lines))
		for p, q := range lines {
			m[p] = q
		}
		out.basket[id] = m
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Favorites = u.Favorites.Clone()
	c.Purchased = u.Purchased.Clone()
	return &c
}

// fakeStore commits a transaction's snapshot only when fn succeeds and
// commitErr is nil. failOn names one repository method that should fail.
type fakeStore struct {
	db        *memDB
	failOn    string
	commitErr error
	txCount   int
}

func newFakeStore(users ...*domain.User) *fakeStore {
	db := &memDB{users: make(map[int64]*domain.User), basket: make(map[int64]map[int64]int)}
	for _, u := range users {
		if u.Favorites == nil {
			u.Favorites = idset.New()
		}
		if u.Purchased == nil {
			u.Purchased = idset.New()
		}
		if u.Avatar == "" {
			u.Avatar = domain.DefaultAvatar
		}
		db.users[u.ID] = u
	}
	return &fakeStore{db: db}
}

func (s *fakeStore) check(op string) error {
	if s.failOn == op {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (s *fakeStore) Users() repository.UserRepository { return &fakeUsers{s: s, db: s.db} }

func (s *fakeStore) Basket() repository.BasketRepository { return &fakeBasket{s: s, db: s.db} }

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	s.txCount++
	work := s.db.clone()
	if err := fn(ctx, &fakeTx{users: &fakeUsers{s: s, db: work}, basket: &fakeBasket{s: s, db: work}}); err != nil {
		return err
	}
	if s.commitErr != nil {
		return fmt.Errorf("commit transaction: %w", s.commitErr)
	}
	s.db = work
	return nil
}

func (s *fakeStore) user(id int64) *domain.User { return s.db.users[id] }

func (s *fakeStore) basketOf(id int64) map[int64]int { return s.db.basket[id] }

func (s *fakeStore) setBasket(userID int64, lines map[int64]int) { s.db.basket[userID] = lines }

type fakeTx struct {
	users  *fakeUsers
	basket *fakeBasket
}

func (t *fakeTx) Users() repository.UserRepository { return t.users }

func (t *fakeTx) Basket() repository.BasketRepository { return t.basket }

type fakeUsers struct {
	s  *fakeStore
	db *memDB
}

func userNotFound(id int64) error { return apperrors.NotFound("user", strconv.FormatInt(id, 10)) }

func (r *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if err := r.s.check("GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.db.users[id]
	if !ok {
		return nil, userNotFound(id)
	}
	return cloneUser(u), nil
}

func (r *fakeUsers) GetForUpdate(_ context.Context, id int64) (*domain.User, error) {
	if err := r.s.check("GetForUpdate"); err != nil {
		return nil, err
	}
	u, ok := r.db.users[id]
	if !ok {
		return nil, userNotFound(id)
	}
	return cloneUser(u), nil
}

func (r *fakeUsers) List(_ context.Context, offset, limit int) ([]*domain.User, int, error) {
	if err := r.s.check("List"); err != nil {
		return nil, 0, err
	}
	ids := make([]int64, 0, len(r.db.users))
	for id := range r.db.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := []*domain.User{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, cloneUser(r.db.users[ids[i]]))
	}
	return out, len(ids), nil
}

func (r *fakeUsers) UpdateFavorites(_ context.Context, id int64, favorites idset.Set) error {
	if err := r.s.check("UpdateFavorites"); err != nil {
		return err
	}
	u, ok := r.db.users[id]
	if !ok {
		return userNotFound(id)
	}
	u.Favorites = favorites.Clone()
	return nil
}

func (r *fakeUsers) UpdatePurchased(_ context.Context, id int64, purchased idset.Set) error {
	if err := r.s.check("UpdatePurchased"); err != nil {
		return err
	}
	u, ok := r.db.users[id]
	if !ok {
		return userNotFound(id)
	}
	u.Purchased = purchased.Clone()
	return nil
}

func (r *fakeUsers) UpdateAvatar(_ context.Context, id int64, ref string) error {
	if err := r.s.check("UpdateAvatar"); err != nil {
		return err
	}
	u, ok := r.db.users[id]
	if !ok {
		return userNotFound(id)
	}
	u.Avatar = ref
	return nil
}

func (r *fakeUsers) BumpBasketVersion(_ context.Context, id int64, expected *int64) (int64, error) {
	if err := r.s.check("BumpBasketVersion"); err != nil {
		return 0, err
	}
	u, ok := r.db.users[id]
	if !ok {
		if expected == nil {
			return 0, userNotFound(id)
		}
		return 0, apperrors.Conflict("basket was modified by another request")
	}
	if expected != nil && *expected != u.BasketVersion {
		return 0, apperrors.Conflict("basket was modified by another request")
	}
	u.BasketVersion++
	return u.BasketVersion, nil
}

type fakeBasket struct {
	s  *fakeStore
	db *memDB
}

func (r *fakeBasket) ListByUser(_ context.Context, userID int64) ([]domain.BasketItem, error) {
	if err := r.s.check("ListByUser"); err != nil {
		return nil, err
	}
	lines := r.db.basket[userID]
	ids := make([]int64, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]domain.BasketItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.BasketItem{UserID: userID, ProductID: id, Quantity: lines[id]})
	}
	return out, nil
}

func (r *fakeBasket) DeleteProducts(_ context.Context, userID int64, productIDs []int64) (int64, error) {
	if err := r.s.check("DeleteProducts"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range productIDs {
		if _, ok := r.db.basket[userID][id]; ok {
			delete(r.db.basket[userID], id)
			n++
		}
	}
	return n, nil
}

func (r *fakeBasket) UpdateQuantity(_ context.Context, userID, productID int64, quantity int) error {
	if err := r.s.check("UpdateQuantity"); err != nil {
		return err
	}
	if _, ok := r.db.basket[userID][productID]; !ok {
		return apperrors.NotFound("basket item", strconv.FormatInt(productID, 10))
	}
	r.db.basket[userID][productID] = quantity
	return nil
}

func (r *fakeBasket) Insert(_ context.Context, userID, productID int64, quantity int) error {
	if err := r.s.check("Insert"); err != nil {
		return err
	}
	if r.db.basket[userID] == nil {
		r.db.basket[userID] = make(map[int64]int)
	}
	if _, ok := r.db.basket[userID][productID]; ok {
		return fmt.Errorf("insert basket item: duplicate key (%d, %d)", userID, productID)
	}
	r.db.basket[userID][productID] = quantity
	return nil
}

func (r *fakeBasket) Remove(_ context.Context, userID, productID int64) error {
	if err := r.s.check("Remove"); err != nil {
		return err
	}
	if _, ok := r.db.basket[userID][productID]; !ok {
		return apperrors.NotFoundMsg(fmt.Sprintf("product %d not found in basket", productID))
	}
	delete(r.db.basket[userID], productID)
	return nil
}

func (r *fakeBasket) Clear(_ context.Context, userID int64) (int64, error) {
	if err := r.s.check("Clear"); err != nil {
		return 0, err
	}
	n := int64(len(r.db.basket[userID]))
	delete(r.db.basket, userID)
	return n, nil
}

// --- Catalog ---

type fakeCatalog struct {
	products map[int64]domain.Product
	err      error
	calls    int
}

func newCatalog(ids ...int64) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]domain.Product)}
	for _, id := range ids {
		c.products[id] = domain.Product{ID: id, Name: "product " + strconv.FormatInt(id, 10), Price: float64(id) + 0.5}
	}
	return c
}

func (c *fakeCatalog) GetByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[int64]domain.Product)
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// --- Event publisher mock ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishBasketSynced(ctx context.Context, data event.BasketSyncedData) error {
	return m.Called(ctx, data).Error(0)
}

func (m *mockPublisher) PublishFavoritesUpdated(ctx context.Context, data event.FavoritesUpdatedData) error {
	return m.Called(ctx, data).Error(0)
}

func (m *mockPublisher) PublishPurchaseRecorded(ctx context.Context, data event.PurchaseRecordedData) error {
	return m.Called(ctx, data).Error(0)
}

func (m *mockPublisher) PublishAvatarUpdated(ctx context.Context, data event.AvatarUpdatedData) error {
	return m.Called(ctx, data).Error(0)
}
