package cart

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubCatalog struct {
	products map[uuid.UUID]types.ProductSnapshot
}

func (s *stubCatalog) Snapshot(ctx context.Context, productID uuid.UUID) (types.ProductSnapshot, error) {
	p, ok := s.products[productID]
	if !ok {
		return types.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func (s *stubCatalog) add(name, price string) types.ProductSnapshot {
	p := types.ProductSnapshot{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price), Category: "mugs"}
	s.products[p.ID] = p
	return p
}

type fixture struct {
	conn    *gorm.DB
	repo    Repository
	catalog *stubCatalog
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrate(context.Background(), conn))

	f := &fixture{
		conn:    conn,
		repo:    NewRepository(conn),
		catalog: &stubCatalog{products: map[uuid.UUID]types.ProductSnapshot{}},
	}
	f.svc = f.newService(t, f.repo)
	return f
}

func (f *fixture) newService(t *testing.T, repo Repository) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(repo, db.NewFromConn(f.conn, config.DriverSQLite), f.catalog, logg, nil)
	require.NoError(t, err)
	return svc
}

func TestAddMergesRepeatedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	mug := f.catalog.add("Mug", "12.50")

	var view *View
	var err error
	for i := 0; i < 3; i++ {
		view, err = f.svc.Add(ctx, user, mug.ID)
		require.NoError(t, err)
	}

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "37.50", view.Total.StringFixed(2))
	assert.Equal(t, "Mug", view.Lines[0].Product.Name)
	assert.Equal(t, mug.ID, view.Lines[0].ProductID)
}

func TestAddUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Add(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestAddKeepsSnapshotAtInsertTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	mug := f.catalog.add("Mug", "10.00")

	_, err := f.svc.Add(ctx, user, mug.ID)
	require.NoError(t, err)

	repriced := mug
	repriced.Price = decimal.RequireFromString("99.00")
	f.catalog.products[mug.ID] = repriced

	view, err := f.svc.Add(ctx, user, mug.ID)
	require.NoError(t, err)
	assert.True(t, view.Lines[0].Product.Price.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, "20.00", view.Total.StringFixed(2))
}

func TestCartsAreScopedPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	mug := f.catalog.add("Mug", "10.00")

	aliceView, err := f.svc.Add(ctx, alice, mug.ID)
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, bob, aliceView.Lines[0].ID)
	require.NoError(t, err)

	view, err := f.svc.Load(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)

	bobView, err := f.svc.Load(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobView.Lines)
	assert.True(t, bobView.Total.IsZero())
}

func TestUpdateQuantityIgnoresBelowOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	mug := f.catalog.add("Mug", "10.00")

	view, err := f.svc.Add(ctx, user, mug.ID)
	require.NoError(t, err)
	lineID := view.Lines[0].ID

	for _, q := range []int{0, -1} {
		view, err = f.svc.UpdateQuantity(ctx, user, lineID, q)
		require.NoError(t, err)
		require.Len(t, view.Lines, 1)
		assert.Equal(t, 1, view.Lines[0].Quantity)
	}

	view, err = f.svc.UpdateQuantity(ctx, user, lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Count)
	assert.Equal(t, "40.00", view.Total.StringFixed(2))

	view, err = f.svc.UpdateQuantity(ctx, user, uuid.New(), 7)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Count)
}

func TestRemoveAndRemoveMany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.catalog.add("A", "10.00")
	b := f.catalog.add("B", "25.00")
	c := f.catalog.add("C", "1.00")
	for _, p := range []types.ProductSnapshot{a, b, c} {
		_, err := f.svc.Add(ctx, user, p.ID)
		require.NoError(t, err)
	}

	view, err := f.svc.Remove(ctx, user, uuid.New())
	require.NoError(t, err)
	require.Len(t, view.Lines, 3)

	_, err = f.svc.RemoveMany(ctx, user, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "Please select items to delete", pkgerrors.As(err).Message())

	view, err = f.svc.RemoveMany(ctx, user, []uuid.UUID{view.Lines[0].ID, view.Lines[2].ID, view.Lines[0].ID})
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "B", view.Lines[0].Product.Name)

	view, err = f.svc.Remove(ctx, user, view.Lines[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	_, err := f.svc.Add(ctx, user, f.catalog.add("A", "3.00").ID)
	require.NoError(t, err)

	view, err := f.svc.Clear(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, 0, view.Count)
}

func TestRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Load(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = f.svc.Add(ctx, uuid.Nil, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.True(t, pkgerrors.IsCode(f.svc.Prune(ctx, uuid.Nil, nil), pkgerrors.CodeUnauthorized))
}

type flakyState struct {
	createErrs []error
	deleteErr  map[uuid.UUID]error
	setErr     error
}

type flakyRepo struct {
	Repository
	state *flakyState
}

func (r *flakyRepo) WithTx(tx *gorm.DB) Repository {
	return &flakyRepo{Repository: r.Repository.WithTx(tx), state: r.state}
}

func (r *flakyRepo) Create(ctx context.Context, item *models.CartItem) error {
	if len(r.state.createErrs) > 0 {
		err := r.state.createErrs[0]
		r.state.createErrs = r.state.createErrs[1:]
		return err
	}
	return r.Repository.Create(ctx, item)
}

func (r *flakyRepo) Delete(ctx context.Context, userID, lineID uuid.UUID) (int64, error) {
	if err, ok := r.state.deleteErr[lineID]; ok {
		return 0, err
	}
	return r.Repository.Delete(ctx, userID, lineID)
}

func (r *flakyRepo) SetQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (int64, error) {
	if r.state.setErr != nil {
		return 0, r.state.setErr
	}
	return r.Repository.SetQuantity(ctx, userID, lineID, quantity)
}

func TestAddRetriesAfterUniqueViolation(t *testing.T) {
	f := newFixture(t)
	repo := &flakyRepo{Repository: f.repo, state: &flakyState{
		createErrs: []error{errors.New("UNIQUE constraint failed: cart_items.user_id, cart_items.product_id")},
	}}
	svc := f.newService(t, repo)
	mug := f.catalog.add("Mug", "5.00")

	view, err := svc.Add(context.Background(), uuid.New(), mug.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 1, view.Lines[0].Quantity)
}

func TestWriteFailureSurfacesRemoteWriteAndKeepsStoreState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	view, err := f.svc.Add(ctx, user, f.catalog.add("Mug", "5.00").ID)
	require.NoError(t, err)
	lineID := view.Lines[0].ID

	repo := &flakyRepo{Repository: f.repo, state: &flakyState{setErr: errors.New("connection refused")}}
	svc := f.newService(t, repo)

	_, err = svc.UpdateQuantity(ctx, user, lineID, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRemoteWrite))
	assert.Equal(t, "Failed to update cart", pkgerrors.As(err).Message())

	view, err = f.svc.Load(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Lines[0].Quantity)
}

func TestPruneContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.catalog.add("A", "1.00")
	b := f.catalog.add("B", "2.00")
	_, err := f.svc.Add(ctx, user, a.ID)
	require.NoError(t, err)
	view, err := f.svc.Add(ctx, user, b.ID)
	require.NoError(t, err)

	failing := view.Lines[0].ID
	repo := &flakyRepo{Repository: f.repo, state: &flakyState{deleteErr: map[uuid.UUID]error{failing: errors.New("timeout")}}}
	svc := f.newService(t, repo)

	err = svc.Prune(ctx, user, view.Lines.IDs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), failing.String())

	after, err := f.svc.Load(ctx, user)
	require.NoError(t, err)
	require.Len(t, after.Lines, 1)
	assert.Equal(t, failing, after.Lines[0].ID)
}
