package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Notices shown when a cart write does not go through.
const (
	msgAddFailed     = "Failed to add item to cart"
	msgUpdateFailed  = "Failed to update cart"
	msgRemoveFailed  = "Failed to remove item from cart"
	msgClearFailed   = "Failed to clear cart"
	msgLoadFailed    = "Failed to load cart"
	msgDeleteNoneSel = "Please select items to delete"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// View is the confirmed state of a cart after a round trip to the store.
type View struct {
	Lines types.CartLines
	Count int
	Total decimal.Decimal
}

func newView(lines types.CartLines) *View {
	if lines == nil {
		lines = types.CartLines{}
	}
	return &View{Lines: lines, Count: lines.Count(), Total: lines.Total()}
}

// Service exposes cart operations. Every mutation returns the reloaded view.
type Service interface {
	Load(ctx context.Context, userID uuid.UUID) (*View, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) (*View, error)
	RemoveMany(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) (*View, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) (*View, error)
	Prune(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog catalog.Service
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, catalogSvc catalog.Service, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: catalogSvc,
		logg:    logg,
		metrics: m,
	}, nil
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func (s *service) Load(ctx context.Context, userID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgLoadFailed)
	}
	lines := make(types.CartLines, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, toLine(row))
	}
	return newView(lines), nil
}

// Add increments the user's line for the product or inserts one with quantity 1.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	snapshot, err := s.catalog.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}

	add := func(tx *gorm.DB) error {
		return s.addLine(ctx, s.repo.WithTx(tx), userID, snapshot)
	}
	err = s.tx.WithTx(ctx, add)
	if err != nil && db.IsUniqueViolation(err, models.CartItemUserProductConstraint) {
		// a concurrent add inserted the line first; the retry increments it
		err = s.tx.WithTx(ctx, add)
	}
	if err != nil {
		return nil, s.writeFailed(ctx, "add", err, msgAddFailed)
	}
	s.metrics.IncCartMutation("add", "ok")
	return s.Load(ctx, userID)
}

func (s *service) addLine(ctx context.Context, repo Repository, userID uuid.UUID, snapshot types.ProductSnapshot) error {
	existing, err := repo.FindByUserProduct(ctx, userID, snapshot.ID)
	switch {
	case err == nil:
		return repo.Increment(ctx, userID, existing.ID, 1)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.Create(ctx, newCartItem(userID, snapshot))
	default:
		return err
	}
}

// Remove deletes one line. Unknown lines are a no-op.
func (s *service) Remove(ctx context.Context, userID, lineID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.Delete(ctx, userID, lineID); err != nil {
		return nil, s.writeFailed(ctx, "remove", err, msgRemoveFailed)
	}
	s.metrics.IncCartMutation("remove", "ok")
	return s.Load(ctx, userID)
}

// RemoveMany deletes the selected lines one at a time.
func (s *service) RemoveMany(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(lineIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgDeleteNoneSel)
	}
	if err := s.Prune(ctx, userID, lineIDs); err != nil {
		return nil, s.writeFailed(ctx, "remove_many", err, msgRemoveFailed)
	}
	s.metrics.IncCartMutation("remove_many", "ok")
	return s.Load(ctx, userID)
}

// UpdateQuantity persists a new quantity. Values below 1 are ignored.
func (s *service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		s.metrics.IncCartMutation("update_quantity", "ignored")
		return s.Load(ctx, userID)
	}
	if _, err := s.repo.SetQuantity(ctx, userID, lineID, quantity); err != nil {
		return nil, s.writeFailed(ctx, "update_quantity", err, msgUpdateFailed)
	}
	s.metrics.IncCartMutation("update_quantity", "ok")
	return s.Load(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.DeleteAll(ctx, userID); err != nil {
		return nil, s.writeFailed(ctx, "clear", err, msgClearFailed)
	}
	s.metrics.IncCartMutation("clear", "ok")
	return s.Load(ctx, userID)
}

// Prune deletes each line independently; one failure does not stop the rest.
// The returned error combines every per-line failure.
func (s *service) Prune(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	var errs error
	seen := make(map[uuid.UUID]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.repo.Delete(ctx, userID, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete line %s: %w", id, err))
		}
	}
	return errs
}

func (s *service) writeFailed(ctx context.Context, op string, err error, notice string) error {
	s.metrics.IncCartMutation(op, "error")
	logCtx := s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	s.logg.Error(logCtx, "cart "+op+" failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, notice)
}
