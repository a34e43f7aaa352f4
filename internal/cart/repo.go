package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	Increment(ctx context.Context, userID, lineID uuid.UUID, delta int) error
	SetQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (int64, error)
	Delete(ctx context.Context, userID, lineID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	var row models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Increment(ctx context.Context, userID, lineID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) SetQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, userID, lineID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", lineID, userID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

func newCartItem(userID uuid.UUID, snapshot types.ProductSnapshot) *models.CartItem {
	return &models.CartItem{
		UserID:             userID,
		ProductID:          snapshot.ID,
		Quantity:           1,
		ProductName:        snapshot.Name,
		ProductPrice:       snapshot.Price,
		ProductImageURL:    snapshot.ImageURL,
		ProductCategory:    snapshot.Category,
		ProductRating:      snapshot.Rating,
		ProductReviewCount: snapshot.ReviewCount,
	}
}

func toLine(row models.CartItem) types.CartLine {
	return types.CartLine{
		ID:        row.ID,
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		Product: types.ProductSnapshot{
			ID:          row.ProductID,
			Name:        row.ProductName,
			Price:       row.ProductPrice,
			ImageURL:    row.ProductImageURL,
			Category:    row.ProductCategory,
			Rating:      row.ProductRating,
			ReviewCount: row.ProductReviewCount,
		},
	}
}
