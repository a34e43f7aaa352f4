package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItemUserProductConstraint keeps one line per product per user.
const CartItemUserProductConstraint = "cart_items_user_product_key"

// CartItem is one cart line with the product snapshot taken when it was added.
type CartItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:cart_items_user_product_key"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_user_product_key"`
	Quantity           int             `gorm:"column:quantity;not null;default:1"`
	ProductName        string          `gorm:"column:product_name;not null"`
	ProductPrice       decimal.Decimal `gorm:"column:product_price;type:numeric(12,2);not null"`
	ProductImageURL    string          `gorm:"column:product_image_url;not null;default:''"`
	ProductCategory    string          `gorm:"column:product_category;not null;default:''"`
	ProductRating      float64         `gorm:"column:product_rating;not null;default:0"`
	ProductReviewCount int             `gorm:"column:product_review_count;not null;default:0"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
