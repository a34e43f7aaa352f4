package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service resolves product snapshots for cart writes.
type Service interface {
	Snapshot(ctx context.Context, productID uuid.UUID) (types.ProductSnapshot, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Snapshot(ctx context.Context, productID uuid.UUID) (types.ProductSnapshot, error) {
	if productID == uuid.Nil {
		return types.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return types.ProductSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return ToSnapshot(product), nil
}

// ToSnapshot copies the fields a cart line keeps from a product row.
func ToSnapshot(p *models.Product) types.ProductSnapshot {
	return types.ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
	}
}
