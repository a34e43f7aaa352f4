package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the product data captured on a cart line when it was added.
type ProductSnapshot struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"review_count"`
}

// CartLine is one product row in a user's cart.
type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// LineTotal is price times quantity at full precision.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartLines is an ordered collection of cart lines.
type CartLines []CartLine

// Count sums quantities across lines.
func (c CartLines) Count() int {
	total := 0
	for _, line := range c {
		total += line.Quantity
	}
	return total
}

// Total sums line totals. Rounding is left to presentation.
func (c CartLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.LineTotal())
	}
	return total
}

// IDs returns the line ids in order.
func (c CartLines) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c))
	for _, line := range c {
		ids = append(ids, line.ID)
	}
	return ids
}

// Clone returns an independent copy. CartLine holds only values, so a copy of
// the backing array is a deep copy.
func (c CartLines) Clone() CartLines {
	if c == nil {
		return nil
	}
	out := make(CartLines, len(c))
	copy(out, c)
	return out
}

// Contains reports whether a line with the id exists.
func (c CartLines) Contains(id uuid.UUID) bool {
	for _, line := range c {
		if line.ID == id {
			return true
		}
	}
	return false
}
