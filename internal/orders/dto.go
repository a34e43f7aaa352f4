package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// HandleLength is how many characters of the order id are shown to shoppers.
const HandleLength = 8

// Handle returns the short display form of an order id.
func Handle(id uuid.UUID) string {
	return id.String()[:HandleLength]
}

// ItemCount aggregates an order's items.
type ItemCount struct {
	Lines int
	Units int
}

// OrderSummary is one row of the order history list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	Handle        string              `json:"handle"`
	Status        enums.OrderStatus   `json:"status"`
	TotalAmount   string              `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	LineCount     int                 `json:"line_count"`
	ItemCount     int                 `json:"item_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItemDTO is an order line as stored at purchase time.
type OrderItemDTO struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Price       string    `json:"price"`
	LineTotal   string    `json:"line_total"`
}

// OrderDetail is the header plus its items.
type OrderDetail struct {
	ID              uuid.UUID           `json:"id"`
	Handle          string              `json:"handle"`
	Status          enums.OrderStatus   `json:"status"`
	TotalAmount     string              `json:"total_amount"`
	ShippingName    string              `json:"shipping_name"`
	ShippingContact string              `json:"shipping_contact"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Message         *string             `json:"message,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toSummary(o models.Order, counts ItemCount) OrderSummary {
	return OrderSummary{
		ID:            o.ID,
		Handle:        Handle(o.ID),
		Status:        o.Status,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		LineCount:     counts.Lines,
		ItemCount:     counts.Units,
		CreatedAt:     o.CreatedAt,
	}
}

func toDetail(o *models.Order) *OrderDetail {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
			LineTotal:   item.Price.Mul(decimalFromInt(item.Quantity)).StringFixed(2),
		})
	}
	return &OrderDetail{
		ID:              o.ID,
		Handle:          Handle(o.ID),
		Status:          o.Status,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		ShippingName:    o.ShippingName,
		ShippingContact: o.ShippingContact,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Message:         o.Message,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}
