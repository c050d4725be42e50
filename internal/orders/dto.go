package orders

import (
	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

// PlaceOrderLine is one requested cart line. Selector is empty for scalar
// products and names the chosen options for variant products.
type PlaceOrderLine struct {
	ProductID uuid.UUID             `json:"product_id" validate:"required"`
	Selector  types.VariantSelector `json:"selected_variant,omitempty"`
	Qty       int                   `json:"qty" validate:"required,gt=0"`
}

// PlaceOrderInput is everything needed to place an order atomically.
type PlaceOrderInput struct {
	CustomerID     uuid.UUID            `json:"-"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method" validate:"required"`
	PickupPointID  *uuid.UUID           `json:"pickup_point_id,omitempty"`
	PromoCode      *string              `json:"promo_code,omitempty"`
	Lines          []PlaceOrderLine     `json:"lines" validate:"required,min=1,dive"`
}

// OrderPage is one cursor page of orders.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
