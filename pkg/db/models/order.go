package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

// Order is the central fulfillment aggregate. Rows are never deleted; terminal
// orders are retained for audit and payout computation.
type Order struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	TrackingNumber string             `gorm:"column:tracking_number;not null;uniqueIndex"`
	CustomerID     uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	Status         enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'confirmed'"`
	PreviousStatus *enums.OrderStatus `gorm:"column:previous_status;type:order_status"`

	// Version backs the compare-and-swap on status transitions. Exactly one of two
	// concurrent transition attempts may advance it.
	Version int `gorm:"column:version;not null;default:1"`

	DeliveryMethod enums.DeliveryMethod `gorm:"column:delivery_method;type:delivery_method;not null"`
	PickupPointID  *uuid.UUID           `gorm:"column:pickup_point_id;type:uuid"`
	AgentID        *uuid.UUID           `gorm:"column:agent_id;type:uuid"`

	DepotID           *uuid.UUID `gorm:"column:depot_id;type:uuid"`
	StorageLocationID *string    `gorm:"column:storage_location_id"`
	CheckedInAt       *time.Time `gorm:"column:checked_in_at"`
	CheckedInBy       *uuid.UUID `gorm:"column:checked_in_by;type:uuid"`

	Discrepancy        *types.Discrepancy     `gorm:"column:discrepancy;type:jsonb;serializer:json"`
	DeliveryFailure    *types.DeliveryFailure `gorm:"column:delivery_failure;type:jsonb;serializer:json"`
	ProofOfDeliveryURL *string                `gorm:"column:proof_of_delivery_url"`
	Recipient          *types.RecipientInfo   `gorm:"column:recipient;type:jsonb;serializer:json"`
	RefundRequest      *types.RefundRequest   `gorm:"column:refund_request;type:jsonb;serializer:json"`

	SubtotalCents    int     `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int     `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       int     `gorm:"column:total_cents;not null"`
	AppliedPromoCode *string `gorm:"column:applied_promo_code"`

	// StockReleasedAt guards release idempotency: a second cancel or forced
	// release observes the stamp and leaves stock untouched.
	StockReleasedAt *time.Time `gorm:"column:stock_released_at"`

	Items           []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingEvents  []TrackingEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusChanges   []StatusChange   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DisputeMessages []DisputeMessage `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a point-in-time snapshot of a catalog line: later product edits
// never change a placed order.
type OrderItem struct {
	ID                     uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID                uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	ProductID              uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Name                   string                `gorm:"column:name;not null"`
	VendorName             string                `gorm:"column:vendor_name;not null"`
	VendorStoreID          uuid.UUID             `gorm:"column:vendor_store_id;type:uuid;not null"`
	UnitPriceCents         int                   `gorm:"column:unit_price_cents;not null"`
	Qty                    int                   `gorm:"column:qty;not null"`
	SelectedVariant        types.VariantSelector `gorm:"column:selected_variant;type:jsonb;serializer:json"`
	WeightGrams            int                   `gorm:"column:weight_grams;not null;default:0"`
	ShippingSurchargeCents int                   `gorm:"column:shipping_surcharge_cents;not null;default:0"`
	TotalCents             int                   `gorm:"column:total_cents;not null"`
	CreatedAt              time.Time             `gorm:"column:created_at;autoCreateTime"`
}
