package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
)

// OrderPlacedEvent signals a new order with reserved stock.
type OrderPlacedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	TrackingNumber string               `json:"tracking_number"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	ItemCount      int                  `json:"item_count"`
	TotalCents     int64                `json:"total_cents"`
}

// OrderStatusChangedEvent is emitted on every successful transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	TrackingNumber string            `json:"tracking_number"`
	FromStatus     enums.OrderStatus `json:"from_status"`
	ToStatus       enums.OrderStatus `json:"to_status"`
	ActorRole      enums.ActorRole   `json:"actor_role"`
}

// OrderCanceledEvent is emitted when a pre-pickup order is canceled.
type OrderCanceledEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	CanceledAt     time.Time `json:"canceled_at"`
	StockReleased  bool      `json:"stock_released"`
}

// OrderRefundRequestedEvent opens a dispute on a delivered order.
type OrderRefundRequestedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Reason         string    `json:"reason"`
}

// OrderRefundResolvedEvent closes a dispute either way.
type OrderRefundResolvedEvent struct {
	OrderID        uuid.UUID               `json:"order_id"`
	TrackingNumber string                  `json:"tracking_number"`
	Resolution     enums.DisputeResolution `json:"resolution"`
	ResultStatus   enums.OrderStatus       `json:"result_status"`
}

// OrderDisputeMessageEvent notifies the other parties of a new message.
type OrderDisputeMessageEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	AuthorRole enums.ActorRole `json:"author_role"`
}

// OrderDepotCheckedInEvent records arrival at a depot.
type OrderDepotCheckedInEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	DepotID           uuid.UUID `json:"depot_id"`
	StorageLocationID *string   `json:"storage_location_id,omitempty"`
	CheckedInAt       time.Time `json:"checked_in_at"`
}

// OrderDepotDepartedEvent records a departure scan.
type OrderDepotDepartedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	DepotID    uuid.UUID         `json:"depot_id"`
	NextStatus enums.OrderStatus `json:"next_status"`
}

// OrderDiscrepancyEvent flags an advisory mismatch reported at a depot.
type OrderDiscrepancyEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	DepotID    uuid.UUID `json:"depot_id"`
	Reason     string    `json:"reason"`
	ReportedBy string    `json:"reported_by"`
}

// PayoutRecordedEvent is emitted when an admin settles a seller balance.
type PayoutRecordedEvent struct {
	PayoutID    uuid.UUID `json:"payout_id"`
	StoreID     uuid.UUID `json:"store_id"`
	AmountCents int64     `json:"amount_cents"`
	RecordedAt  time.Time `json:"recorded_at"`
}
