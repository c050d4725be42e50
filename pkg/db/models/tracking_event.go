package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
)

// TrackingEvent is the customer-facing append-only timeline entry. Exactly one
// row is written per status mutation, in the same transaction.
type TrackingEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Location  *string           `gorm:"column:location"`
	Details   *string           `gorm:"column:details"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
