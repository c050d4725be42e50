package models

import (
	"time"

	"github.com/google/uuid"
)

// Payout records a transfer of funds from platform to seller, executed out of
// band. Immutable once created; only a subtractive input to balance computation.
type Payout struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID     uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	AmountCents int       `gorm:"column:amount_cents;not null"`
	PaidAt      time.Time `gorm:"column:paid_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
