package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
)

// DisputeMessage is one entry in an order's dispute conversation.
type DisputeMessage struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	AuthorRole enums.ActorRole `gorm:"column:author_role;type:actor_role;not null"`
	AuthorID   uuid.UUID       `gorm:"column:author_id;type:uuid;not null"`
	Message    string          `gorm:"column:message;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
