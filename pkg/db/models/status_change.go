package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
)

// StatusChange is the administrative audit-log entry paired with every status
// mutation. ChangedBy holds "Admin:<name>" for admin escape-hatch transitions.
type StatusChange struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	ChangedBy string            `gorm:"column:changed_by;not null"`
	ActorRole enums.ActorRole   `gorm:"column:actor_role;type:actor_role;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
