package models

import (
	"time"

	"github.com/google/uuid"
)

// Depot is a regional staging hub. Aisles/Shelves/Locations declare the physical
// slot grid; zero values mean the depot has not declared a capacity and slot ids
// are accepted free-form.
type Depot struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Aisles    int       `gorm:"column:aisles;not null;default:0"`
	Shelves   int       `gorm:"column:shelves;not null;default:0"`
	Locations int       `gorm:"column:locations;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PickupPoint is a customer-facing collection location for pickup orders.
type PickupPoint struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Address   string    `gorm:"column:address;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
