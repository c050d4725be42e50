package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BeforeCreate hooks assign identities in the application so the sqlite dev
// path works without server-side uuid generation. The Postgres migrations keep
// gen_random_uuid() as a default for rows created outside GORM.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *Order) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *OrderItem) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *TrackingEvent) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (m *StatusChange) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (m *DisputeMessage) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *ProductVariant) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Store) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *Depot) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *PickupPoint) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
func (m *Payout) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
func (m *OutboxDLQ) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
