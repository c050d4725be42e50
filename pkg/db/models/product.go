package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/types"
)

// Product is the catalog entity the stock ledger decrements against. Catalog
// management lives outside this service; stock columns are only ever mutated by
// the ledger's conditional updates.
type Product struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	StoreID    uuid.UUID        `gorm:"column:store_id;type:uuid;not null"`
	Name       string           `gorm:"column:name;not null"`
	PriceCents int              `gorm:"column:price_cents;not null"`
	StockQty   int              `gorm:"column:stock_qty;not null;default:0"`
	// WeightGrams feeds the per-kilo shipping surcharge at placement.
	WeightGrams int `gorm:"column:weight_grams;not null;default:0"`
	Variants   []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant carries per-variant stock keyed by its option set.
type ProductVariant struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	Options   types.VariantSelector `gorm:"column:options;type:jsonb;serializer:json;not null"`
	StockQty  int                   `gorm:"column:stock_qty;not null;default:0"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
