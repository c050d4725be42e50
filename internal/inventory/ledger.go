package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/pkg/db/models"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

// ReservationRequest identifies one line of stock to reserve or release.
// Selector is nil for scalar products and the chosen option set for variants.
type ReservationRequest struct {
	ProductID uuid.UUID
	Selector  types.VariantSelector
	Qty       int
	Name      string
}

// Ledger is the only component allowed to mutate stock columns. Every
// decrement and increment is a conditional UPDATE inside the caller's
// transaction so concurrent placements can never read-then-write stale stock.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements stock for every request or none of them. The first line
// that cannot be satisfied aborts the enclosing transaction with the offending
// item and required-vs-available quantities in the error details.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if len(requests) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}
		if err := l.reserveOne(ctx, tx, req); err != nil {
			return err
		}
	}
	return nil
}

// Release is the exact inverse of Reserve. Idempotency is the caller's
// responsibility via the order's stock_released_at stamp.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			continue
		}
		if err := l.releaseOne(ctx, tx, req); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) reserveOne(ctx context.Context, tx *gorm.DB, req ReservationRequest) error {
	if len(req.Selector) > 0 {
		variant, err := resolveVariant(ctx, tx, req.ProductID, req.Selector)
		if err != nil {
			return err
		}
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND stock_qty >= ?", variant.ID, req.Qty).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", req.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve variant stock")
		}
		if res.RowsAffected == 0 {
			return insufficientStock(req, variant.StockQty)
		}
		return nil
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_qty >= ?", req.ProductID, req.Qty).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", req.Qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve product stock")
	}
	if res.RowsAffected == 0 {
		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", req.ProductID).First(&product).Error
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		return insufficientStock(req, product.StockQty)
	}
	return nil
}

func (l *Ledger) releaseOne(ctx context.Context, tx *gorm.DB, req ReservationRequest) error {
	if len(req.Selector) > 0 {
		variant, err := resolveVariant(ctx, tx, req.ProductID, req.Selector)
		if err != nil {
			return err
		}
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ?", variant.ID).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", req.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release variant stock")
		}
		return nil
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", req.ProductID).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", req.Qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release product stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": req.ProductID})
	}
	return nil
}

// resolveVariant requires the selector to match exactly one variant's option
// set with identical cardinality and values. Anything else reads as stock the
// customer cannot buy.
func resolveVariant(ctx context.Context, tx *gorm.DB, productID uuid.UUID, selector types.VariantSelector) (*models.ProductVariant, error) {
	var variants []models.ProductVariant
	if err := tx.WithContext(ctx).Where("product_id = ?", productID).Find(&variants).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product variants")
	}

	var match *models.ProductVariant
	for i := range variants {
		if !selectorEqual(variants[i].Options, selector) {
			continue
		}
		if match != nil {
			return nil, pkgerrors.New(pkgerrors.CodeStock, "variant selector is ambiguous").
				WithDetails(map[string]any{"product_id": productID, "selector": selector})
		}
		match = &variants[i]
	}
	if match == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStock, "no variant matches the selected options").
			WithDetails(map[string]any{"product_id": productID, "selector": selector})
	}
	return match, nil
}

func selectorEqual(a, b types.VariantSelector) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		if b[key] != value {
			return false
		}
	}
	return true
}

func insufficientStock(req ReservationRequest, available int) error {
	name := req.Name
	if name == "" {
		name = req.ProductID.String()
	}
	return pkgerrors.New(pkgerrors.CodeStock, fmt.Sprintf("not enough stock for %s", name)).
		WithDetails(map[string]any{
			"product_id": req.ProductID,
			"requested":  req.Qty,
			"available":  available,
		})
}
