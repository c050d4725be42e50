package depot

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/pkg/db/models"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
)

// Repository serves the reads depot operations need before mutating an order.
type Repository interface {
	FindDepot(ctx context.Context, id uuid.UUID) (*models.Depot, error)
	FindOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindDepot(ctx context.Context, id uuid.UUID) (*models.Depot, error) {
	var depot models.Depot
	if err := r.db.WithContext(ctx).First(&depot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "depot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load depot")
	}
	return &depot, nil
}

func (r *repository) FindOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "tracking_number = ?", trackingNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return &order, nil
}
