package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/pagination"
)

func TestListByCustomerPaginates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedListedOrder(t, db, customerID, uuid.New(), base.Add(time.Duration(i)*time.Minute))
	}
	// someone else's order must never leak into the page
	seedListedOrder(t, db, uuid.New(), uuid.New(), base)

	first, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	require.True(t, first.Orders[0].CreatedAt.After(first.Orders[1].CreatedAt), "expected newest-first ordering")

	second, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	require.Empty(t, second.NextCursor)
}

func TestListByStoreMatchesItemSnapshots(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	storeID := uuid.New()
	mine := seedListedOrder(t, db, uuid.New(), storeID, time.Now())
	seedListedOrder(t, db, uuid.New(), uuid.New(), time.Now())

	page, err := repo.ListByStore(ctx, storeID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	require.Equal(t, mine.ID, page.Orders[0].ID)
}

func TestFindByTrackingNumberLoadsTimeline(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedListedOrder(t, db, uuid.New(), uuid.New(), time.Now())
	event := models.TrackingEvent{OrderID: order.ID, Status: enums.OrderStatusConfirmed}
	require.NoError(t, db.Create(&event).Error)

	loaded, err := repo.FindByTrackingNumber(ctx, order.TrackingNumber)
	require.NoError(t, err)
	require.Len(t, loaded.TrackingEvents, 1)
	require.Len(t, loaded.Items, 1)

	_, err = repo.FindByTrackingNumber(ctx, "PLZ-19700101-000000")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "expected not found, got %v", err)
}

func TestListRejectsMalformedCursor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ListByCustomer(context.Background(), uuid.New(), pagination.Params{Cursor: "not-base64!"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)
}

func seedListedOrder(t *testing.T, db *gorm.DB, customerID, vendorStoreID uuid.UUID, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		TrackingNumber: "PLZ-20260830-" + uuid.NewString()[:6],
		CustomerID:     customerID,
		Status:         enums.OrderStatusConfirmed,
		Version:        1,
		DeliveryMethod: enums.DeliveryMethodHomeDelivery,
		SubtotalCents:  1000,
		TotalCents:     1000,
		CreatedAt:      createdAt,
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			Name:           "item",
			VendorName:     "vendor",
			VendorStoreID:  vendorStoreID,
			UnitPriceCents: 1000,
			Qty:            1,
			TotalCents:     1000,
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}
