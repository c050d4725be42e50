package orders

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/internal/inventory"
	"github.com/plazagoods/plaza-backend/pkg/config"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
)

var trackingNumberPattern = regexp.MustCompile(`^PLZ-\d{8}-\d{6}$`)

func TestPlaceOrderSnapshotsAndReserves(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	store := seedStore(t, db, "Casa Ceramica")
	product := seedProduct(t, db, store.ID, 1000, 500, 5)

	customerID := uuid.New()
	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID:     customerID,
		DeliveryMethod: enums.DeliveryMethodHomeDelivery,
		Lines:          []PlaceOrderLine{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if !trackingNumberPattern.MatchString(order.TrackingNumber) {
		t.Fatalf("unexpected tracking number %q", order.TrackingNumber)
	}
	if order.Status != enums.OrderStatusConfirmed || order.Version != 1 {
		t.Fatalf("unexpected order state: %s v%d", order.Status, order.Version)
	}
	if order.SubtotalCents != 2000 {
		t.Fatalf("expected subtotal 2000, got %d", order.SubtotalCents)
	}
	// 500g x 2 at 100c/kg plus the flat home delivery fee
	if order.DeliveryFeeCents != 600 || order.TotalCents != 2600 {
		t.Fatalf("unexpected fee/total: %d/%d", order.DeliveryFeeCents, order.TotalCents)
	}
	if len(order.Items) != 1 || order.Items[0].VendorName != "Casa Ceramica" || order.Items[0].VendorStoreID != store.ID {
		t.Fatalf("unexpected item snapshot: %+v", order.Items)
	}

	var stocked models.Product
	if err := db.First(&stocked, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stocked.StockQty != 3 {
		t.Fatalf("expected stock 3, got %d", stocked.StockQty)
	}

	var tracking, changes, events int64
	db.Model(&models.TrackingEvent{}).Where("order_id = ?", order.ID).Count(&tracking)
	db.Model(&models.StatusChange{}).Where("order_id = ?", order.ID).Count(&changes)
	db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", order.ID).Count(&events)
	if tracking != 1 || changes != 1 || events != 1 {
		t.Fatalf("expected 1/1/1 audit rows, got %d/%d/%d", tracking, changes, events)
	}
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	store := seedStore(t, db, "Vendor")
	cheap := seedProduct(t, db, store.ID, 100, 0, 10)
	scarce := seedProduct(t, db, store.ID, 100, 0, 1)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID:     uuid.New(),
		DeliveryMethod: enums.DeliveryMethodHomeDelivery,
		Lines: []PlaceOrderLine{
			{ProductID: cheap.ID, Qty: 2},
			{ProductID: scarce.ID, Qty: 3},
		},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 0 {
		t.Fatalf("expected no orders, got %d", orderCount)
	}
	var untouched models.Product
	if err := db.First(&untouched, "id = ?", cheap.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if untouched.StockQty != 10 {
		t.Fatalf("expected rollback to 10, got %d", untouched.StockQty)
	}
}

func TestPlaceOrderPickupRequiresPoint(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	store := seedStore(t, db, "Vendor")
	product := seedProduct(t, db, store.ID, 1000, 0, 5)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID:     uuid.New(),
		DeliveryMethod: enums.DeliveryMethodPickup,
		Lines:          []PlaceOrderLine{{ProductID: product.ID, Qty: 1}},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	point := models.PickupPoint{ID: uuid.New(), Name: "Centro", Address: "Main St 1"}
	if err := db.Create(&point).Error; err != nil {
		t.Fatalf("seed pickup point: %v", err)
	}
	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID:     uuid.New(),
		DeliveryMethod: enums.DeliveryMethodPickup,
		PickupPointID:  &point.ID,
		Lines:          []PlaceOrderLine{{ProductID: product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place pickup order: %v", err)
	}
	// no flat fee on pickup orders
	if order.DeliveryFeeCents != 0 {
		t.Fatalf("expected zero delivery fee, got %d", order.DeliveryFeeCents)
	}
}

func TestCancelChecksOwnershipAndReleasesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	store := seedStore(t, db, "Vendor")
	product := seedProduct(t, db, store.ID, 1000, 0, 5)

	customerID := uuid.New()
	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID:     customerID,
		DeliveryMethod: enums.DeliveryMethodHomeDelivery,
		Lines:          []PlaceOrderLine{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	stranger := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	if _, err := svc.Cancel(ctx, order.ID, stranger); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	owner := fulfillment.Actor{UserID: customerID, Role: enums.ActorRoleCustomer}
	canceled, err := svc.Cancel(ctx, order.ID, owner)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled || canceled.StockReleasedAt == nil {
		t.Fatalf("unexpected cancel state: %+v", canceled)
	}

	var restocked models.Product
	if err := db.First(&restocked, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if restocked.StockQty != 5 {
		t.Fatalf("expected stock back at 5, got %d", restocked.StockQty)
	}
}

func TestGetForCustomerHidesForeignOrders(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	store := seedStore(t, db, "Vendor")
	product := seedProduct(t, db, store.ID, 1000, 0, 5)
	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID:     uuid.New(),
		DeliveryMethod: enums.DeliveryMethodHomeDelivery,
		Lines:          []PlaceOrderLine{{ProductID: product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := svc.GetForCustomer(ctx, uuid.New(), order.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign customer, got %v", err)
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	runner := gormTxRunner{db: db}
	events := outbox.NewService(outbox.NewRepository(db), nil)
	ledger := inventory.NewLedger()
	engine := fulfillment.NewEngine(runner, events, ledger, nil, nil)
	shipping := config.ShippingConfig{HomeDeliveryFeeCents: 500, SurchargePerKiloCents: 100}
	return NewService(NewRepository(db), runner, events, ledger, engine, shipping, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.TrackingEvent{},
		&models.StatusChange{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Store{},
		&models.PickupPoint{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedStore(t *testing.T, db *gorm.DB, name string) models.Store {
	t.Helper()
	store := models.Store{ID: uuid.New(), Name: name, OwnerID: uuid.New()}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func seedProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID, priceCents, weightGrams, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:          uuid.New(),
		StoreID:     storeID,
		Name:        "test product",
		PriceCents:  priceCents,
		WeightGrams: weightGrams,
		StockQty:    stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}
