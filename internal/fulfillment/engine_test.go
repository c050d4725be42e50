package fulfillment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/internal/inventory"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

func TestApplyAppendsBothLogs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusConfirmed, enums.DeliveryMethodHomeDelivery)
	seller := Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller, Name: "Vendor"}

	updated, err := engine.Apply(ctx, order.ID, seller, Transition{Target: enums.OrderStatusReadyForPickup})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.Status != enums.OrderStatusReadyForPickup {
		t.Fatalf("expected ready_for_pickup, got %s", updated.Status)
	}
	if updated.Version != order.Version+1 {
		t.Fatalf("expected version %d, got %d", order.Version+1, updated.Version)
	}

	assertLogCounts(t, db, order.ID, 1, 1)

	var change models.StatusChange
	if err := db.First(&change, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load status change: %v", err)
	}
	if change.ChangedBy != seller.UserID.String() || change.ActorRole != enums.ActorRoleSeller {
		t.Fatalf("unexpected audit identity: %+v", change)
	}

	var events []models.OutboxEvent
	if err := db.Find(&events, "aggregate_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected one order_status_changed event, got %+v", events)
	}
}

func TestApplyRejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusConfirmed, enums.DeliveryMethodHomeDelivery)
	customer := Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}

	_, err := engine.Apply(ctx, order.ID, customer, Transition{Target: enums.OrderStatusPickedUp})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// a rejected attempt leaves both logs and the order untouched
	assertLogCounts(t, db, order.ID, 0, 0)
	assertStatus(t, db, order.ID, enums.OrderStatusConfirmed)
}

func TestApplyVersionConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusConfirmed, enums.DeliveryMethodHomeDelivery)
	seller := Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller}

	_, err := engine.Apply(ctx, order.ID, seller, Transition{
		Target: enums.OrderStatusReadyForPickup,
		// simulate a concurrent writer advancing the row between load and update
		Mutate: func(o *models.Order) ([]string, error) {
			o.Version--
			return nil, nil
		},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected transaction abort, got %v", err)
	}
	assertLogCounts(t, db, order.ID, 0, 0)
	assertStatus(t, db, order.ID, enums.OrderStatusConfirmed)
}

func TestApplyCancelReleasesStockOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	product := seedProduct(t, db, 3)
	order := seedOrder(t, db, enums.OrderStatusConfirmed, enums.DeliveryMethodHomeDelivery)
	item := models.OrderItem{
		OrderID:        order.ID,
		ProductID:      product.ID,
		Name:           "Mug",
		VendorName:     "Vendor",
		VendorStoreID:  uuid.New(),
		UnitPriceCents: 500,
		Qty:            2,
		TotalCents:     1000,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	customer := Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}
	updated, err := engine.Apply(ctx, order.ID, customer, Transition{Target: enums.OrderStatusCanceled})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.StockReleasedAt == nil {
		t.Fatal("expected stock_released_at stamp")
	}
	assertProductStock(t, db, product.ID, 5)

	// force the order back open and cancel again: the release stamp must make
	// the second cancellation leave stock alone
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}
	if _, err := engine.Apply(ctx, order.ID, admin, Transition{Target: enums.OrderStatusConfirmed, Force: true}); err != nil {
		t.Fatalf("force reopen: %v", err)
	}
	if _, err := engine.Apply(ctx, order.ID, customer, Transition{Target: enums.OrderStatusCanceled}); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	assertProductStock(t, db, product.ID, 5)
}

func TestApplyDeliveryFailedRequiresReason(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusOutForDelivery, enums.DeliveryMethodHomeDelivery)
	agent := Actor{UserID: uuid.New(), Role: enums.ActorRoleDeliveryAgent}

	_, err := engine.Apply(ctx, order.ID, agent, Transition{Target: enums.OrderStatusDeliveryFailed})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	updated, err := engine.Apply(ctx, order.ID, agent, Transition{
		Target: enums.OrderStatusDeliveryFailed,
		DeliveryFailure: &types.DeliveryFailure{
			Reason:  enums.DeliveryFailureClientAbsent,
			Details: "no answer after two attempts",
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.DeliveryFailure == nil || updated.DeliveryFailure.Reason != enums.DeliveryFailureClientAbsent {
		t.Fatalf("expected persisted delivery failure, got %+v", updated.DeliveryFailure)
	}
}

func TestApplyPickupCollectionGuard(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()
	depotAgent := Actor{UserID: uuid.New(), Role: enums.ActorRoleDepotAgent}

	homeOrder := seedOrder(t, db, enums.OrderStatusAtDepot, enums.DeliveryMethodHomeDelivery)
	_, err := engine.Apply(ctx, homeOrder.ID, depotAgent, Transition{
		Target:    enums.OrderStatusDelivered,
		Recipient: &types.RecipientInfo{Name: "Ana", IDNumber: "X1"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected home delivery rejection, got %v", err)
	}

	pickupOrder := seedOrder(t, db, enums.OrderStatusAtDepot, enums.DeliveryMethodPickup)
	_, err = engine.Apply(ctx, pickupOrder.ID, depotAgent, Transition{Target: enums.OrderStatusDelivered})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected recipient requirement, got %v", err)
	}

	updated, err := engine.Apply(ctx, pickupOrder.ID, depotAgent, Transition{
		Target:    enums.OrderStatusDelivered,
		Recipient: &types.RecipientInfo{Name: "Ana", IDNumber: "X1"},
	})
	if err != nil {
		t.Fatalf("pickup collection: %v", err)
	}
	if updated.Recipient == nil || updated.Recipient.Name != "Ana" {
		t.Fatalf("expected persisted recipient, got %+v", updated.Recipient)
	}
}

func TestApplyForceRequiresAdmin(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusCanceled, enums.DeliveryMethodHomeDelivery)

	seller := Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller}
	_, err := engine.Apply(ctx, order.ID, seller, Transition{Target: enums.OrderStatusConfirmed, Force: true})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}
	if _, err := engine.Apply(ctx, order.ID, admin, Transition{Target: enums.OrderStatusConfirmed, Force: true}); err != nil {
		t.Fatalf("force: %v", err)
	}

	var change models.StatusChange
	if err := db.First(&change, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load status change: %v", err)
	}
	if change.ChangedBy != "Admin:Root" {
		t.Fatalf("expected Admin:Root audit entry, got %q", change.ChangedBy)
	}
}

func TestApplyRefundRequestTracksPreviousStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusDelivered, enums.DeliveryMethodHomeDelivery)
	customer := Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}

	updated, err := engine.Apply(ctx, order.ID, customer, Transition{Target: enums.OrderStatusRefundRequested})
	if err != nil {
		t.Fatalf("refund request: %v", err)
	}
	if updated.PreviousStatus == nil || *updated.PreviousStatus != enums.OrderStatusDelivered {
		t.Fatalf("expected previous_status delivered, got %+v", updated.PreviousStatus)
	}

	// rejection restores the remembered status and clears the slot
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}
	restored, err := engine.Apply(ctx, order.ID, admin, Transition{Target: *updated.PreviousStatus, Force: true})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Status != enums.OrderStatusDelivered || restored.PreviousStatus != nil {
		t.Fatalf("expected delivered with cleared previous_status, got %s %+v", restored.Status, restored.PreviousStatus)
	}
}

func TestApplyGuardBlocksOutOfScopeActor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	sellingStore := uuid.New()
	order := seedOrder(t, db, enums.OrderStatusConfirmed, enums.DeliveryMethodHomeDelivery)
	item := models.OrderItem{
		OrderID:        order.ID,
		ProductID:      uuid.New(),
		Name:           "Mug",
		VendorName:     "Vendor",
		VendorStoreID:  sellingStore,
		UnitPriceCents: 500,
		Qty:            1,
		TotalCents:     500,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	// the guard runs against the row the transaction loads, items included
	storeGuard := func(storeID uuid.UUID) func(o *models.Order) error {
		return func(o *models.Order) error {
			for _, it := range o.Items {
				if it.VendorStoreID == storeID {
					return nil
				}
			}
			return pkgerrors.New(pkgerrors.CodeForbidden, "order contains no items sold by this store")
		}
	}

	seller := Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller}
	_, err := engine.Apply(ctx, order.ID, seller, Transition{
		Target: enums.OrderStatusReadyForPickup,
		Guard:  storeGuard(uuid.New()),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	assertLogCounts(t, db, order.ID, 0, 0)
	assertStatus(t, db, order.ID, enums.OrderStatusConfirmed)

	if _, err := engine.Apply(ctx, order.ID, seller, Transition{
		Target: enums.OrderStatusReadyForPickup,
		Guard:  storeGuard(sellingStore),
	}); err != nil {
		t.Fatalf("apply with matching store: %v", err)
	}
	assertStatus(t, db, order.ID, enums.OrderStatusReadyForPickup)
}

func TestApplyTargetFromResolvesFromLoadedRow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusRefundRequested, enums.DeliveryMethodHomeDelivery)
	previous := enums.OrderStatusOutForDelivery
	if err := db.Model(&order).Update("previous_status", previous).Error; err != nil {
		t.Fatalf("set previous status: %v", err)
	}

	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}
	restored, err := engine.Apply(ctx, order.ID, admin, Transition{
		Force: true,
		TargetFrom: func(o *models.Order) (enums.OrderStatus, error) {
			if o.PreviousStatus == nil {
				return "", pkgerrors.New(pkgerrors.CodeInternal, "missing previous status")
			}
			return *o.PreviousStatus, nil
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if restored.Status != previous {
		t.Fatalf("expected %s, got %s", previous, restored.Status)
	}
	if restored.PreviousStatus != nil {
		t.Fatalf("expected cleared previous_status, got %+v", restored.PreviousStatus)
	}
}

func TestApplyByTrackingUnknownNumber(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := newTestEngine(db)

	_, err := engine.ApplyByTracking(context.Background(), "PLZ-00000000-000000",
		Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller},
		Transition{Target: enums.OrderStatusReadyForPickup})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newTestEngine(db *gorm.DB) *Engine {
	events := outbox.NewService(outbox.NewRepository(db), nil)
	return NewEngine(gormTxRunner{db: db}, events, inventory.NewLedger(), nil, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, method enums.DeliveryMethod) models.Order {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		TrackingNumber: "PLZ-20260830-" + uuid.NewString()[:6],
		CustomerID:     uuid.New(),
		Status:         status,
		Version:        1,
		DeliveryMethod: method,
		SubtotalCents:  1000,
		TotalCents:     1000,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		StoreID:    uuid.New(),
		Name:       "test product",
		PriceCents: 500,
		StockQty:   stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func assertLogCounts(t *testing.T, db *gorm.DB, orderID uuid.UUID, wantTracking, wantChanges int64) {
	t.Helper()
	var tracking, changes int64
	if err := db.Model(&models.TrackingEvent{}).Where("order_id = ?", orderID).Count(&tracking).Error; err != nil {
		t.Fatalf("count tracking events: %v", err)
	}
	if err := db.Model(&models.StatusChange{}).Where("order_id = ?", orderID).Count(&changes).Error; err != nil {
		t.Fatalf("count status changes: %v", err)
	}
	if tracking != wantTracking || changes != wantChanges {
		t.Fatalf("expected %d/%d log rows, got %d/%d", wantTracking, wantChanges, tracking, changes)
	}
}

func assertStatus(t *testing.T, db *gorm.DB, orderID uuid.UUID, want enums.OrderStatus) {
	t.Helper()
	var order models.Order
	if err := db.First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != want {
		t.Fatalf("expected status %s, got %s", want, order.Status)
	}
}

func assertProductStock(t *testing.T, db *gorm.DB, productID uuid.UUID, want int) {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.StockQty != want {
		t.Fatalf("expected stock %d, got %d", want, product.StockQty)
	}
}
