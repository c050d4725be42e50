package disputes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/internal/inventory"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
)

func TestRequestRefundRequiresDelivered(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusConfirmed, uuid.New())
	customer := fulfillment.Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}

	_, err := svc.RequestRefund(ctx, customer, RefundRequestInput{OrderID: order.ID, Reason: "damaged"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestRequestRefundStoresClaim(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusDelivered, uuid.New())
	customer := fulfillment.Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}

	stranger := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	if _, err := svc.RequestRefund(ctx, stranger, RefundRequestInput{OrderID: order.ID, Reason: "damaged"}); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	updated, err := svc.RequestRefund(ctx, customer, RefundRequestInput{
		OrderID:      order.ID,
		Reason:       "arrived shattered",
		EvidenceURLs: []string{"https://cdn.example.com/photo.jpg"},
	})
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}
	if updated.Status != enums.OrderStatusRefundRequested {
		t.Fatalf("expected refund_requested, got %s", updated.Status)
	}
	if updated.PreviousStatus == nil || *updated.PreviousStatus != enums.OrderStatusDelivered {
		t.Fatalf("expected previous_status delivered, got %+v", updated.PreviousStatus)
	}
	if updated.RefundRequest == nil || updated.RefundRequest.Reason != "arrived shattered" {
		t.Fatalf("expected stored claim, got %+v", updated.RefundRequest)
	}
}

func TestAddMessageAuthorizesParticipants(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	storeID := uuid.New()
	order := seedOrder(t, db, enums.OrderStatusRefundRequested, storeID)

	customer := fulfillment.Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}
	seller := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller, StoreID: &storeID}
	otherStore := uuid.New()
	outsider := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller, StoreID: &otherStore}
	admin := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}

	for _, actor := range []fulfillment.Actor{customer, seller, admin} {
		if _, err := svc.AddMessage(ctx, actor, order.ID, "hello"); err != nil {
			t.Fatalf("%s message: %v", actor.Role, err)
		}
	}
	if _, err := svc.AddMessage(ctx, outsider, order.ID, "let me in"); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for outside seller, got %v", err)
	}

	messages, err := svc.ListMessages(ctx, customer, order.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
}

func TestResolveRefundedIsTerminal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	order := seedDisputedOrder(t, db)
	admin := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}

	updated, err := svc.Resolve(ctx, admin, order.ID, enums.DisputeResolutionRefunded)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if updated.Status != enums.OrderStatusRefunded {
		t.Fatalf("expected refunded, got %s", updated.Status)
	}

	// a closed dispute cannot be resolved twice
	if _, err := svc.Resolve(ctx, admin, order.ID, enums.DisputeResolutionRefunded); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestResolveRejectedRestoresPreviousStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	order := seedDisputedOrder(t, db)
	admin := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}

	updated, err := svc.Resolve(ctx, admin, order.ID, enums.DisputeResolutionRejected)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected restored delivered status, got %s", updated.Status)
	}
	if updated.PreviousStatus != nil {
		t.Fatalf("expected cleared previous_status, got %+v", updated.PreviousStatus)
	}

	var change models.StatusChange
	if err := db.Where("order_id = ? AND status = ?", order.ID, enums.OrderStatusDelivered).First(&change).Error; err != nil {
		t.Fatalf("load status change: %v", err)
	}
	if change.ChangedBy != "Admin:Root" {
		t.Fatalf("expected admin audit entry, got %q", change.ChangedBy)
	}
}

// resolveRacer lands a concurrent write between the service's precheck and the
// engine transaction, like a second admin resolving the same dispute.
type resolveRacer struct {
	inner  *fulfillment.Engine
	before func()
}

func (r resolveRacer) Apply(ctx context.Context, orderID uuid.UUID, actor fulfillment.Actor, tr fulfillment.Transition) (*models.Order, error) {
	r.before()
	return r.inner.Apply(ctx, orderID, actor, tr)
}

func TestResolveRejectedRechecksDisputeInsideTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	runner := gormTxRunner{db: db}
	events := outbox.NewService(outbox.NewRepository(db), nil)
	engine := fulfillment.NewEngine(runner, events, inventory.NewLedger(), nil, nil)
	ctx := context.Background()

	order := seedDisputedOrder(t, db)
	admin := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin, Name: "Root"}

	racer := resolveRacer{inner: engine, before: func() {
		if _, err := engine.Apply(ctx, order.ID, admin, fulfillment.Transition{Target: enums.OrderStatusRefunded}); err != nil {
			t.Fatalf("concurrent refund: %v", err)
		}
	}}
	svc := NewService(db, runner, racer, events, nil)

	// the rejection must notice the dispute closed under it instead of forcing
	// the stale previous_status back onto the order
	_, err := svc.Resolve(ctx, admin, order.ID, enums.DisputeResolutionRejected)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var current models.Order
	if err := db.First(&current, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if current.Status != enums.OrderStatusRefunded {
		t.Fatalf("expected refunded verdict to stand, got %s", current.Status)
	}
}

func TestResolveIsAdminOnly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)

	order := seedDisputedOrder(t, db)
	seller := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller}

	_, err := svc.Resolve(context.Background(), seller, order.ID, enums.DisputeResolutionRefunded)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newTestService(db *gorm.DB) *Service {
	runner := gormTxRunner{db: db}
	events := outbox.NewService(outbox.NewRepository(db), nil)
	engine := fulfillment.NewEngine(runner, events, inventory.NewLedger(), nil, nil)
	return NewService(db, runner, engine, events, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:disputes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.TrackingEvent{},
		&models.StatusChange{},
		&models.DisputeMessage{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, vendorStoreID uuid.UUID) models.Order {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		TrackingNumber: "PLZ-20260830-" + uuid.NewString()[:6],
		CustomerID:     uuid.New(),
		Status:         status,
		Version:        1,
		DeliveryMethod: enums.DeliveryMethodHomeDelivery,
		SubtotalCents:  1000,
		TotalCents:     1000,
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
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedDisputedOrder(t *testing.T, db *gorm.DB) models.Order {
	t.Helper()
	order := seedOrder(t, db, enums.OrderStatusRefundRequested, uuid.New())
	previous := enums.OrderStatusDelivered
	if err := db.Model(&order).Update("previous_status", previous).Error; err != nil {
		t.Fatalf("set previous status: %v", err)
	}
	order.PreviousStatus = &previous
	return order
}
