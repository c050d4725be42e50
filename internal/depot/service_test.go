package depot

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
	"github.com/plazagoods/plaza-backend/pkg/types"
)

func TestCheckInStampsCustody(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	depot := seedDepot(t, db, 3, 4, 5)
	order := seedOrder(t, db, enums.OrderStatusPickedUp, enums.DeliveryMethodHomeDelivery)
	agent := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleDepotAgent}

	note := "box corner dented"
	updated, err := svc.CheckIn(ctx, agent, CheckInInput{
		TrackingNumber: order.TrackingNumber,
		DepotID:        depot.ID,
		Slot:           "A2-S3-L4",
		Note:           &note,
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}

	if updated.Status != enums.OrderStatusAtDepot {
		t.Fatalf("expected at_depot, got %s", updated.Status)
	}
	if updated.DepotID == nil || *updated.DepotID != depot.ID {
		t.Fatalf("expected depot stamp, got %+v", updated.DepotID)
	}
	if updated.StorageLocationID == nil || *updated.StorageLocationID != "A2-S3-L4" {
		t.Fatalf("expected slot stamp, got %+v", updated.StorageLocationID)
	}
	if updated.CheckedInAt == nil || updated.CheckedInBy == nil || *updated.CheckedInBy != agent.UserID {
		t.Fatalf("expected check-in stamps, got %+v", updated)
	}
	if updated.Discrepancy == nil || !updated.Discrepancy.Advisory || updated.Discrepancy.Reason != note {
		t.Fatalf("expected advisory discrepancy, got %+v", updated.Discrepancy)
	}
}

func TestCheckInValidatesSlotAgainstGrid(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	depot := seedDepot(t, db, 2, 2, 2)
	order := seedOrder(t, db, enums.OrderStatusPickedUp, enums.DeliveryMethodHomeDelivery)
	agent := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleDepotAgent}

	for _, slot := range []string{"A3-S1-L1", "A1-S1", "shelf-9", ""} {
		_, err := svc.CheckIn(ctx, agent, CheckInInput{
			TrackingNumber: order.TrackingNumber,
			DepotID:        depot.ID,
			Slot:           slot,
		})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("slot %q: expected validation error, got %v", slot, err)
		}
	}

	// an undeclared grid accepts free-form slot ids
	freeform := seedDepot(t, db, 0, 0, 0)
	if _, err := svc.CheckIn(ctx, agent, CheckInInput{
		TrackingNumber: order.TrackingNumber,
		DepotID:        freeform.ID,
		Slot:           "dock-7",
	}); err != nil {
		t.Fatalf("free-form slot: %v", err)
	}
}

func TestCheckInRequiresPickedUp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	depot := seedDepot(t, db, 0, 0, 0)
	order := seedOrder(t, db, enums.OrderStatusAtDepot, enums.DeliveryMethodHomeDelivery)
	agent := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleDepotAgent}

	_, err := svc.CheckIn(ctx, agent, CheckInInput{
		TrackingNumber: order.TrackingNumber,
		DepotID:        depot.ID,
		Slot:           "dock-1",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	var unchanged models.Order
	if err := db.First(&unchanged, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if unchanged.StorageLocationID != nil {
		t.Fatalf("expected slot unchanged, got %+v", unchanged.StorageLocationID)
	}
}

func TestProcessDepartureBranchesOnMethod(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()
	agent := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleDepotAgent}

	home := seedOrder(t, db, enums.OrderStatusAtDepot, enums.DeliveryMethodHomeDelivery)
	updated, err := svc.ProcessDeparture(ctx, agent, DepartureInput{TrackingNumber: home.TrackingNumber})
	if err != nil {
		t.Fatalf("home departure: %v", err)
	}
	if updated.Status != enums.OrderStatusOutForDelivery {
		t.Fatalf("expected out_for_delivery, got %s", updated.Status)
	}

	pickup := seedOrder(t, db, enums.OrderStatusAtDepot, enums.DeliveryMethodPickup)
	if _, err := svc.ProcessDeparture(ctx, agent, DepartureInput{TrackingNumber: pickup.TrackingNumber}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected recipient requirement, got %v", err)
	}

	collected, err := svc.ProcessDeparture(ctx, agent, DepartureInput{
		TrackingNumber: pickup.TrackingNumber,
		Recipient:      &types.RecipientInfo{Name: "Ana", IDNumber: "X1"},
	})
	if err != nil {
		t.Fatalf("pickup departure: %v", err)
	}
	if collected.Status != enums.OrderStatusDelivered || collected.Recipient == nil {
		t.Fatalf("expected delivered with recipient, got %s", collected.Status)
	}
}

func TestReportDiscrepancyFreezesOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()
	agent := fulfillment.Actor{UserID: uuid.New(), Role: enums.ActorRoleDepotAgent}

	order := seedOrder(t, db, enums.OrderStatusAtDepot, enums.DeliveryMethodHomeDelivery)

	if _, err := svc.ReportDiscrepancy(ctx, agent, order.TrackingNumber, "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}

	updated, err := svc.ReportDiscrepancy(ctx, agent, order.TrackingNumber, "weight mismatch against manifest")
	if err != nil {
		t.Fatalf("report discrepancy: %v", err)
	}
	if updated.Status != enums.OrderStatusDepotIssue {
		t.Fatalf("expected depot_issue, got %s", updated.Status)
	}
	if updated.Discrepancy == nil || updated.Discrepancy.Advisory {
		t.Fatalf("expected blocking discrepancy, got %+v", updated.Discrepancy)
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
	return NewService(NewRepository(db), engine, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:depot_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.TrackingEvent{},
		&models.StatusChange{},
		&models.Depot{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDepot(t *testing.T, db *gorm.DB, aisles, shelves, locations int) models.Depot {
	t.Helper()
	depot := models.Depot{
		ID:        uuid.New(),
		Name:      "Central",
		Aisles:    aisles,
		Shelves:   shelves,
		Locations: locations,
	}
	if err := db.Create(&depot).Error; err != nil {
		t.Fatalf("seed depot: %v", err)
	}
	return depot
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
