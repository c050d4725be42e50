package depot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
	"github.com/plazagoods/plaza-backend/pkg/outbox/payloads"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

type transitioner interface {
	ApplyByTracking(ctx context.Context, trackingNumber string, actor fulfillment.Actor, tr fulfillment.Transition) (*models.Order, error)
}

// CheckInInput registers a parcel arriving at a depot.
type CheckInInput struct {
	TrackingNumber string    `json:"tracking_number" validate:"required"`
	DepotID        uuid.UUID `json:"depot_id" validate:"required"`
	Slot           string    `json:"slot" validate:"required"`
	Note           *string   `json:"note,omitempty"`
}

// DepartureInput moves a parcel out of the depot, either onto a courier or
// directly into a collector's hands.
type DepartureInput struct {
	TrackingNumber string               `json:"tracking_number" validate:"required"`
	Recipient      *types.RecipientInfo `json:"recipient,omitempty"`
}

// Service implements depot-side custody operations on top of the transition
// engine so the dual-log contract holds for every mutation.
type Service struct {
	repo   Repository
	engine transitioner
	logg   *logger.Logger
}

func NewService(repo Repository, engine transitioner, logg *logger.Logger) *Service {
	return &Service{repo: repo, engine: engine, logg: logg}
}

// CheckIn stamps the depot, slot and operator onto a picked-up parcel and moves
// it to at_depot. A note becomes an advisory discrepancy without blocking the
// check-in.
func (s *Service) CheckIn(ctx context.Context, actor fulfillment.Actor, input CheckInInput) (*models.Order, error) {
	depot, err := s.repo.FindDepot(ctx, input.DepotID)
	if err != nil {
		return nil, err
	}
	if err := validateSlot(depot, input.Slot); err != nil {
		return nil, err
	}

	location := fmt.Sprintf("depot %s", depot.Name)
	extra := payloads.OrderDepotCheckedInEvent{DepotID: depot.ID, StorageLocationID: &input.Slot}

	return s.engine.ApplyByTracking(ctx, input.TrackingNumber, actor, fulfillment.Transition{
		Target:   enums.OrderStatusAtDepot,
		Location: &location,
		Details:  input.Note,
		Mutate: func(order *models.Order) ([]string, error) {
			now := time.Now()
			order.DepotID = &depot.ID
			order.StorageLocationID = &input.Slot
			order.CheckedInAt = &now
			order.CheckedInBy = &actor.UserID
			columns := []string{"depot_id", "storage_location_id", "checked_in_at", "checked_in_by"}
			if input.Note != nil && strings.TrimSpace(*input.Note) != "" {
				order.Discrepancy = &types.Discrepancy{
					Reason:     *input.Note,
					ReportedBy: actor.UserID,
					ReportedAt: now,
					Advisory:   true,
				}
				columns = append(columns, "discrepancy")
			}
			extra.OrderID = order.ID
			extra.CheckedInAt = now
			return columns, nil
		},
		ExtraEvents: []outbox.DomainEvent{{
			EventType: enums.EventOrderDepotCheckedIn,
			Data:      &extra,
		}},
	})
}

// ProcessDeparture routes the parcel out of the depot. Pickup orders are handed
// to a verified collector and complete immediately; home deliveries go out for
// delivery.
func (s *Service) ProcessDeparture(ctx context.Context, actor fulfillment.Actor, input DepartureInput) (*models.Order, error) {
	order, err := s.repo.FindOrderByTracking(ctx, input.TrackingNumber)
	if err != nil {
		return nil, err
	}

	target := enums.OrderStatusOutForDelivery
	if order.DeliveryMethod == enums.DeliveryMethodPickup {
		target = enums.OrderStatusDelivered
	}

	depotID := uuid.Nil
	if order.DepotID != nil {
		depotID = *order.DepotID
	}
	extra := payloads.OrderDepotDepartedEvent{
		OrderID:    order.ID,
		DepotID:    depotID,
		NextStatus: target,
	}
	return s.engine.ApplyByTracking(ctx, input.TrackingNumber, actor, fulfillment.Transition{
		Target:    target,
		Recipient: input.Recipient,
		ExtraEvents: []outbox.DomainEvent{{
			EventType: enums.EventOrderDepotDeparted,
			Data:      &extra,
		}},
	})
}

// ReportDiscrepancy freezes a parcel in depot_issue with the observed reason.
// There is no automatic recovery; an admin resolves the order from there.
func (s *Service) ReportDiscrepancy(ctx context.Context, actor fulfillment.Actor, trackingNumber, reason string) (*models.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discrepancy reason must not be empty")
	}

	details := reason
	extra := payloads.OrderDiscrepancyEvent{Reason: reason, ReportedBy: actor.AuditIdentity()}
	return s.engine.ApplyByTracking(ctx, trackingNumber, actor, fulfillment.Transition{
		Target:  enums.OrderStatusDepotIssue,
		Details: &details,
		Mutate: func(order *models.Order) ([]string, error) {
			order.Discrepancy = &types.Discrepancy{
				Reason:     reason,
				ReportedBy: actor.UserID,
				ReportedAt: time.Now(),
			}
			extra.OrderID = order.ID
			if order.DepotID != nil {
				extra.DepotID = *order.DepotID
			}
			return []string{"discrepancy"}, nil
		},
		ExtraEvents: []outbox.DomainEvent{{
			EventType: enums.EventOrderDiscrepancy,
			Data:      &extra,
		}},
	})
}

// validateSlot checks the A<aisle>-S<shelf>-L<location> slot id against the
// depot's declared grid. Depots without a declared grid accept any slot id.
func validateSlot(depot *models.Depot, slot string) error {
	if strings.TrimSpace(slot) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "storage slot must not be empty")
	}
	if depot.Aisles == 0 && depot.Shelves == 0 && depot.Locations == 0 {
		return nil
	}

	var aisle, shelf, location int
	n, err := fmt.Sscanf(slot, "A%d-S%d-L%d", &aisle, &shelf, &location)
	if err != nil || n != 3 {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot id must match A<aisle>-S<shelf>-L<location>").
			WithDetails(map[string]any{"slot": slot})
	}
	if aisle < 1 || aisle > depot.Aisles ||
		shelf < 1 || shelf > depot.Shelves ||
		location < 1 || location > depot.Locations {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot is outside the depot grid").
			WithDetails(map[string]any{
				"slot":      slot,
				"aisles":    depot.Aisles,
				"shelves":   depot.Shelves,
				"locations": depot.Locations,
			})
	}
	return nil
}
