package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/internal/inventory"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
	"github.com/plazagoods/plaza-backend/pkg/outbox/payloads"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

type transitionObserver interface {
	RecordTransition(from, to string)
}

// Actor is the authenticated identity attempting a transition. StoreID is set
// for sellers, DepotID for depot agents.
type Actor struct {
	UserID  uuid.UUID
	Role    enums.ActorRole
	Name    string
	StoreID *uuid.UUID
	DepotID *uuid.UUID
}

// AuditIdentity is what lands in status_changes.changed_by. Admin actions are
// always attributable by name, everyone else by id.
func (a Actor) AuditIdentity() string {
	if a.Role == enums.ActorRoleAdmin {
		return "Admin:" + a.Name
	}
	return a.UserID.String()
}

// Transition describes one requested status mutation. Location and Details feed
// the customer-facing tracking timeline. Guard runs against the freshly loaded
// row before any legality check, so standing rules (store scope, courier
// assignment) see current state. TargetFrom resolves the destination from that
// same row when it depends on order state, e.g. restoring previous_status.
// Mutate lets callers fold extra column writes (depot stamps, refund claims)
// into the same guarded update; it returns the column names it touched.
type Transition struct {
	Target             enums.OrderStatus
	TargetFrom         func(order *models.Order) (enums.OrderStatus, error)
	Guard              func(order *models.Order) error
	Location           *string
	Details            *string
	Force              bool
	DeliveryFailure    *types.DeliveryFailure
	ProofOfDeliveryURL *string
	Recipient          *types.RecipientInfo
	Mutate             func(order *models.Order) ([]string, error)
	ExtraEvents        []outbox.DomainEvent
}

// Engine owns every order status mutation. All writes of one transition share a
// transaction: the guarded status update, both audit rows, the outbox event and
// any stock release commit or roll back together.
type Engine struct {
	db       txRunner
	events   eventEmitter
	ledger   stockReleaser
	observer transitionObserver
	logg     *logger.Logger
}

func NewEngine(db txRunner, events eventEmitter, ledger stockReleaser, observer transitionObserver, logg *logger.Logger) *Engine {
	return &Engine{db: db, events: events, ledger: ledger, observer: observer, logg: logg}
}

// Apply moves the order identified by id to tr.Target on behalf of actor.
// Returns the updated order on success.
func (e *Engine) Apply(ctx context.Context, orderID uuid.UUID, actor Actor, tr Transition) (*models.Order, error) {
	return e.apply(ctx, "id = ?", orderID, actor, tr)
}

// ApplyByTracking is Apply keyed by the public tracking number, for actors that
// handle parcels rather than order ids.
func (e *Engine) ApplyByTracking(ctx context.Context, trackingNumber string, actor Actor, tr Transition) (*models.Order, error) {
	return e.apply(ctx, "tracking_number = ?", trackingNumber, actor, tr)
}

func (e *Engine) apply(ctx context.Context, query string, arg any, actor Actor, tr Transition) (*models.Order, error) {
	if tr.TargetFrom == nil && !tr.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").
			WithDetails(map[string]any{"target": string(tr.Target)})
	}
	if tr.Force && actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "forced transitions are admin only")
	}

	var (
		order      models.Order
		fromStatus enums.OrderStatus
	)
	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where(query, arg).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		from := order.Status
		fromStatus = from

		if tr.Guard != nil {
			if err := tr.Guard(&order); err != nil {
				return err
			}
		}
		if tr.TargetFrom != nil {
			target, err := tr.TargetFrom(&order)
			if err != nil {
				return err
			}
			if !target.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").
					WithDetails(map[string]any{"target": string(target)})
			}
			tr.Target = target
		}

		if from == tr.Target {
			return invalidTransition(from, tr.Target, "order is already in the target status")
		}
		if !tr.Force && !CanTransition(actor.Role, from, tr.Target) {
			return invalidTransition(from, tr.Target, "transition not allowed for role").
				WithDetails(map[string]any{
					"from": string(from),
					"to":   string(tr.Target),
					"role": string(actor.Role),
				})
		}
		if err := validateGuards(&order, tr); err != nil {
			return err
		}

		columns := []string{"status", "previous_status", "version"}

		// the order remembers where it was before a dispute so a rejected
		// refund can restore it; leaving refund_requested clears the slot
		if tr.Target == enums.OrderStatusRefundRequested {
			previous := from
			order.PreviousStatus = &previous
		} else if from == enums.OrderStatusRefundRequested {
			order.PreviousStatus = nil
		}

		if tr.DeliveryFailure != nil {
			order.DeliveryFailure = tr.DeliveryFailure
			columns = append(columns, "delivery_failure")
		}
		if tr.ProofOfDeliveryURL != nil {
			order.ProofOfDeliveryURL = tr.ProofOfDeliveryURL
			columns = append(columns, "proof_of_delivery_url")
		}
		if tr.Recipient != nil {
			order.Recipient = tr.Recipient
			columns = append(columns, "recipient")
		}
		if tr.Mutate != nil {
			extra, err := tr.Mutate(&order)
			if err != nil {
				return err
			}
			columns = append(columns, extra...)
		}

		stockReleased := false
		if tr.Target == enums.OrderStatusCanceled && order.StockReleasedAt == nil {
			if err := e.ledger.Release(ctx, tx, releaseRequests(order.Items)); err != nil {
				return err
			}
			now := time.Now()
			order.StockReleasedAt = &now
			columns = append(columns, "stock_released_at")
			stockReleased = true
		}

		expectedVersion := order.Version
		order.Status = tr.Target
		order.Version = expectedVersion + 1

		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, expectedVersion).
			Select(columns).
			Updates(&order)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update order status")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}

		trackingEvent := models.TrackingEvent{
			OrderID:  order.ID,
			Status:   tr.Target,
			Location: tr.Location,
			Details:  tr.Details,
		}
		if err := tx.Create(&trackingEvent).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append tracking event")
		}
		statusChange := models.StatusChange{
			OrderID:   order.ID,
			Status:    tr.Target,
			ChangedBy: actor.AuditIdentity(),
			ActorRole: actor.Role,
		}
		if err := tx.Create(&statusChange).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append status change")
		}

		if err := e.emitEvents(ctx, tx, &order, actor, tr, from, stockReleased); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.observer != nil {
		e.observer.RecordTransition(string(fromStatus), string(order.Status))
	}
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"order_id":        order.ID.String(),
			"tracking_number": order.TrackingNumber,
			"from_status":     fromStatus,
			"to_status":       order.Status,
			"actor_role":      actor.Role,
		})
		e.logg.Info(logCtx, "order transitioned")
	}
	return &order, nil
}

func (e *Engine) emitEvents(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor, tr Transition, from enums.OrderStatus, stockReleased bool) error {
	actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role), Name: actor.Name}

	statusChanged := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			TrackingNumber: order.TrackingNumber,
			FromStatus:     from,
			ToStatus:       order.Status,
			ActorRole:      actor.Role,
		},
	}
	if err := e.events.Emit(ctx, tx, statusChanged); err != nil {
		return err
	}

	if order.Status == enums.OrderStatusCanceled {
		canceled := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef,
			Data: payloads.OrderCanceledEvent{
				OrderID:        order.ID,
				TrackingNumber: order.TrackingNumber,
				CanceledAt:     time.Now(),
				StockReleased:  stockReleased,
			},
		}
		if err := e.events.Emit(ctx, tx, canceled); err != nil {
			return err
		}
	}

	for _, event := range tr.ExtraEvents {
		event.AggregateType = enums.AggregateOrder
		event.AggregateID = order.ID
		if event.Actor == nil {
			event.Actor = actorRef
		}
		if err := e.events.Emit(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

func validateGuards(order *models.Order, tr Transition) error {
	if tr.Target == enums.OrderStatusDeliveryFailed {
		if tr.DeliveryFailure == nil || !tr.DeliveryFailure.Reason.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery failure requires a structured reason").
				WithDetails(map[string]any{
					"allowed_reasons": []enums.DeliveryFailureReason{
						enums.DeliveryFailureClientAbsent,
						enums.DeliveryFailureWrongAddress,
						enums.DeliveryFailurePackageRefused,
					},
				})
		}
	}

	// direct depot handover is exclusive to pickup-point orders and needs a
	// verified collector
	if tr.Target == enums.OrderStatusDelivered && order.Status == enums.OrderStatusAtDepot && !tr.Force {
		if order.DeliveryMethod != enums.DeliveryMethodPickup {
			return invalidTransition(order.Status, tr.Target, "home delivery orders must go out for delivery")
		}
		if tr.Recipient == nil || tr.Recipient.Name == "" || tr.Recipient.IDNumber == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "pickup collection requires recipient name and id number")
		}
	}
	return nil
}

func invalidTransition(from, to enums.OrderStatus, message string) *pkgerrors.Error {
	err := pkgerrors.New(pkgerrors.CodeStateConflict, message)
	if err.Details() == nil {
		err.WithDetails(map[string]any{"from": string(from), "to": string(to)})
	}
	return err
}

func releaseRequests(items []models.OrderItem) []inventory.ReservationRequest {
	requests := make([]inventory.ReservationRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, inventory.ReservationRequest{
			ProductID: item.ProductID,
			Selector:  item.SelectedVariant,
			Qty:       item.Qty,
			Name:      item.Name,
		})
	}
	return requests
}
