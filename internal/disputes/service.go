package disputes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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
	Apply(ctx context.Context, orderID uuid.UUID, actor fulfillment.Actor, tr fulfillment.Transition) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RefundRequestInput opens a dispute on a delivered order.
type RefundRequestInput struct {
	OrderID      uuid.UUID `json:"-"`
	Reason       string    `json:"reason" validate:"required"`
	EvidenceURLs []string  `json:"evidence_urls,omitempty" validate:"omitempty,dive,url"`
}

// Service handles the dispute lifecycle: opening a refund claim, the message
// thread between the parties and the admin verdict.
type Service struct {
	db     *gorm.DB
	tx     txRunner
	engine transitioner
	events eventEmitter
	logg   *logger.Logger
}

func NewService(db *gorm.DB, tx txRunner, engine transitioner, events eventEmitter, logg *logger.Logger) *Service {
	return &Service{db: db, tx: tx, engine: engine, events: events, logg: logg}
}

// RequestRefund moves a delivered order into refund_requested and stores the
// customer's claim. Only the owning customer may open a dispute.
func (s *Service) RequestRefund(ctx context.Context, actor fulfillment.Actor, input RefundRequestInput) (*models.Order, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason must not be empty")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}

	extra := payloads.OrderRefundRequestedEvent{
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		Reason:         input.Reason,
	}
	return s.engine.Apply(ctx, input.OrderID, actor, fulfillment.Transition{
		Target:  enums.OrderStatusRefundRequested,
		Details: &input.Reason,
		Mutate: func(o *models.Order) ([]string, error) {
			o.RefundRequest = &types.RefundRequest{
				Reason:       input.Reason,
				EvidenceURLs: input.EvidenceURLs,
				RequestedAt:  time.Now(),
			}
			return []string{"refund_request"}, nil
		},
		ExtraEvents: []outbox.DomainEvent{{
			EventType: enums.EventOrderRefundRequested,
			Data:      &extra,
		}},
	})
}

// AddMessage appends to the dispute thread. Authorization is computed per call:
// the order's customer, a seller with items in the order, or an admin.
func (s *Service) AddMessage(ctx context.Context, actor fulfillment.Actor, orderID uuid.UUID, message string) (*models.DisputeMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message must not be empty")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(order, actor); err != nil {
		return nil, err
	}

	entry := models.DisputeMessage{
		OrderID:    orderID,
		AuthorRole: actor.Role,
		AuthorID:   actor.UserID,
		Message:    message,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append dispute message")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDisputeMessage,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role), Name: actor.Name},
			Data: payloads.OrderDisputeMessageEvent{
				OrderID:    orderID,
				AuthorRole: actor.Role,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListMessages returns the dispute thread in chronological order, guarded by
// the same participant rule as posting.
func (s *Service) ListMessages(ctx context.Context, actor fulfillment.Actor, orderID uuid.UUID) ([]models.DisputeMessage, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(order, actor); err != nil {
		return nil, err
	}

	var messages []models.DisputeMessage
	err = s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list dispute messages")
	}
	return messages, nil
}

// Resolve closes a refund_requested dispute. A refunded verdict is terminal; a
// rejected one restores the status the order held before the dispute.
func (s *Service) Resolve(ctx context.Context, admin fulfillment.Actor, orderID uuid.UUID, resolution enums.DisputeResolution) (*models.Order, error) {
	if admin.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins resolve disputes")
	}
	if !resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown resolution").
			WithDetails(map[string]any{"resolution": string(resolution)})
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusRefundRequested {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no open refund request").
			WithDetails(map[string]any{"status": string(order.Status)})
	}

	extra := payloads.OrderRefundResolvedEvent{
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		Resolution:     resolution,
		ResultStatus:   enums.OrderStatusRefunded,
	}
	tr := fulfillment.Transition{
		Target: enums.OrderStatusRefunded,
		ExtraEvents: []outbox.DomainEvent{{
			EventType: enums.EventOrderRefundResolved,
			Data:      &extra,
		}},
	}
	if resolution == enums.DisputeResolutionRejected {
		// the restore target is read from the row the engine locks, not from
		// the load above, so a transition racing this resolution cannot force
		// a stale status back onto the order
		tr.Force = true
		tr.TargetFrom = func(o *models.Order) (enums.OrderStatus, error) {
			if o.Status != enums.OrderStatusRefundRequested {
				return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order has no open refund request").
					WithDetails(map[string]any{"status": string(o.Status)})
			}
			if o.PreviousStatus == nil {
				return "", pkgerrors.New(pkgerrors.CodeInternal, "disputed order lost its previous status")
			}
			extra.ResultStatus = *o.PreviousStatus
			return *o.PreviousStatus, nil
		}
	}
	return s.engine.Apply(ctx, orderID, admin, tr)
}

func (s *Service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return &order, nil
}

func authorizeParticipant(order *models.Order, actor fulfillment.Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleSeller:
		if actor.StoreID == nil {
			break
		}
		for _, item := range order.Items {
			if item.VendorStoreID == *actor.StoreID {
				return nil
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this dispute")
}
