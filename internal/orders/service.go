package orders

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/internal/inventory"
	"github.com/plazagoods/plaza-backend/pkg/config"
	dbpkg "github.com/plazagoods/plaza-backend/pkg/db"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
	"github.com/plazagoods/plaza-backend/pkg/outbox/payloads"
	"github.com/plazagoods/plaza-backend/pkg/pagination"
)

const placeOrderRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

type transitioner interface {
	Apply(ctx context.Context, orderID uuid.UUID, actor fulfillment.Actor, tr fulfillment.Transition) (*models.Order, error)
}

// Service places orders and serves the read side. Status mutations after
// placement go through the transition engine.
type Service struct {
	repo     Repository
	tx       txRunner
	events   eventEmitter
	ledger   stockReserver
	engine   transitioner
	shipping config.ShippingConfig
	logg     *logger.Logger
}

func NewService(repo Repository, tx txRunner, events eventEmitter, ledger stockReserver, engine transitioner, shipping config.ShippingConfig, logg *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		events:   events,
		ledger:   ledger,
		engine:   engine,
		shipping: shipping,
		logg:     logg,
	}
}

// PlaceOrder snapshots the cart, reserves stock and creates the order in one
// transaction. Any line that cannot be reserved aborts the whole placement.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	var placed *models.Order
	attempt := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := s.buildOrder(ctx, tx, input)
			if err != nil {
				return err
			}
			if err := s.ledger.Reserve(ctx, tx, reservationRequests(input.Lines, order.Items)); err != nil {
				return err
			}
			if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
			}

			// both audit streams open with the confirmed entry
			trackingEvent := models.TrackingEvent{OrderID: order.ID, Status: enums.OrderStatusConfirmed}
			if err := tx.Create(&trackingEvent).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append tracking event")
			}
			statusChange := models.StatusChange{
				OrderID:   order.ID,
				Status:    enums.OrderStatusConfirmed,
				ChangedBy: input.CustomerID.String(),
				ActorRole: enums.ActorRoleCustomer,
			}
			if err := tx.Create(&statusChange).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append status change")
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPlaced,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.ActorRoleCustomer)},
				Data: payloads.OrderPlacedEvent{
					OrderID:        order.ID,
					TrackingNumber: order.TrackingNumber,
					CustomerID:     order.CustomerID,
					DeliveryMethod: order.DeliveryMethod,
					ItemCount:      len(order.Items),
					TotalCents:     int64(order.TotalCents),
				},
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
			placed = order
			return nil
		})
	}

	var err error
	for i := 0; i < placeOrderRetries; i++ {
		err = attempt()
		if err == nil {
			break
		}
		// tracking numbers carry a random suffix; regenerate and retry on the
		// rare collision
		if !dbpkg.IsUniqueViolation(err, "tracking_number") {
			return nil, err
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate tracking number")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":        placed.ID.String(),
			"tracking_number": placed.TrackingNumber,
			"total_cents":     placed.TotalCents,
		})
		s.logg.Info(logCtx, "order placed")
	}
	return placed, nil
}

// Cancel voids a pre-pickup order on the customer's behalf and returns its
// reserved stock.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, actor fulfillment.Actor) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.ActorRoleCustomer && order.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return s.engine.Apply(ctx, orderID, actor, fulfillment.Transition{Target: enums.OrderStatusCanceled})
}

// GetForCustomer loads an order including its tracking timeline, scoped to the
// owning customer.
func (s *Service) GetForCustomer(ctx context.Context, customerID uuid.UUID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// TrackByNumber is the public tracking lookup.
func (s *Service) TrackByNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	return s.repo.FindByTrackingNumber(ctx, trackingNumber)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	return s.repo.ListByCustomer(ctx, customerID, params)
}

func (s *Service) ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	return s.repo.ListByStore(ctx, storeID, params)
}

func (s *Service) ListForAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	return s.repo.ListByAgent(ctx, agentID, params)
}

// ListPickupQueue serves delivery agents the orders waiting for carrier pickup.
func (s *Service) ListPickupQueue(ctx context.Context, params pagination.Params) (*OrderPage, error) {
	return s.repo.ListByStatus(ctx, enums.OrderStatusReadyForPickup, params)
}

// buildOrder resolves catalog rows and assembles the order snapshot without
// persisting anything.
func (s *Service) buildOrder(ctx context.Context, tx *gorm.DB, input PlaceOrderInput) (*models.Order, error) {
	productIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		productIDs = append(productIDs, line.ProductID)
	}

	var products []models.Product
	if err := tx.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	productByID := make(map[uuid.UUID]models.Product, len(products))
	storeIDs := make([]uuid.UUID, 0, len(products))
	for _, product := range products {
		productByID[product.ID] = product
		storeIDs = append(storeIDs, product.StoreID)
	}

	var stores []models.Store
	if err := tx.WithContext(ctx).Where("id IN ?", storeIDs).Find(&stores).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stores")
	}
	storeByID := make(map[uuid.UUID]models.Store, len(stores))
	for _, store := range stores {
		storeByID[store.ID] = store
	}

	if input.DeliveryMethod == enums.DeliveryMethodPickup {
		var point models.PickupPoint
		if err := tx.WithContext(ctx).First(&point, "id = ?", input.PickupPointID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pickup point not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pickup point")
		}
	}

	now := time.Now()
	order := &models.Order{
		ID:               uuid.New(),
		TrackingNumber:   newTrackingNumber(now),
		CustomerID:       input.CustomerID,
		Status:           enums.OrderStatusConfirmed,
		Version:          1,
		DeliveryMethod:   input.DeliveryMethod,
		PickupPointID:    input.PickupPointID,
		AppliedPromoCode: input.PromoCode,
	}

	subtotal := 0
	surcharge := 0
	for _, line := range input.Lines {
		product, ok := productByID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		store, ok := storeByID[product.StoreID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "product has no store").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}

		lineTotal := product.PriceCents * line.Qty
		lineSurcharge := s.shipping.SurchargePerKiloCents * product.WeightGrams * line.Qty / 1000
		subtotal += lineTotal
		surcharge += lineSurcharge

		order.Items = append(order.Items, models.OrderItem{
			OrderID:                order.ID,
			ProductID:              product.ID,
			Name:                   product.Name,
			VendorName:             store.Name,
			VendorStoreID:          store.ID,
			UnitPriceCents:         product.PriceCents,
			Qty:                    line.Qty,
			SelectedVariant:        line.Selector,
			WeightGrams:            product.WeightGrams,
			ShippingSurchargeCents: lineSurcharge,
			TotalCents:             lineTotal,
		})
	}

	deliveryFee := surcharge
	if input.DeliveryMethod == enums.DeliveryMethodHomeDelivery {
		deliveryFee += s.shipping.HomeDeliveryFeeCents
	}
	order.SubtotalCents = subtotal
	order.DeliveryFeeCents = deliveryFee
	order.TotalCents = subtotal + deliveryFee
	return order, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if !input.DeliveryMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method")
	}
	if input.DeliveryMethod == enums.DeliveryMethodPickup && input.PickupPointID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup orders require a pickup point")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	for _, line := range input.Lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
	}
	return nil
}

func reservationRequests(lines []PlaceOrderLine, items []models.OrderItem) []inventory.ReservationRequest {
	requests := make([]inventory.ReservationRequest, 0, len(lines))
	for i, line := range lines {
		name := ""
		if i < len(items) {
			name = items[i].Name
		}
		requests = append(requests, inventory.ReservationRequest{
			ProductID: line.ProductID,
			Selector:  line.Selector,
			Qty:       line.Qty,
			Name:      name,
		})
	}
	return requests
}

// newTrackingNumber builds the public parcel identifier: a date bucket plus a
// random six digit suffix. Uniqueness is enforced by the database; placement
// retries on collision.
func newTrackingNumber(now time.Time) string {
	raw := uuid.New()
	suffix := binary.BigEndian.Uint32(raw[:4]) % 1000000
	return fmt.Sprintf("PLZ-%s-%06d", now.Format("20060102"), suffix)
}
