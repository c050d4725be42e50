package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/pkg/config"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/outbox"
	"github.com/plazagoods/plaza-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Balance is the derived financial position of one store. Revenue counts only
// delivered orders at their snapshot prices, so later catalog edits and open
// disputes never move settled numbers.
type Balance struct {
	StoreID               uuid.UUID `json:"store_id"`
	RevenueCents          int64     `json:"revenue_cents"`
	CommissionCents       int64     `json:"commission_cents"`
	PaidOutCents          int64     `json:"paid_out_cents"`
	BalanceCents          int64     `json:"balance_cents"`
	CommissionRatePercent string    `json:"commission_rate_percent"`
}

// Service derives seller balances on demand and records settlements. There is
// no materialized ledger table; every read recomputes from order snapshots.
type Service struct {
	db     *gorm.DB
	tx     txRunner
	events eventEmitter
	rate   decimal.Decimal
	logg   *logger.Logger
}

func NewService(db *gorm.DB, tx txRunner, events eventEmitter, cfg config.PayoutConfig, logg *logger.Logger) (*Service, error) {
	rate, err := decimal.NewFromString(cfg.CommissionRatePercent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission rate")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	}
	return &Service{db: db, tx: tx, events: events, rate: rate, logg: logg}, nil
}

// ComputeBalance derives the store's current position:
// revenue - commission - payouts already made.
func (s *Service) ComputeBalance(ctx context.Context, storeID uuid.UUID) (*Balance, error) {
	var revenue int64
	err := s.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("COALESCE(SUM(order_items.unit_price_cents * order_items.qty), 0)").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Where("order_items.vendor_store_id = ?", storeID).
		Scan(&revenue).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum revenue")
	}

	var paidOut int64
	err = s.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("store_id = ?", storeID).
		Scan(&paidOut).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum payouts")
	}

	// commission rounds half-up to whole cents
	commission := decimal.NewFromInt(revenue).
		Mul(s.rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return &Balance{
		StoreID:               storeID,
		RevenueCents:          revenue,
		CommissionCents:       commission,
		PaidOutCents:          paidOut,
		BalanceCents:          revenue - commission - paidOut,
		CommissionRatePercent: s.rate.String(),
	}, nil
}

// RecordPayout settles part of a store's balance. The amount may not exceed
// the currently derived balance.
func (s *Service) RecordPayout(ctx context.Context, admin fulfillment.Actor, storeID uuid.UUID, amountCents int64) (*models.Payout, error) {
	if admin.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins record payouts")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}

	if err := s.ensureStoreExists(ctx, storeID); err != nil {
		return nil, err
	}
	balance, err := s.ComputeBalance(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if amountCents > balance.BalanceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout exceeds available balance").
			WithDetails(map[string]any{
				"requested_cents": amountCents,
				"balance_cents":   balance.BalanceCents,
			})
	}

	payout := models.Payout{
		ID:          uuid.New(),
		StoreID:     storeID,
		AmountCents: int(amountCents),
		PaidAt:      time.Now(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&payout).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payout")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRecorded,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: admin.UserID, Role: string(admin.Role), Name: admin.Name},
			Data: payloads.PayoutRecordedEvent{
				PayoutID:    payout.ID,
				StoreID:     storeID,
				AmountCents: amountCents,
				RecordedAt:  payout.PaidAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payout_id":    payout.ID.String(),
			"store_id":     storeID.String(),
			"amount_cents": amountCents,
		})
		s.logg.Info(logCtx, "payout recorded")
	}
	return &payout, nil
}

// ListPayouts returns a store's settlement history, newest first.
func (s *Service) ListPayouts(ctx context.Context, storeID uuid.UUID) ([]models.Payout, error) {
	var payouts []models.Payout
	err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("paid_at DESC").
		Find(&payouts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payouts")
	}
	return payouts, nil
}

func (s *Service) ensureStoreExists(ctx context.Context, storeID uuid.UUID) error {
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	return nil
}
