package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	internalorders "github.com/plazagoods/plaza-backend/internal/orders"
	internalpayouts "github.com/plazagoods/plaza-backend/internal/payouts"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/pagination"
)

type sellerOrdersService interface {
	ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*internalorders.OrderPage, error)
}

type orderTransitioner interface {
	Apply(ctx context.Context, orderID uuid.UUID, actor fulfillment.Actor, tr fulfillment.Transition) (*models.Order, error)
}

type sellerFinanceService interface {
	ComputeBalance(ctx context.Context, storeID uuid.UUID) (*internalpayouts.Balance, error)
	ListPayouts(ctx context.Context, storeID uuid.UUID) ([]models.Payout, error)
}

func sellerStoreID(actor fulfillment.Actor) (uuid.UUID, error) {
	if actor.StoreID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context required")
	}
	return *actor.StoreID, nil
}

func storeScopeGuard(storeID uuid.UUID) func(order *models.Order) error {
	return func(order *models.Order) error {
		for _, item := range order.Items {
			if item.VendorStoreID == storeID {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order contains no items sold by this store")
	}
}

// SellerOrders lists orders containing lines sold by the seller's store.
func SellerOrders(svc sellerOrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := sellerStoreID(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForStore(r.Context(), storeID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// SellerMarkReady moves a confirmed order to ready_for_pickup once the parcel
// is packed. Only a seller whose store sold a line in the order may do this.
func SellerMarkReady(engine orderTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := sellerStoreID(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := engine.Apply(r.Context(), orderID, actor, fulfillment.Transition{
			Target: enums.OrderStatusReadyForPickup,
			Guard:  storeScopeGuard(storeID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// SellerBalance returns the store's derived payout balance.
func SellerBalance(svc sellerFinanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := sellerStoreID(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.ComputeBalance(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// SellerPayouts lists payouts recorded against the store, newest first.
func SellerPayouts(svc sellerFinanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := sellerStoreID(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payouts, err := svc.ListPayouts(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payouts)
	}
}
