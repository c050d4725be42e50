package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/api/validators"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	internalpayouts "github.com/plazagoods/plaza-backend/internal/payouts"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
)

type disputeResolver interface {
	Resolve(ctx context.Context, admin fulfillment.Actor, orderID uuid.UUID, resolution enums.DisputeResolution) (*models.Order, error)
}

type payoutsService interface {
	ComputeBalance(ctx context.Context, storeID uuid.UUID) (*internalpayouts.Balance, error)
	RecordPayout(ctx context.Context, admin fulfillment.Actor, storeID uuid.UUID, amountCents int64) (*models.Payout, error)
	ListPayouts(ctx context.Context, storeID uuid.UUID) ([]models.Payout, error)
}

type resolveDisputeBody struct {
	Resolution enums.DisputeResolution `json:"resolution" validate:"required"`
}

// AdminResolveDispute settles a refund request with a terminal verdict.
func AdminResolveDispute(svc disputeResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resolveDisputeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Resolve(r.Context(), actor, orderID, body.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type forceTransitionBody struct {
	Target  enums.OrderStatus `json:"target" validate:"required"`
	Details *string           `json:"details,omitempty"`
}

// AdminForceTransition applies any transition regardless of the legality
// table. Every use lands in the audit log under the admin's name.
func AdminForceTransition(engine orderTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body forceTransitionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := engine.Apply(r.Context(), orderID, actor, fulfillment.Transition{
			Target:  body.Target,
			Details: body.Details,
			Force:   true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type recordPayoutBody struct {
	StoreID     uuid.UUID `json:"store_id" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
}

// AdminRecordPayout registers a completed transfer against a store's balance.
func AdminRecordPayout(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordPayoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.RecordPayout(r.Context(), actor, body.StoreID, body.AmountCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// AdminStoreBalance returns the derived balance for any store.
func AdminStoreBalance(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := parseUUIDParam(r, "storeId")
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

// AdminListPayouts lists payouts for the store named in the query string.
func AdminListPayouts(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("store_id")
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required"))
			return
		}
		storeID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store_id"))
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
