package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/api/validators"
	internaldisputes "github.com/plazagoods/plaza-backend/internal/disputes"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/logger"
)

type disputesService interface {
	RequestRefund(ctx context.Context, actor fulfillment.Actor, input internaldisputes.RefundRequestInput) (*models.Order, error)
	AddMessage(ctx context.Context, actor fulfillment.Actor, orderID uuid.UUID, message string) (*models.DisputeMessage, error)
	ListMessages(ctx context.Context, actor fulfillment.Actor, orderID uuid.UUID) ([]models.DisputeMessage, error)
}

// RequestRefund opens a refund claim on a delivered order.
func RequestRefund(svc disputesService, logg *logger.Logger) http.HandlerFunc {
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

		var input internaldisputes.RefundRequestInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.OrderID = orderID

		order, err := svc.RequestRefund(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type disputeMessageBody struct {
	Message string `json:"message" validate:"required"`
}

// PostDisputeMessage appends a message to an order's dispute thread.
func PostDisputeMessage(svc disputesService, logg *logger.Logger) http.HandlerFunc {
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

		var body disputeMessageBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.AddMessage(r.Context(), actor, orderID, body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ListDisputeMessages returns the dispute thread in chronological order.
func ListDisputeMessages(svc disputesService, logg *logger.Logger) http.HandlerFunc {
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

		messages, err := svc.ListMessages(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages)
	}
}
