package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/api/validators"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	internalorders "github.com/plazagoods/plaza-backend/internal/orders"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	"github.com/plazagoods/plaza-backend/pkg/pagination"
	"github.com/plazagoods/plaza-backend/pkg/types"
)

type agentOrdersService interface {
	ListForAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params) (*internalorders.OrderPage, error)
	ListPickupQueue(ctx context.Context, params pagination.Params) (*internalorders.OrderPage, error)
}

type trackingTransitioner interface {
	ApplyByTracking(ctx context.Context, trackingNumber string, actor fulfillment.Actor, tr fulfillment.Transition) (*models.Order, error)
}

// DeliveryQueue lists parcels waiting for courier pickup.
func DeliveryQueue(svc agentOrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPickupQueue(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// DeliveryAssignedOrders lists parcels currently assigned to the courier.
func DeliveryAssignedOrders(svc agentOrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForAgent(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type scanBody struct {
	Location *string `json:"location,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// assignedCourierGuard rejects post-pickup scans from anyone but the courier
// the parcel was assigned to at pickup.
func assignedCourierGuard(agentID uuid.UUID) func(order *models.Order) error {
	return func(order *models.Order) error {
		if order.AgentID == nil || *order.AgentID != agentID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "parcel is assigned to another courier")
		}
		return nil
	}
}

// DeliveryPickup records the courier collecting a parcel from the seller and
// assigns the order to them.
func DeliveryPickup(engine trackingTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, trackingNumber, body, err := scanRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agentID := actor.UserID
		order, err := engine.ApplyByTracking(r.Context(), trackingNumber, actor, fulfillment.Transition{
			Target:   enums.OrderStatusPickedUp,
			Location: body.Location,
			Details:  body.Note,
			Mutate: func(order *models.Order) ([]string, error) {
				order.AgentID = &agentID
				return []string{"agent_id"}, nil
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// DeliveryOutForDelivery records the parcel leaving the depot on the courier's
// final route.
func DeliveryOutForDelivery(engine trackingTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, trackingNumber, body, err := scanRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := engine.ApplyByTracking(r.Context(), trackingNumber, actor, fulfillment.Transition{
			Target:   enums.OrderStatusOutForDelivery,
			Guard:    assignedCourierGuard(actor.UserID),
			Location: body.Location,
			Details:  body.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type deliverBody struct {
	Location           *string `json:"location,omitempty"`
	ProofOfDeliveryURL *string `json:"proof_of_delivery_url,omitempty" validate:"omitempty,url"`
}

// DeliveryDeliver completes a home delivery.
func DeliveryDeliver(engine trackingTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trackingNumber, err := trackingNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body deliverBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := engine.ApplyByTracking(r.Context(), trackingNumber, actor, fulfillment.Transition{
			Target:             enums.OrderStatusDelivered,
			Guard:              assignedCourierGuard(actor.UserID),
			Location:           body.Location,
			ProofOfDeliveryURL: body.ProofOfDeliveryURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type failDeliveryBody struct {
	Reason  enums.DeliveryFailureReason `json:"reason" validate:"required"`
	Details string                      `json:"details,omitempty"`
}

// DeliveryFail records a failed delivery attempt with a structured reason.
func DeliveryFail(engine trackingTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trackingNumber, err := trackingNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body failDeliveryBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := engine.ApplyByTracking(r.Context(), trackingNumber, actor, fulfillment.Transition{
			Target: enums.OrderStatusDeliveryFailed,
			Guard:  assignedCourierGuard(actor.UserID),
			DeliveryFailure: &types.DeliveryFailure{
				Reason:  body.Reason,
				Details: body.Details,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func scanRequest(r *http.Request) (fulfillment.Actor, string, scanBody, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return fulfillment.Actor{}, "", scanBody{}, err
	}
	trackingNumber, err := trackingNumberParam(r)
	if err != nil {
		return fulfillment.Actor{}, "", scanBody{}, err
	}
	var body scanBody
	if r.ContentLength > 0 {
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fulfillment.Actor{}, "", scanBody{}, err
		}
	}
	return actor, trackingNumber, body, nil
}

func trackingNumberParam(r *http.Request) (string, error) {
	trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
	if trackingNumber == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	return trackingNumber, nil
}
