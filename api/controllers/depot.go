package controllers

import (
	"context"
	"net/http"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/api/validators"
	internaldepot "github.com/plazagoods/plaza-backend/internal/depot"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/logger"
)

type depotService interface {
	CheckIn(ctx context.Context, actor fulfillment.Actor, input internaldepot.CheckInInput) (*models.Order, error)
	ProcessDeparture(ctx context.Context, actor fulfillment.Actor, input internaldepot.DepartureInput) (*models.Order, error)
	ReportDiscrepancy(ctx context.Context, actor fulfillment.Actor, trackingNumber, reason string) (*models.Order, error)
}

// DepotCheckIn registers a parcel arriving at a depot and stamps its storage
// slot.
func DepotCheckIn(svc depotService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input internaldepot.CheckInInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CheckIn(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// DepotDeparture moves a parcel out of the depot, onto a courier for home
// delivery or into a collector's hands for pickup orders.
func DepotDeparture(svc depotService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input internaldepot.DepartureInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ProcessDeparture(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type discrepancyBody struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
	Reason         string `json:"reason" validate:"required"`
}

// DepotDiscrepancy freezes a parcel pending admin review.
func DepotDiscrepancy(svc depotService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body discrepancyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ReportDiscrepancy(r.Context(), actor, body.TrackingNumber, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
