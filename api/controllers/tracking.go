package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/pkg/db/models"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
)

type orderTracker interface {
	TrackByNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
}

// TrackingView is the anonymous projection of an order. Customer identity,
// amounts and the administrative audit log never leave this endpoint.
type TrackingView struct {
	TrackingNumber string               `json:"tracking_number"`
	Status         enums.OrderStatus    `json:"status"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	Timeline       []TrackingViewEvent  `json:"timeline"`
}

type TrackingViewEvent struct {
	Status    enums.OrderStatus `json:"status"`
	Location  *string           `json:"location,omitempty"`
	Details   *string           `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TrackOrder serves the public tracking page for a tracking number.
func TrackOrder(svc orderTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
		if trackingNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required"))
			return
		}

		order, err := svc.TrackByNumber(r.Context(), trackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := TrackingView{
			TrackingNumber: order.TrackingNumber,
			Status:         order.Status,
			DeliveryMethod: order.DeliveryMethod,
			Timeline:       make([]TrackingViewEvent, 0, len(order.TrackingEvents)),
		}
		for _, event := range order.TrackingEvents {
			view.Timeline = append(view.Timeline, TrackingViewEvent{
				Status:    event.Status,
				Location:  event.Location,
				Details:   event.Details,
				CreatedAt: event.CreatedAt,
			})
		}
		responses.WriteSuccess(w, view)
	}
}
