package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/api/middleware"
	"github.com/plazagoods/plaza-backend/api/validators"
	"github.com/plazagoods/plaza-backend/internal/fulfillment"
	"github.com/plazagoods/plaza-backend/pkg/enums"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/pagination"
)

// actorFromRequest rebuilds the fulfillment actor from the claims the auth
// middleware seeded into the context.
func actorFromRequest(r *http.Request) (fulfillment.Actor, error) {
	ctx := r.Context()

	rawUserID := middleware.UserIDFromContext(ctx)
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return fulfillment.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	role := enums.ActorRole(middleware.RoleFromContext(ctx))
	if !role.IsValid() {
		return fulfillment.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	actor := fulfillment.Actor{
		UserID: userID,
		Role:   role,
		Name:   middleware.NameFromContext(ctx),
	}
	if raw := middleware.StoreIDFromContext(ctx); raw != "" {
		if storeID, parseErr := uuid.Parse(raw); parseErr == nil {
			actor.StoreID = &storeID
		}
	}
	if raw := middleware.DepotIDFromContext(ctx); raw != "" {
		if depotID, parseErr := uuid.Parse(raw); parseErr == nil {
			actor.DepotID = &depotID
		}
	}
	return actor, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
