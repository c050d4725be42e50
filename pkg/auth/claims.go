package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Name    string
	Role    enums.ActorRole
	StoreID *uuid.UUID
	DepotID *uuid.UUID
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients. StoreID is set
// for sellers and DepotID for depot agents so handlers can scope queries
// without an extra lookup.
type AccessTokenClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	Name    string          `json:"name,omitempty"`
	Role    enums.ActorRole `json:"role"`
	StoreID *uuid.UUID      `json:"store_id,omitempty"`
	DepotID *uuid.UUID      `json:"depot_id,omitempty"`
	jwt.RegisteredClaims
}
