package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT for a
// remote-direct session.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Email   string
	Role    enums.Role
	StoreID *uuid.UUID
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID  `json:"user_id"`
	Email   string     `json:"email"`
	Role    enums.Role `json:"role"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}
