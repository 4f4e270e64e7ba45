package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

// AccessTokenClaims is the typed shape of the JWTs the external identity
// provider mints for marketplace users.
type AccessTokenClaims struct {
	UserID uuid.UUID         `json:"user_id"`
	Role   enums.ProfileRole `json:"role"`
	jwt.RegisteredClaims
}
