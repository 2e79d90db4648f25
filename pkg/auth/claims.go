package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

// AccessTokenClaims is the payload carried by every API access token.
// ActorID identifies a store or a driver depending on Role.
type AccessTokenClaims struct {
	ActorID uuid.UUID       `json:"actor_id"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
