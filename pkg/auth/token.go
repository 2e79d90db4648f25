package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperr "github.com/relaydrop/relaydrop-backend/pkg/errors"

	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

const issuer = "relaydrop"

// MintAccessToken signs an HS256 access token for the given principal.
func MintAccessToken(secret []byte, actorID uuid.UUID, role enums.ActorRole, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		ActorID: actorID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "sign access token")
	}
	return signed, nil
}

// ParseAccessToken validates signature, expiry and claim shape. Every failure
// maps to UNAUTHORIZED; callers do not get to distinguish why a token was bad.
func ParseAccessToken(secret []byte, raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.CodeUnauthorized, "unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthorized, err, "invalid access token")
	}
	if !token.Valid {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid access token")
	}
	if claims.ActorID == uuid.Nil || !claims.Role.IsValid() {
		return nil, apperr.New(apperr.CodeUnauthorized, "malformed token claims")
	}
	return claims, nil
}
