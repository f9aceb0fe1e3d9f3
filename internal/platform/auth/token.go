package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/authz"
)

// Claims is the payload of an issued access token. The identity fields ride
// in the token so the UI can render the session without a follow-up call;
// authorization always re-derives the actor from these claims.
type Claims struct {
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	GivenName  string     `json:"given_name"`
	FamilyName string     `json:"family_name"`
	FacilityID *uuid.UUID `json:"facility_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Identity is what the login flow knows about the account being issued a token.
type Identity struct {
	ID         uuid.UUID
	Email      string
	Role       authz.Role
	GivenName  string
	FamilyName string
	FacilityID *uuid.UUID
}

// Issue signs a token for the identity, valid for the configured TTL.
func (t *TokenIssuer) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:      id.Email,
		Role:       string(id.Role),
		GivenName:  id.GivenName,
		FamilyName: id.FamilyName,
		FacilityID: id.FacilityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, pinning the signing method to HS256.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Actor builds the authorization principal from verified claims.
func (c *Claims) Actor() (authz.Actor, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("parse subject: %w", err)
	}
	role, err := authz.ParseRole(c.Role)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{
		ID:         id,
		Email:      c.Email,
		Role:       role,
		FacilityID: c.FacilityID,
	}, nil
}
