// Package utils provides token signing, hashing and slug helpers.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vowsuite/vowsuite-api/internal/model"
)

// ErrInvalidToken is returned when a token fails signature or claim
// validation, regardless of the underlying parser error.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the payload of a short-lived access token. It carries
// everything resource endpoints need to authorise a request without a
// database round trip.
type AccessClaims struct {
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	BusinessID *uint64 `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. TokenID is
// the id of the refresh_tokens record tracking this grant server-side.
type RefreshClaims struct {
	TokenID string `json:"tid"`
	jwt.RegisteredClaims
}

// AccessToken bundles a signed access token with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken bundles a signed refresh token with its expiry and the
// record id embedded in its claims.
type RefreshToken struct {
	Raw     string
	TokenID string
	Exp     time.Time
}

// NewAccessToken signs an HS256 access token for the given user.
func NewAccessToken(secret string, u model.User, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := AccessClaims{
		Email:      u.Email,
		Role:       u.Role,
		BusinessID: u.BusinessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken signs an HS256 refresh token binding the user to the
// given refresh-token record id.
func NewRefreshToken(secret string, userID uint64, tokenID string, ttlDays int) (RefreshToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := RefreshClaims{
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, TokenID: tokenID, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and returns the claims.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parseInto(secret, raw, claims); err != nil {
		return nil, err
	}
	if !model.ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and expiry and returns the claims.
func ParseRefreshToken(secret, raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parseInto(secret, raw, claims); err != nil {
		return nil, err
	}
	if claims.TokenID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseInto(secret, raw string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}

// SubjectID extracts the numeric user id from a token subject claim.
func SubjectID(sub string) (uint64, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// HashRefreshRaw returns the SHA-256 hash of the signed refresh token as a
// hex string. Only this digest is stored, so database contents alone are
// not enough to redeem a session.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
