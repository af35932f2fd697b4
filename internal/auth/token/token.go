// Package token signs access tokens and generates random secrets.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessType is the "type" claim the auth middleware accepts.
const AccessType = "access"

// GenerateRandomToken returns size random bytes, base64url encoded.
func GenerateRandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignAccess issues an HS256 access token carrying the caller's roles and office.
func SignAccess(secret string, userID uuid.UUID, roles []string, officeID *uuid.UUID, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  AccessType,
		"roles": roles,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	if officeID != nil {
		claims["office_id"] = officeID.String()
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(secret))
}
