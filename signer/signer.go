// Package signer binds coordinates and favorite tokens to the server secret.
// Tokens and signatures are opaque to clients; all trust is anchored here.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"restomap.app/errors"
)

// Signer signs and verifies midpoint coordinates and favorite tokens
type Signer struct {
	secret []byte
}

// New creates a signer from the configured secret
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func coordinatePayload(lat, lng float64, expiresAt int64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "|" +
		strconv.FormatFloat(lng, 'f', 6, 64) + "|" +
		strconv.FormatInt(expiresAt, 10)
}

// SignCoordinates produces the signature for an exact (lat, lng, expiresAt) triple
func (s *Signer) SignCoordinates(lat, lng float64, expiresAt int64) string {
	return s.mac(coordinatePayload(lat, lng, expiresAt))
}

// VerifyCoordinates checks a signature against the exact triple it was issued
// for. Comparison is constant time.
func (s *Signer) VerifyCoordinates(lat, lng float64, expiresAt int64, signature string) bool {
	expected := s.mac(coordinatePayload(lat, lng, expiresAt))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// IssueFavoriteToken binds one restaurant identifier to one search history.
// The nonce makes every issued token distinct even for identical bindings.
func (s *Signer) IssueFavoriteToken(searchHistoryID uint, restaurantID string) string {
	payload := fmt.Sprintf("%d|%s|%s", searchHistoryID, restaurantID, uuid.New().String())
	signed := payload + "|" + s.mac(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(signed))
}

// DecodeFavoriteToken resolves an opaque token back to its binding, rejecting
// anything not signed by this server.
func (s *Signer) DecodeFavoriteToken(token string) (uint, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", errors.NewInvalidSignatureError("malformed favorite token")
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 {
		return 0, "", errors.NewInvalidSignatureError("malformed favorite token")
	}

	payload := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(s.mac(payload)), []byte(parts[3])) {
		return 0, "", errors.NewInvalidSignatureError("favorite token signature mismatch")
	}

	historyID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, "", errors.NewInvalidSignatureError("malformed favorite token")
	}

	return uint(historyID), parts[1], nil
}
