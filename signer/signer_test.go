package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"restomap.app/errors"
)

func TestSigner_CoordinatesRoundTrip(t *testing.T) {
	s := New("0123456789abcdef")

	sig := s.SignCoordinates(35.681236, 139.767125, 1700000000)
	assert.True(t, s.VerifyCoordinates(35.681236, 139.767125, 1700000000, sig))
}

func TestSigner_CoordinatesBoundToExactTriple(t *testing.T) {
	s := New("0123456789abcdef")
	sig := s.SignCoordinates(35.681236, 139.767125, 1700000000)

	assert.False(t, s.VerifyCoordinates(35.681237, 139.767125, 1700000000, sig))
	assert.False(t, s.VerifyCoordinates(35.681236, 139.767126, 1700000000, sig))
	assert.False(t, s.VerifyCoordinates(35.681236, 139.767125, 1700000001, sig))
	assert.False(t, s.VerifyCoordinates(35.681236, 139.767125, 1700000000, ""))
}

func TestSigner_DifferentSecretsDisagree(t *testing.T) {
	a := New("0123456789abcdef")
	b := New("fedcba9876543210")

	sig := a.SignCoordinates(35.0, 139.0, 1700000000)
	assert.False(t, b.VerifyCoordinates(35.0, 139.0, 1700000000, sig))
}

func TestSigner_FavoriteTokenRoundTrip(t *testing.T) {
	s := New("0123456789abcdef")

	token := s.IssueFavoriteToken(42, "J001234567")
	historyID, restaurantID, err := s.DecodeFavoriteToken(token)

	require.NoError(t, err)
	assert.Equal(t, uint(42), historyID)
	assert.Equal(t, "J001234567", restaurantID)
}

func TestSigner_FavoriteTokensAreDistinct(t *testing.T) {
	s := New("0123456789abcdef")
	assert.NotEqual(t, s.IssueFavoriteToken(42, "J001234567"), s.IssueFavoriteToken(42, "J001234567"))
}

func TestSigner_DecodeRejectsTampering(t *testing.T) {
	s := New("0123456789abcdef")
	token := s.IssueFavoriteToken(42, "J001234567")

	tampered := token[:len(token)-2] + "xx"
	_, _, err := s.DecodeFavoriteToken(tampered)
	assert.True(t, errors.IsInvalidSignatureError(err))

	_, _, err = s.DecodeFavoriteToken("not-base64!!")
	assert.True(t, errors.IsInvalidSignatureError(err))

	_, _, err = s.DecodeFavoriteToken("")
	assert.True(t, errors.IsInvalidSignatureError(err))
}

func TestSigner_DecodeRejectsForeignSecret(t *testing.T) {
	issuer := New("0123456789abcdef")
	verifier := New("fedcba9876543210")

	token := issuer.IssueFavoriteToken(7, "J009999999")
	_, _, err := verifier.DecodeFavoriteToken(token)
	assert.True(t, errors.IsInvalidSignatureError(err))
}
