package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	BcryptCost = bcrypt.MinCost
}

func newTestKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)

	return key.NewKeyPair(privateKey)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("very-secure")
	assert.Nil(t, err)
	assert.NotEqual(t, "very-secure", hash)

	assert.True(t, CheckPasswordHash("very-secure", hash))
	assert.False(t, CheckPasswordHash("not-the-password", hash))
}

func TestSessionJWT(t *testing.T) {
	keyPair := newTestKeyPair(t)

	claims := NewSessionClaims("tony@stark.com", time.Hour)
	token, err := EncodeJWT(claims, keyPair)
	require.Nil(t, err)

	decoded, err := DecodeJWT(token, keyPair)
	require.Nil(t, err)
	assert.Equal(t, "tony@stark.com", decoded.Email)
	assert.Equal(t, claims.Id, decoded.Id)

	_, err = DecodeJWT(token, newTestKeyPair(t))
	assert.NotNil(t, err, "Should reject a token signed by another key")

	expired, err := EncodeJWT(NewSessionClaims("tony@stark.com", -time.Minute), keyPair)
	require.Nil(t, err)
	_, err = DecodeJWT(expired, keyPair)
	assert.NotNil(t, err, "Should reject an expired token")

	_, err = DecodeJWT("not-a-token", keyPair)
	assert.NotNil(t, err)
}

func TestNewSessionClaimsAreUnique(t *testing.T) {
	first := NewSessionClaims("tony@stark.com", time.Hour)
	second := NewSessionClaims("tony@stark.com", time.Hour)

	assert.NotEmpty(t, first.Id)
	assert.NotEqual(t, first.Id, second.Id)
}

func TestURLSigner(t *testing.T) {
	signer := NewURLSigner("0123456789abcdef", time.Hour)

	signature, err := signer.Sign("/delete_person/1", "session-a")
	require.Nil(t, err)

	cases := []struct {
		description string
		signature   string
		path        string
		sessionID   string
		valid       bool
	}{
		{"Should accept signature for the same path & session", signature, "/delete_person/1", "session-a", true},
		{"Should reject a missing signature", "", "/delete_person/1", "session-a", false},
		{"Should reject a tampered signature", signature + "x", "/delete_person/1", "session-a", false},
		{"Should reject signature for another path", signature, "/delete_person/2", "session-a", false},
		{"Should reject signature from another session", signature, "/delete_person/1", "session-b", false},
		{"Should reject when there is no session", signature, "/delete_person/1", "", false},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			err := signer.Verify(c.signature, c.path, c.sessionID)
			if c.valid {
				assert.Nil(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSignature)
			}
		})
	}

	otherSigner := NewURLSigner("fedcba9876543210", time.Hour)
	assert.ErrorIs(t, otherSigner.Verify(signature, "/delete_person/1", "session-a"), ErrInvalidSignature,
		"Should reject signature made with another secret")
}

func TestURLSignerExpiry(t *testing.T) {
	signer := NewURLSigner("0123456789abcdef", time.Minute)
	signer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	signature, err := signer.Sign("/delete_phone/1/2", "session-a")
	require.Nil(t, err)
	assert.ErrorIs(t, signer.Verify(signature, "/delete_phone/1/2", "session-a"), ErrInvalidSignature)

	neverExpires := NewURLSigner("0123456789abcdef", 0)
	neverExpires.now = signer.now
	signature, err = neverExpires.Sign("/delete_phone/1/2", "session-a")
	require.Nil(t, err)
	assert.Nil(t, neverExpires.Verify(signature, "/delete_phone/1/2", "session-a"))
}

func TestSignURL(t *testing.T) {
	signer := NewURLSigner("0123456789abcdef", 0)

	signedURL, err := signer.SignURL("/edit_person/4", "session-a")
	require.Nil(t, err)
	assert.Contains(t, signedURL, "/edit_person/4?_signature=")

	_, err = signer.SignURL("/edit_person/4", "")
	assert.NotNil(t, err)
}
