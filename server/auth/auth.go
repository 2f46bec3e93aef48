package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used by HashPassword.
var BcryptCost = 14

// SessionClaims are carried by the session cookie. The token ID doubles as
// the session id that signed URLs and form keys are bound to.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// NewSessionClaims starts a fresh session for email that expires after maxAge.
func NewSessionClaims(email string, maxAge time.Duration) SessionClaims {
	now := time.Now()
	return SessionClaims{
		Email: email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(maxAge).Unix(),
		},
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func EncodeJWT(claims SessionClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to SessionClaims")
	}

	if tokenClaims.Email == "" || tokenClaims.Id == "" {
		return nil, fmt.Errorf("invalid jwt: missing email or session id")
	}

	return tokenClaims, nil
}
