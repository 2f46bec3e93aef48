package auth

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt"
)

// SignatureParam is the query parameter that carries a URL signature.
const SignatureParam = "_signature"

var ErrInvalidSignature = errors.New("invalid url signature")

type signatureClaims struct {
	Path    string `json:"path"`
	Session string `json:"sid"`
	jwt.StandardClaims
}

// URLSigner binds a URL path to a session so that links which destroy
// state (deletes reachable through GET) cannot be forged or replayed from
// another session.
type URLSigner struct {
	secret   []byte
	lifespan time.Duration
	now      func() time.Time
}

// NewURLSigner returns a signer using an HMAC secret. A zero lifespan means
// signatures never expire.
func NewURLSigner(secret string, lifespan time.Duration) *URLSigner {
	return &URLSigner{secret: []byte(secret), lifespan: lifespan, now: time.Now}
}

func (s *URLSigner) Sign(path, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sign %q: session id required", path)
	}

	now := s.now()
	claims := signatureClaims{
		Path:           path,
		Session:        sessionID,
		StandardClaims: jwt.StandardClaims{IssuedAt: now.Unix()},
	}
	if s.lifespan > 0 {
		claims.ExpiresAt = now.Add(s.lifespan).Unix()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// SignURL returns path with its signature appended as a query parameter.
func (s *URLSigner) SignURL(path, sessionID string) (string, error) {
	signature, err := s.Sign(path, sessionID)
	if err != nil {
		return "", err
	}

	return path + "?" + url.Values{SignatureParam: {signature}}.Encode(), nil
}

// Verify checks that signature was issued for path within sessionID.
func (s *URLSigner) Verify(signature, path, sessionID string) error {
	if signature == "" || sessionID == "" {
		return ErrInvalidSignature
	}

	claims := &signatureClaims{}
	token, err := jwt.ParseWithClaims(signature, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidSignature
	}

	if claims.Path != path || claims.Session != sessionID {
		return ErrInvalidSignature
	}

	return nil
}
