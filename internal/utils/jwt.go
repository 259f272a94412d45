package utils // package utils provides helpers for issuing and parsing gateway session tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidSession is returned by ParseSessionToken for any token that is
// malformed, expired, signed with another key or missing a client id.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed gateway session JWT along with its expiry.  The
// subject claim carries the client id; the upstream bearer token is never
// embedded and stays in the token store.
type SessionToken struct {
	Token    string    // the serialized JWT string
	ClientID string    // the client id stored in "sub"
	Exp      time.Time // the UTC expiration time
}

// NewClientID returns a fresh random client id.
func NewClientID() string { return uuid.NewString() }

// NewSessionToken builds and signs an HS256 JWT for clientID that expires
// after ttl.  The claims are sub, exp and iat.
func NewSessionToken(secret, clientID string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}
	return SessionToken{Token: signed, ClientID: clientID, Exp: exp}, nil
}

// ParseSessionToken verifies raw against secret and returns the client id
// from its subject.  Only HS256 is accepted.
func ParseSessionToken(secret, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidSession
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}
