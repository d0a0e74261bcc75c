package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultIssuer = "rxwizard"
	MinKeyLength  = 32
)

var ErrInvalidToken = errors.New("auth: invalid session token")

// SessionClaims binds a bearer token to exactly one draft.
type SessionClaims struct {
	jwt.RegisteredClaims
	DraftID string `json:"draft_id"`
}

// Issuer signs and verifies draft session tokens with HS256.
type Issuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewIssuer(key []byte, ttl time.Duration) (*Issuer, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("auth: signing key must be at least %d bytes, got %d", MinKeyLength, len(key))
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{key: key, ttl: ttl, issuer: DefaultIssuer, now: time.Now}, nil
}

// Issue returns a signed token for draftID and its expiry.
func (i *Issuer) Issue(draftID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   draftID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		DraftID: draftID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, exp, nil
}

func (i *Issuer) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.DraftID == "" {
		return nil, fmt.Errorf("%w: missing draft_id", ErrInvalidToken)
	}
	return claims, nil
}
