// Package auth implements the credential subsystem: argon2id password hashing
// and HS256 bearer tokens. Nothing here performs I/O.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HMAC secret NewTokenIssuer accepts.
const MinSecretLength = 32

var ErrSecretTooShort = fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)

// Claims are the registered claims plus the numeric UserID. Subject carries the
// same id as a string for generic JWT tooling. ExpiresAtNano is the exact expiry
// in Unix nanoseconds; exp is that instant rounded up to the whole second.
type Claims struct {
	jwt.RegisteredClaims
	UserID        int64 `json:"user_id"`
	ExpiresAtNano int64 `json:"exp_ns"`
}

// TokenIssuer signs and verifies bearer tokens with a single shared secret.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
}

func NewTokenIssuer(secret []byte, lifetime time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenIssuer{secret: s, lifetime: lifetime}, nil
}

// Lifetime reports how long issued tokens stay valid.
func (i *TokenIssuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue returns a signed token for userID that expires lifetime after now.
func (i *TokenIssuer) Issue(userID int64, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(expiresAt)),
			ID:        uuid.NewString(),
		},
		UserID:        userID,
		ExpiresAtNano: expiresAt.UnixNano(),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func ceilSecond(t time.Time) time.Time {
	if r := t.Truncate(time.Second); !r.Equal(t) {
		return r.Add(time.Second)
	}
	return t
}

// Verify checks the signature and algorithm first, then expiry against now.
// Any structural or signature failure is ErrInvalidToken; a token is expired
// when now is not strictly before its exact expiry.
func (i *TokenIssuer) Verify(tokenString string, now time.Time) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return 0, common.ErrInvalidToken
	}

	if claims.ExpiresAt == nil || claims.ExpiresAtNano <= 0 || claims.UserID <= 0 {
		return 0, common.ErrInvalidToken
	}
	if claims.Subject != "" && claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return 0, common.ErrInvalidToken
	}

	if !now.Before(time.Unix(0, claims.ExpiresAtNano)) {
		return 0, common.ErrTokenExpired
	}

	return claims.UserID, nil
}
