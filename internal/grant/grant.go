// Package grant signs and verifies the short-lived tokens the auth
// endpoint issues to let one socket subscribe to one private channel.
package grant

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims binds a grant to exactly one (socket, channel) pair.
type Claims struct {
	jwt.RegisteredClaims

	SocketID string `json:"socket_id"`
	Channel  string `json:"channel"`
}

var (
	ErrInvalid  = errors.New("grant: invalid token")
	ErrMismatch = errors.New("grant: token not issued for this socket and channel")
)

// DefaultTTL bounds how long a grant stays usable; subscription normally
// follows authorization within a second.
const DefaultTTL = 2 * time.Minute

// Sign issues a grant for socketID on channel.
func Sign(secret, socketID, channel string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SocketID: socketID,
		Channel:  channel,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify checks that auth is a live grant for exactly this socket and
// channel.
func Verify(secret, auth, socketID, channel string) error {
	var claims Claims
	token, err := jwt.ParseWithClaims(auth, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.SocketID != socketID || claims.Channel != channel {
		return ErrMismatch
	}
	return nil
}
