package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"account-service/internal/domain"
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// token, expiry, unknown role. Callers get no finer distinction.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims binds a session to a subject and the role it held at issue time.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Service issues and verifies signed session tokens. The secret is set once
// at startup and never mutated, so concurrent use needs no synchronization.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a signed token for the given subject. The role is embedded in
// the token and stays fixed for the token's lifetime, even if the stored role
// changes later.
func (s *Service) Issue(userID string, role domain.Role) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: string(role),
	})
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the subject and role the
// token was issued with. Any failure returns ErrInvalidToken.
func (s *Service) Verify(tokenString string) (string, domain.Role, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.IsValid() {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, role, nil
}
