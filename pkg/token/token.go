// Package token issues and verifies the bearer tokens that gate access
// to protected routes. Tokens are self-contained HS256 JWTs carrying the
// holder's identity; there is no server-side session store.
package token

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookshelf/pkg/domain"
)

const defaultIssuer = "bookshelf"

var defaultLeeway = 30 * time.Second

// ErrInvalidToken is returned for malformed, forged, or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the identity claims embedded in every issued token.
type Claims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"nome"`
	jwt.RegisteredClaims
}

// Options configures claim validation behavior.
type Options struct {
	Issuer string
	Leeway time.Duration
}

// Service signs and verifies tokens with a server-held secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
}

// NewService builds a token service. The secret must not be empty.
func NewService(secret string, ttl time.Duration, opts Options) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		leeway: leeway,
	}, nil
}

// Issue signs a token embedding the user's identity and an expiry.
func (s *Service) Issue(u domain.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates signature, structure, and expiry, and returns the
// embedded claims. Any failure is reported as ErrInvalidToken.
func (s *Service) Verify(raw string) (Claims, error) {
	claims := Claims{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return claims, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
