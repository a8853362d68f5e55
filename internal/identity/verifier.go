// Package identity validates bearer tokens issued by the external identity
// provider. Sign-up, login, and session management live outside this service;
// only verification of the shared-secret HMAC tokens happens here.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
)

// Config holds verifier configuration.
type Config struct {
	SecretKey string
	Issuer    string // optional; enforced when non-empty
}

// Verifier validates HS256 JWTs and extracts the user ID from the subject.
type Verifier struct {
	config Config
}

// NewVerifier creates a token verifier.
func NewVerifier(config Config) (*Verifier, error) {
	if config.SecretKey == "" {
		return nil, errors.New("identity verifier: secret key is required")
	}
	return &Verifier{config: config}, nil
}

// VerifyToken validates the token signature and standard claims and returns
// the user ID carried in the subject claim.
func (v *Verifier) VerifyToken(_ context.Context, tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(_ *jwt.Token) (interface{}, error) {
		return []byte(v.config.SecretKey), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrNoSubject
	}

	return subject, nil
}
