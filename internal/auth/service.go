package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/crateport/crateport/internal/user"
)

// ErrInvalidToken is returned when the provided API token does not match
// any user.
var ErrInvalidToken = errors.New("invalid or revoked API token")

// Service issues and verifies the registry's API tokens. Tokens are
// random, carry a fixed prefix for cheap candidate lookup, and only the
// bcrypt hash is stored.
type Service struct {
	users      user.Repository
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(users user.Repository, bcryptCost int) *Service {
	return &Service{users: users, bcryptCost: bcryptCost}
}

// GenerateToken creates a new API token. Returns the raw token, its
// prefix (first 8 chars), and the bcrypt hash. The raw token is:
// 32 random bytes -> base64url -> prepend "cp_".
func (s *Service) GenerateToken() (rawToken, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawToken = "cp_" + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawToken[:8]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawToken), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing token: %w", err)
	}
	return rawToken, prefix, string(hashBytes), nil
}

// Authenticate resolves a raw API token to the owning user. It extracts
// the prefix, looks up candidates, and bcrypt-compares each one.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*user.User, error) {
	if len(rawToken) < 8 {
		return nil, ErrInvalidToken
	}

	candidates, err := s.users.FindByTokenPrefix(ctx, rawToken[:8])
	if err != nil {
		return nil, fmt.Errorf("finding users by token prefix: %w", err)
	}

	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].APITokenHash), []byte(rawToken)) == nil {
			return &candidates[i], nil
		}
	}
	return nil, ErrInvalidToken
}

// Reset issues a fresh token for the user and stores its prefix and
// hash, invalidating the previous token.
func (s *Service) Reset(ctx context.Context, userID int64) (string, error) {
	rawToken, prefix, hash, err := s.GenerateToken()
	if err != nil {
		return "", err
	}
	if err := s.users.SetAPIToken(ctx, userID, prefix, hash); err != nil {
		return "", fmt.Errorf("storing reset token: %w", err)
	}
	return rawToken, nil
}
