package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crateport/crateport/internal/auth"
	"github.com/crateport/crateport/internal/user"
)

const testBcryptCost = 4 // low cost for fast tests

// --- Mock User Repository ---

type mockUserRepo struct {
	findByTokenPrefixFn func(ctx context.Context, prefix string) ([]user.User, error)
	setAPITokenFn       func(ctx context.Context, id int64, prefix, hash string) error
}

func (m *mockUserRepo) FindByLogin(ctx context.Context, login string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) FindByTokenPrefix(ctx context.Context, prefix string) ([]user.User, error) {
	if m.findByTokenPrefixFn != nil {
		return m.findByTokenPrefixFn(ctx, prefix)
	}
	return nil, nil
}

func (m *mockUserRepo) FindOrInsert(ctx context.Context, nu user.NewUser) (*user.User, error) {
	return &user.User{ID: 1, GhLogin: nu.GhLogin}, nil
}

func (m *mockUserRepo) SetAPIToken(ctx context.Context, id int64, prefix, hash string) error {
	if m.setAPITokenFn != nil {
		return m.setAPITokenFn(ctx, id, prefix, hash)
	}
	return nil
}

// --- GenerateToken Tests ---

func TestGenerateToken_Format(t *testing.T) {
	svc := auth.NewService(&mockUserRepo{}, testBcryptCost)

	rawToken, prefix, hash, err := svc.GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rawToken, "cp_"), "raw token should start with cp_")
	assert.Len(t, prefix, 8, "prefix should be 8 characters")
	assert.Equal(t, rawToken[:8], prefix, "prefix should be first 8 chars of raw token")

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawToken))
	assert.NoError(t, err, "hash should verify against raw token")
}

func TestGenerateToken_Uniqueness(t *testing.T) {
	svc := auth.NewService(&mockUserRepo{}, testBcryptCost)

	token1, _, _, err := svc.GenerateToken()
	require.NoError(t, err)
	token2, _, _, err := svc.GenerateToken()
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2, "generated tokens should be unique")
}

// --- Authenticate Tests ---

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := auth.NewService(nil, testBcryptCost)
	rawToken, prefix, hash, err := svc.GenerateToken()
	require.NoError(t, err)

	repo := &mockUserRepo{
		findByTokenPrefixFn: func(ctx context.Context, p string) ([]user.User, error) {
			assert.Equal(t, prefix, p)
			return []user.User{{ID: 7, GhLogin: "jane", APITokenPrefix: prefix, APITokenHash: hash}}, nil
		},
	}
	svc = auth.NewService(repo, testBcryptCost)

	u, err := svc.Authenticate(context.Background(), rawToken)
	require.NoError(t, err)
	assert.Equal(t, "jane", u.GhLogin)
}

func TestAuthenticate_PicksRightCandidate(t *testing.T) {
	svc := auth.NewService(nil, testBcryptCost)
	rawToken, prefix, hash, err := svc.GenerateToken()
	require.NoError(t, err)

	otherHash, err := bcrypt.GenerateFromPassword([]byte("cp_some-other-token"), testBcryptCost)
	require.NoError(t, err)

	repo := &mockUserRepo{
		findByTokenPrefixFn: func(ctx context.Context, p string) ([]user.User, error) {
			return []user.User{
				{ID: 1, GhLogin: "bob", APITokenPrefix: prefix, APITokenHash: string(otherHash)},
				{ID: 2, GhLogin: "jane", APITokenPrefix: prefix, APITokenHash: hash},
			}, nil
		},
	}
	svc = auth.NewService(repo, testBcryptCost)

	u, err := svc.Authenticate(context.Background(), rawToken)
	require.NoError(t, err)
	assert.Equal(t, "jane", u.GhLogin)
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	svc := auth.NewService(&mockUserRepo{}, testBcryptCost)

	_, err := svc.Authenticate(context.Background(), "cp_definitely-not-registered")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticate_ShortToken(t *testing.T) {
	svc := auth.NewService(&mockUserRepo{}, testBcryptCost)

	_, err := svc.Authenticate(context.Background(), "cp_")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

// --- Reset Tests ---

func TestReset_StoresNewToken(t *testing.T) {
	var storedPrefix, storedHash string
	repo := &mockUserRepo{
		setAPITokenFn: func(ctx context.Context, id int64, prefix, hash string) error {
			assert.Equal(t, int64(7), id)
			storedPrefix, storedHash = prefix, hash
			return nil
		},
	}
	svc := auth.NewService(repo, testBcryptCost)

	rawToken, err := svc.Reset(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, rawToken[:8], storedPrefix)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(rawToken)))
}
