package services

import (
	"context"
	"errors"
	"testing"

	"meetspot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(fx *fixture) domain.AuthService {
	return NewAuthService(fx.users, fakeHasher{}, &fakeIssuer{}, testTimeout, testTimeout)
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		fx := newFixture()
		user, err := newAuthService(fx).SignUp(ctx, " Ana@Example.COM ", "supersecret", "Ana", "Diaz")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, "salt", user.Salt)
		assert.Equal(t, "hashed:salt:supersecret", user.PasswordHash)
	})

	t.Run("invalid email", func(t *testing.T) {
		fx := newFixture()
		_, err := newAuthService(fx).SignUp(ctx, "not-an-email", "supersecret", "Ana", "")
		require.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("short password", func(t *testing.T) {
		fx := newFixture()
		_, err := newAuthService(fx).SignUp(ctx, "ana@example.com", "short", "Ana", "")
		require.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)
		_, err := svc.SignUp(ctx, "ana@example.com", "supersecret", "Ana", "")
		require.NoError(t, err)
		_, err = svc.SignUp(ctx, "ana@example.com", "othersecret", "Ana", "")
		require.True(t, errors.Is(err, domain.ErrConflict))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	signUp := func(fx *fixture) *domain.User {
		user, err := newAuthService(fx).SignUp(ctx, "ana@example.com", "supersecret", "Ana", "")
		require.NoError(t, err)
		return user
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		fx := newFixture()
		user := signUp(fx)
		token, err := newAuthService(fx).Login(ctx, "Ana@Example.com", "supersecret")
		require.NoError(t, err)
		assert.Equal(t, "token-"+user.ID, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		fx := newFixture()
		signUp(fx)
		_, err := newAuthService(fx).Login(ctx, "ana@example.com", "wrongsecret")
		require.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	})

	// Unknown email and wrong password produce the same error, so callers
	// cannot tell which addresses are registered.
	t.Run("unknown email", func(t *testing.T) {
		fx := newFixture()
		_, err := newAuthService(fx).Login(ctx, "nobody@example.com", "supersecret")
		require.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	})
}
