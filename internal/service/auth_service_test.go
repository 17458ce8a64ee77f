package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

func newIdentity(t *testing.T, sessions repository.SessionRepository) (*AuthService, *UserService) {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	userService := NewUserService(UserDependencies{UserRepo: users, BcryptCost: 4, SeedSecret: "password"})
	require.NoError(t, userService.Seed(context.Background(), DefaultUsers))

	authService := NewAuthService(AuthDependencies{
		UserRepo:     users,
		SessionRepo:  sessions,
		TokenManager: auth.NewTokenManager("test-secret", time.Hour),
	})
	return authService, userService
}

func TestAuthenticate(t *testing.T) {
	authService, _ := newIdentity(t, repository.NewMemorySessionRepository())
	ctx := context.Background()

	user, err := authService.Authenticate(ctx, "analyst@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "2", user.ID)

	_, err = authService.Authenticate(ctx, "analyst@example.com", "nope")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = authService.Authenticate(ctx, "ghost@example.com", "password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = authService.Authenticate(ctx, "  ", "password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	authService, _ := newIdentity(t, repository.NewMemorySessionRepository())
	ctx := context.Background()

	result, err := authService.Login(ctx, "admin@example.com", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	current, err := authService.CurrentUser(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "3", current.ID)

	require.NoError(t, authService.Logout(ctx, result.Token))
	_, err = authService.CurrentUser(ctx, result.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.NoError(t, authService.Logout(ctx, result.Token))

	_, err = authService.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = authService.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSessionsSurviveInRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	authService, _ := newIdentity(t, repository.NewRedisSessionRepository(client))
	ctx := context.Background()

	result, err := authService.Login(ctx, "requester@example.com", "password")
	require.NoError(t, err)
	user, session, err := authService.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
	assert.Equal(t, "1", session.UserID)

	server.FastForward(2 * time.Hour)
	_, err = authService.CurrentUser(ctx, result.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDeletedUserLosesSession(t *testing.T) {
	authService, userService := newIdentity(t, repository.NewMemorySessionRepository())
	ctx := context.Background()

	admin, err := authService.Authenticate(ctx, "admin@example.com", "password")
	require.NoError(t, err)
	result, err := authService.Login(ctx, "requester@example.com", "password")
	require.NoError(t, err)

	require.NoError(t, userService.Delete(ctx, admin, "1"))
	_, err = authService.CurrentUser(ctx, result.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
