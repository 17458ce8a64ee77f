package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
)

func TestMemorySessionRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := &memorySessionRepository{sessions: map[string]domain.Session{}, now: func() time.Time { return now }}

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))
	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	now = now.Add(2 * time.Hour)
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s2", UserID: "u1"}))
	require.NoError(t, repo.Delete(ctx, "s2"))
	_, err = repo.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessionRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRedisSessionRepository(client)

	session := &domain.Session{ID: "s1", UserID: "u1", IssuedAt: time.Now().UTC(), ExpiresAt: time.Now().Add(time.Hour).UTC()}
	require.NoError(t, repo.Create(ctx, session))
	assert.True(t, mr.Exists("session:s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	mr.FastForward(2 * time.Hour)
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s2", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, repo.Delete(ctx, "s2"))
	_, err = repo.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, repo.Create(ctx, &domain.Session{ID: "s3", ExpiresAt: time.Now().Add(-time.Minute)}))
}
