//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("portfolio_test"),
		tcpostgres.WithUsername("portfolio"),
		tcpostgres.WithPassword("portfolio_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestStoreUsersAndSessions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, models.User{
		Username:     "alice",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		Permissions:  models.PermissionsFor(models.RoleUser),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PermissionsFor(models.RoleUser), created.Permissions)

	_, err = store.CreateUser(ctx, models.User{Username: "alice", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	now := time.Now().UTC().Truncate(time.Microsecond)
	first := models.Session{Username: "alice", Token: "tok-1", Role: models.RoleUser, Permissions: created.Permissions, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.UpsertSession(ctx, first))

	second := first
	second.Token = "tok-2"
	require.NoError(t, store.UpsertSession(ctx, second))

	_, err = store.FindSessionByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.FindSessionByToken(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.ExpiresAt.Equal(second.ExpiresAt))

	require.NoError(t, store.DeleteSessionByUsername(ctx, "alice"))
	assert.ErrorIs(t, store.DeleteSessionByToken(ctx, "tok-2"), storage.ErrNotFound)

	require.NoError(t, store.DeleteUser(ctx, "alice"))
	assert.ErrorIs(t, store.DeleteUser(ctx, "alice"), storage.ErrNotFound)
}

func TestStoreProfilesAndVisits(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, models.Profile{ID: "gh", Title: "GitHub", URL: "https://github.com", Image: "gh.png", Color: models.DefaultProfileColor})
	require.NoError(t, err)
	_, err = store.CreateProfile(ctx, models.Profile{ID: "gh", Title: "dup", URL: "u", Image: "i", Color: "c"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = store.UpdateProfile(ctx, models.Profile{ID: "missing"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.IncrementDaily(ctx, day, 1, 1))
	require.NoError(t, store.IncrementDaily(ctx, day, 1, 0))
	daily, err := store.DailyVisitsSince(ctx, day.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(2), daily[0].Visitors)
	assert.Equal(t, int64(1), daily[0].UniqueVisitors)

	require.NoError(t, store.CreateVisitor(ctx, models.Visitor{VisitorID: "v1", FirstVisit: day, LastVisit: day, Visits: 3}))
	unique, total, err := store.VisitorTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unique)
	assert.Equal(t, int64(3), total)
}
