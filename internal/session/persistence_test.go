package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-portal/internal/api"
	"attendance-portal/internal/store"
)

func exercisePersistence(t *testing.T, p Persistence) {
	t.Helper()
	ctx := context.Background()
	id := "persist-" + time.Now().Format("150405.000000")

	_, err := p.Load(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	want := Persisted{Token: "tok", User: api.User{ID: "1", Name: "Ada", Role: api.RoleAdmin}}
	require.NoError(t, p.Save(ctx, id, want))
	got, err := p.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.Token = "tok-2"
	require.NoError(t, p.Save(ctx, id, want))
	got, err = p.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.Token)

	require.NoError(t, p.Clear(ctx, id))
	require.NoError(t, p.Clear(ctx, id))
	_, err = p.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, p.Ping(ctx))
}

func TestMemoryPersistence(t *testing.T) {
	exercisePersistence(t, NewMemoryPersistence())
}

func openSQLite(t *testing.T) *SQLPersistence {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	p := NewSQLPersistence(db, time.Hour)
	require.NoError(t, p.Migrate(context.Background()))
	return p
}

func TestSQLitePersistence(t *testing.T) {
	exercisePersistence(t, openSQLite(t))
}

func TestSQLPersistenceHidesAndPurgesExpired(t *testing.T) {
	ctx := context.Background()
	p := openSQLite(t)
	clock := time.Now()
	p.now = func() time.Time { return clock }

	require.NoError(t, p.Save(ctx, "a", Persisted{Token: "t"}))
	clock = clock.Add(2 * time.Hour)

	_, err := p.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := p.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRebindForPostgres(t *testing.T) {
	p := &SQLPersistence{postgres: true}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", p.rebind("SELECT 1 WHERE a = ? AND b = ?"))
}

func TestPostgresPersistence(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := store.OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()
	p := NewSQLPersistence(db, time.Hour)
	require.NoError(t, p.Migrate(context.Background()))
	exercisePersistence(t, p)
}

func TestRedisPersistence(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r, err := store.OpenRedis(context.Background(), addr)
	require.NoError(t, err)
	defer r.Close()
	exercisePersistence(t, NewRedisPersistence(r.Client, "test:session:", time.Minute))
}
