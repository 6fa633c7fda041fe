package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/migrate"
)

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must not hold cart")

	require.NoError(t, repo.Set(ctx, "cart", `{"id":1}`))
	v, ok, err := repo.Get(ctx, "cart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, v)

	require.NoError(t, repo.Set(ctx, "cart", `{"id":2}`))
	v, _, err = repo.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `{"id":2}`, v, "set must overwrite")

	require.NoError(t, repo.Set(ctx, "token", "abc"))
	require.NoError(t, repo.Remove(ctx, "cart"))
	_, ok, err = repo.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = repo.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok, "removing one key must keep the others")
	assert.Equal(t, "abc", v)

	require.NoError(t, repo.Remove(ctx, "never-set"), "removing an absent key is not an error")
	require.NoError(t, repo.Remove(ctx, "token"))
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")
	s, err := OpenSQLite(path, "")
	require.NoError(t, err)
	defer s.Close()

	exercise(t, s)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront.db")

	s1, err := OpenSQLite(path, "shop")
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "token", "persisted"))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path, "shop")
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestSQLite_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront.db")

	a, err := OpenSQLite(path, "a")
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "token", "for-a"))
	require.NoError(t, a.Close())

	b, err := OpenSQLite(path, "b")
	require.NoError(t, err)
	defer b.Close()
	_, ok, err := b.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedis(t *testing.T) {
	client, _ := setupTestRedis(t)
	exercise(t, NewRedis(client, ""))
}

func TestRedis_KeyLayout(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedis(client, "tab-1")

	require.NoError(t, repo.Set(context.Background(), "user", `{"id":5}`))
	got, err := mr.Get("storefront:tab-1:user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":5}`, got)
	assert.Equal(t, time.Duration(0), mr.TTL("storefront:tab-1:user"), "entries must not expire")
}

func TestRedis_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedis(client, "")
	mr.Close()

	_, _, err := repo.Get(context.Background(), "cart")
	assert.Error(t, err)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	_, err = pool.Exec(ctx, `DELETE FROM kv_entries WHERE scope = 'kv-test'`)
	require.NoError(t, err)

	exercise(t, NewPostgres(pool, "kv-test", nil))
}

func TestMongo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	db, err := ConnectMongo(ctx, uri, "storefront_test")
	require.NoError(t, err)
	defer db.Client().Disconnect(ctx)

	require.NoError(t, db.Collection(MongoCollection).Drop(ctx))
	require.NoError(t, EnsureMongoIndexes(ctx, db))

	exercise(t, NewMongo(db, "kv-test"))
}
