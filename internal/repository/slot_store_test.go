package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"h2ala_backend/internal/config"
	"h2ala_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func exerciseSlotStore(t *testing.T, store SlotStore) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing_key")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "h2ala_test", `{"a":1}`))
	v, found, err := store.Get(ctx, "h2ala_test")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"a":1}`, v)

	require.NoError(t, store.Set(ctx, "h2ala_test", `{"a":2}`))
	v, _, err = store.Get(ctx, "h2ala_test")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, v)
}

func TestMemorySlotStore(t *testing.T) {
	exerciseSlotStore(t, NewMemorySlotStore())
}

func TestFileSlotStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSlotStore(filepath.Join(dir, "state"))
	require.NoError(t, err)
	exerciseSlotStore(t, store)

	entries, err := os.ReadDir(filepath.Join(dir, "state"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileSlotStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileSlotStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc", "a/b", ".hidden"} {
		err := store.Set(context.Background(), key, "x")
		assert.ErrorIs(t, err, ErrInvalidSlotKey, key)
	}
}

func TestGormSlotStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.StateSlot{}))

	exerciseSlotStore(t, NewGormSlotStore(db))
}

func TestRedisSlotStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	exerciseSlotStore(t, NewRedisSlotStore(client))
}

func TestMinioSlotStore(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}
	store, err := NewMinioSlotStore(context.Background(), &config.StorageConfig{
		MinioEndpoint: endpoint,
		MinioAccessID: os.Getenv("TEST_MINIO_ACCESS_KEY"),
		MinioSecret:   os.Getenv("TEST_MINIO_SECRET_KEY"),
		MinioBucket:   "h2ala-test",
	})
	require.NoError(t, err)
	exerciseSlotStore(t, store)
}
