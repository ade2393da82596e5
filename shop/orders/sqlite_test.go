package orders

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/surokacs/petertrain-bot/core/database"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "orders.db")}
	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, coredatabase.RunMigrations(db, cfg))
	return NewSQLStore(db)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	empty, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	o := sampleOrder()
	inserted, err := store.Append(ctx, o)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Append(ctx, o)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate id must not insert a second row")

	ok, err := store.Exists(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, o.ID, got[0].ID)
	assert.Equal(t, o.Email, got[0].Email)
	assert.True(t, o.CreatedAt.Equal(got[0].CreatedAt))
}

func TestSQLiteStoreConcurrentAppends(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := sampleOrder()
			o.ID = ID(fmt.Sprintf("%06d", 100000+i))
			o.CreatedAt = time.Now()
			_, err := store.Append(ctx, o)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.ListRecent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, got, 20)

	tail, err := store.ListRecent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, tail, 5)
	assert.Equal(t, got[15:], tail)
}
