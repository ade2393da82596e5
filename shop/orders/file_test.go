package orders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "data", "orders.json"))
	got, err := s.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	ok, err := s.Exists(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreAppendIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "orders.json")
	s := NewFileStore(path)
	ctx := context.Background()

	inserted, err := s.Append(ctx, sampleOrder())
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.Append(ctx, sampleOrder())
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sampleOrder(), got[0])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"order_id": "482193"`)
}

func TestFileStoreConcurrentAppendsLoseNothing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := sampleOrder()
			o.ID = ID(fmt.Sprintf("%06d", 200000+i))
			_, err := s.Append(ctx, o)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.ListRecent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, got, 25)
}

func TestFileStoreListRecentTail(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		o := sampleOrder()
		o.ID = ID(fmt.Sprint(i))
		_, err := s.Append(ctx, o)
		require.NoError(t, err)
	}
	got, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, ID("2"), got[0].ID)
	assert.Equal(t, ID("11"), got[9].ID)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewFileStore(path).ListRecent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStorage)
}
