package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surokacs/petertrain-bot/shop/catalog"
)

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	now := fixedNow
	m := NewMemoryStore(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, 1, Session{State: StateAwaitingEmail, Category: intPtr(0)}))
	require.NoError(t, m.Put(ctx, 2, Session{State: StateAwaitingCategory}))

	now = now.Add(30 * time.Second)
	s, ok, err := m.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingEmail, s.State)

	now = now.Add(31 * time.Second)
	_, ok, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Len())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	m := NewMemoryStore(0)
	ctx := context.Background()
	p := &catalog.Product{Name: "Ticket", Price: 50000}
	require.NoError(t, m.Put(ctx, 1, Session{State: StateAwaitingEmail, Product: p}))
	p.Price = 1

	s, _, err := m.Get(ctx, 1)
	require.NoError(t, err)
	s.Product.Name = "changed"

	again, _, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.Product{Name: "Ticket", Price: 50000}, *again.Product)
}

func TestMachineTreatsExpiredSessionAsIdle(t *testing.T) {
	now := fixedNow
	f := newFixture(t, ticketCatalog())
	f.sessions.ttl = time.Minute
	f.sessions.now = func() time.Time { return now }
	f.walkToConfirm(t)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, NewSession(), f.session(t))
	_, err := f.m.ConfirmEmail(context.Background(), user)
	assert.ErrorIs(t, err, ErrState)
}

func TestMemoryStoreRunStopsOnCancel(t *testing.T) {
	m := NewMemoryStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

// fakeRedis keeps values in a map and records the TTL of the last SET.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	lastTTL time.Duration
	err     error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.lastTTL = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, f.err)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, 15*time.Minute)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	in := Session{
		State:     StateAwaitingPayment,
		Category:  intPtr(1),
		Product:   &catalog.Product{Name: "VIP", Description: "Front row", Price: 150000},
		Email:     "x@y.com",
		OrderID:   "482193",
		UpdatedAt: fixedNow,
	}
	require.NoError(t, store.Put(ctx, 42, in))
	assert.Equal(t, 15*time.Minute, rdb.lastTTL)
	assert.Contains(t, rdb.data, "petertrain:session:42")

	out, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, store.Delete(ctx, 42))
	_, ok, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStoreErrors(t *testing.T) {
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, 0)
	ctx := context.Background()

	rdb.data[redisKey(5)] = "{not json"
	_, ok, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	rdb.err = redis.ErrClosed
	_, _, err = store.Get(ctx, 5)
	assert.ErrorIs(t, err, redis.ErrClosed)
	assert.Error(t, store.Put(ctx, 5, NewSession()))
	assert.Error(t, store.Ping(ctx))
}

func TestIDGenerators(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := string(NumericIDs{}.NewID())
		require.Len(t, id, 6)
		assert.GreaterOrEqual(t, id, "100000")
		assert.LessOrEqual(t, id, "999999")
	}

	gen, err := NewIDGenerator("UUID")
	require.NoError(t, err)
	_, err = uuid.Parse(string(gen.NewID()))
	assert.NoError(t, err)

	gen, err = NewIDGenerator("")
	require.NoError(t, err)
	assert.IsType(t, NumericIDs{}, gen)

	_, err = NewIDGenerator("sequential")
	assert.Error(t, err)
}

func TestTransitionTable(t *testing.T) {
	for _, s := range allStates {
		to, ok := Next(s, EventStart)
		assert.True(t, ok, s)
		assert.Equal(t, StateAwaitingCategory, to)

		_, ok = Next(s, EventCancel)
		assert.Equal(t, s != StateIdle, ok, s)
	}
	assert.True(t, StateAwaitingEmail.WantsText())
	assert.True(t, StateConfirmingEmail.WantsText())
	assert.False(t, StateAwaitingPayment.WantsText())
	assert.False(t, StateIdle.Accepts(EventPaymentCompleted))
	assert.False(t, StateAwaitingPayment.Accepts(EventConfirmEmail))
}
