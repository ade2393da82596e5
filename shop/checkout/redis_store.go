package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/surokacs/petertrain-bot/shop/orders"
)

const (
	redisKeyPrefix     = "petertrain:session:"
	redisPendingPrefix = "petertrain:pending:"
)

// redisKV is the subset of *redis.Client used by RedisStore.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisOptions configures the Redis session backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps sessions as JSON values with a sliding key TTL, so they
// survive bot restarts and expire without a sweeper. Pending orders live
// under their own prefix with DefaultPendingTTL.
type RedisStore struct {
	rdb        redisKV
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewRedisClient builds a go-redis client from opts.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NewRedisStore wraps a connected client.
func NewRedisStore(rdb redisKV, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, pendingTTL: DefaultPendingTTL}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get implements SessionStore.
func (r *RedisStore) Get(ctx context.Context, userID int64) (Session, bool, error) {
	data, err := r.rdb.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A value we cannot decode is treated as an abandoned session.
		return Session{}, false, nil
	}
	return s, true, nil
}

// Put implements SessionStore.
func (r *RedisStore) Put(ctx context.Context, userID int64, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete implements SessionStore.
func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// PutPending implements PendingStore.
func (r *RedisStore) PutPending(ctx context.Context, p PendingOrder) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending order: %w", err)
	}
	if err := r.rdb.Set(ctx, redisPendingPrefix+p.ID.String(), data, r.pendingTTL).Err(); err != nil {
		return fmt.Errorf("redis set pending order: %w", err)
	}
	return nil
}

// Pending implements PendingStore.
func (r *RedisStore) Pending(ctx context.Context, id orders.ID) (PendingOrder, bool, error) {
	data, err := r.rdb.Get(ctx, redisPendingPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingOrder{}, false, nil
	}
	if err != nil {
		return PendingOrder{}, false, fmt.Errorf("redis get pending order: %w", err)
	}
	var p PendingOrder
	if err := json.Unmarshal(data, &p); err != nil {
		return PendingOrder{}, false, fmt.Errorf("decode pending order %s: %w", id, err)
	}
	return p, true, nil
}

// DeletePending implements PendingStore.
func (r *RedisStore) DeletePending(ctx context.Context, id orders.ID) error {
	if err := r.rdb.Del(ctx, redisPendingPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis del pending order: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
