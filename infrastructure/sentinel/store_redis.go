package sentinel

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	domainsentinel "github.com/fieldteam/orchestrator/domain/sentinel"
)

// RedisConfig configures the Redis-backed sentinel store.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// DefaultRedisConfig returns sensible connection defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:   "localhost:6379",
		KeyPrefix: "orchestrator:sentinel:",
	}
}

// RedisStore is a Redis-backed domain/sentinel.Store, letting a sleeping
// sentinel step survive a process restart — the scenario the in-memory
// store cannot cover.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore dials Redis per cfg and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(errConnectionFailed, err)
	}

	return &RedisStore{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

var errConnectionFailed = errors.New("sentinel: redis connection failed")

func (r *RedisStore) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

// Save persists sentinel state for a session as JSON.
func (r *RedisStore) Save(ctx context.Context, sessionID string, s domainsentinel.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(sessionID), data, 0).Err()
}

// Get retrieves sentinel state for a session.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (domainsentinel.State, bool, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainsentinel.State{}, false, nil
		}
		return domainsentinel.State{}, false, err
	}

	var s domainsentinel.State
	if err := json.Unmarshal(data, &s); err != nil {
		return domainsentinel.State{}, false, err
	}
	return s, true, nil
}

// Delete removes sentinel state for a session.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ domainsentinel.Store = (*RedisStore)(nil)
