package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainsession "github.com/fieldteam/orchestrator/domain/session"
)

var errNotFound = errors.New("session: not found")

// RedisConfig configures the Redis-backed session store.
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
		KeyPrefix: "orchestrator:session:",
	}
}

// RedisStore is a Redis-backed domain/session.Store, letting a session
// outlive a process restart. List/Count load the full index set and
// filter in process — sufficient for an operator-scale deployment, not a
// multi-tenant query engine.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	indexKey  string
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

	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		indexKey:  cfg.KeyPrefix + "index",
	}, nil
}

var errConnectionFailed = errors.New("session: redis connection failed")

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

// Save persists a new session and adds it to the ID index.
func (r *RedisStore) Save(ctx context.Context, s *domainsession.State) error {
	if err := r.write(ctx, s); err != nil {
		return err
	}
	return r.client.SAdd(ctx, r.indexKey, s.ID).Err()
}

// Get retrieves a session by ID.
func (r *RedisStore) Get(ctx context.Context, id string) (*domainsession.State, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errNotFound
		}
		return nil, err
	}

	var s domainsession.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update updates an existing session.
func (r *RedisStore) Update(ctx context.Context, s *domainsession.State) error {
	exists, err := r.client.Exists(ctx, r.key(s.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return errNotFound
	}
	return r.write(ctx, s)
}

func (r *RedisStore) write(ctx context.Context, s *domainsession.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(s.ID), data, 0).Err()
}

// Delete removes a session by ID and its index entry.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.SRem(ctx, r.indexKey, id).Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key(id)).Err()
}

// List returns sessions matching the filter, ordered by StartTime.
func (r *RedisStore) List(ctx context.Context, filter domainsession.ListFilter) ([]*domainsession.State, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*domainsession.State, 0, len(all))
	for _, s := range all {
		if matches(s, filter) {
			matched = append(matched, s)
		}
	}
	sortByStartTime(matched)
	return paginate(matched, filter), nil
}

// Count returns the number of sessions matching the filter.
func (r *RedisStore) Count(ctx context.Context, filter domainsession.ListFilter) (int64, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, s := range all {
		if matches(s, filter) {
			n++
		}
	}
	return n, nil
}

func (r *RedisStore) loadAll(ctx context.Context) ([]*domainsession.State, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*domainsession.State, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, errNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("session: loading %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ domainsession.Store = (*RedisStore)(nil)
