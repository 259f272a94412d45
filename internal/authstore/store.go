// Package authstore persists the upstream bearer token of each gateway
// client.  The token is written once on login, read once when the client's
// state is first built, and removed on logout.
package authstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load when no token is stored for a client.
var ErrNotFound = errors.New("auth token not found")

// Store is a key-value store of bearer tokens keyed by client id.
type Store interface {
	Save(ctx context.Context, clientID, token string, ttl time.Duration) error
	Load(ctx context.Context, clientID string) (string, error)
	Delete(ctx context.Context, clientID string) error
}

// RedisStore keeps tokens under "{prefix}:{clientID}" with a TTL matching
// the gateway session lifetime.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a store on rdb.  An empty prefix uses "auth:token".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "auth:token"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(clientID string) string { return s.prefix + ":" + clientID }

// Save stores token for clientID.  A zero ttl keeps it until Delete.
func (s *RedisStore) Save(ctx context.Context, clientID, token string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(clientID), token, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Load returns the token of clientID or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, clientID string) (string, error) {
	tok, err := s.rdb.Get(ctx, s.key(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return tok, nil
}

// Delete removes the token of clientID.  Deleting a missing token is not an
// error.
func (s *RedisStore) Delete(ctx context.Context, clientID string) error {
	if err := s.rdb.Del(ctx, s.key(clientID)).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// MemoryStore is the fallback used when Redis is unavailable.  Tokens do
// not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]memToken
}

type memToken struct {
	token string
	exp   time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, tokens: make(map[string]memToken)}
}

// Save stores token for clientID.
func (s *MemoryStore) Save(_ context.Context, clientID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := memToken{token: token}
	if ttl > 0 {
		t.exp = s.now().Add(ttl)
	}
	s.tokens[clientID] = t
	return nil
}

// Load returns the token of clientID or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, clientID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[clientID]
	if !ok {
		return "", ErrNotFound
	}
	if !t.exp.IsZero() && !s.now().Before(t.exp) {
		delete(s.tokens, clientID)
		return "", ErrNotFound
	}
	return t.token, nil
}

// Delete removes the token of clientID.
func (s *MemoryStore) Delete(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, clientID)
	return nil
}
