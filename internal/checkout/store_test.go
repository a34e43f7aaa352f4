package checkout

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// memStore is an in-memory stand-in for the Redis client.
type memStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
	getErr error
	delErr error
	// failSetKey makes Set fail only for that key.
	failSetKey string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func stringify(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (m *memStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil && (m.failSetKey == "" || m.failSetKey == key) {
		return m.setErr
	}
	m.values[key] = stringify(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = stringify(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	for _, k := range keys {
		delete(m.values, k)
		delete(m.ttls, k)
	}
	return nil
}

func (m *memStore) DelIfValue(ctx context.Context, key string, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return false, m.delErr
	}
	if v, ok := m.values[key]; !ok || v != value {
		return false, nil
	}
	delete(m.values, key)
	delete(m.ttls, key)
	return true, nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

func (m *memStore) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *memStore) StagingKey(token string) string { return "sf:checkout:staging:" + token }
func (m *memStore) SessionHandoffKey(sessionID string) string { return "sf:checkout:session:" + sessionID }
func (m *memStore) SubmitLockKey(token string) string { return "sf:checkout:submit:" + token }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}
