package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerGenerateAndRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	accessID, err := manager.Generate(ctx, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	key := store.AccessSessionKey(accessID)
	if stored := store.data[key]; stored != userID.String() {
		t.Fatalf("expected stored user %q, got %q", userID, stored)
	}
	if store.ttls[key] != time.Hour {
		t.Fatalf("expected ttl 1h, got %s", store.ttls[key])
	}

	ok, err := manager.HasSession(ctx, accessID, userID)
	if err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, accessID, userID)
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
}

func TestManagerRegisterValidatesInput(t *testing.T) {
	manager := newTestManager(newMockStore())
	ctx := context.Background()

	if err := manager.Register(ctx, " ", uuid.New()); err == nil {
		t.Fatal("expected error for blank access id")
	}
	if err := manager.Register(ctx, "abc", uuid.Nil); err == nil {
		t.Fatal("expected error for nil user id")
	}
	if _, err := manager.HasSession(ctx, "", uuid.New()); err == nil {
		t.Fatal("expected error for blank access id lookup")
	}
}

func TestManagerHasSessionChecksOwner(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	owner := uuid.New()

	accessID, err := manager.Generate(ctx, owner)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, ok, err := manager.Owner(ctx, accessID)
	if err != nil || !ok || got != owner {
		t.Fatalf("expected owner %s, got %s ok=%v err=%v", owner, got, ok, err)
	}
	ok, err = manager.HasSession(ctx, accessID, uuid.New())
	if err != nil || ok {
		t.Fatalf("session must not authenticate another user, ok=%v err=%v", ok, err)
	}

	store.data[store.AccessSessionKey("garbled")] = "not-a-uuid"
	if _, _, err := manager.Owner(ctx, "garbled"); err == nil {
		t.Fatal("expected error for unparseable owner")
	}
}

func TestNewManagerRequiresClient(t *testing.T) {
	cfg := config.JWTConfig{ExpirationMinutes: 30, SessionTTLMinutes: 60}
	if _, err := NewManager(nil, cfg); err == nil {
		t.Fatal("expected error for nil client")
	}
}
