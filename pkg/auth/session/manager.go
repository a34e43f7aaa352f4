package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/google/uuid"
)

var errAccessIDRequired = errors.New("access id is required")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager is the registry of live browsing sessions. Each entry maps a token
// jti to the shopper it was issued for.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker is what the auth middleware needs from the registry.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error)
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute; ttl < accessTTL {
		return nil, fmt.Errorf("session ttl (%s) shorter than access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", errAccessIDRequired
	}
	return m.keyer.AccessSessionKey(accessID), nil
}

// Generate opens a session for userID and returns its access ID.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID) (string, error) {
	accessID := NewAccessID()
	if err := m.Register(ctx, accessID, userID); err != nil {
		return "", err
	}
	return accessID, nil
}

func (m *Manager) Register(ctx context.Context, accessID string, userID uuid.UUID) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	if userID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	return m.store.Set(ctx, key, userID.String(), m.ttl)
}

// Owner returns the shopper a live session belongs to. ok is false when the
// session is unknown, expired or revoked.
func (m *Manager) Owner(ctx context.Context, accessID string) (uuid.UUID, bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return uuid.Nil, false, err
	}
	raw, err := m.store.Get(ctx, key)
	if redisclient.IsNil(err) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("session %s holds invalid owner: %w", accessID, err)
	}
	return owner, true, nil
}

// HasSession is true only while accessID is live and was issued to userID.
func (m *Manager) HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error) {
	owner, ok, err := m.Owner(ctx, accessID)
	if err != nil || !ok {
		return false, err
	}
	return owner == userID, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}
