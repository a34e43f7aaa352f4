package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/selection"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

const (
	msgStagingAbsent  = "No items selected for checkout"
	msgStagingCorrupt = "Invalid checkout data"
	msgBeginFailed    = "Failed to start checkout. Please try again."
)

// Identity is the authenticated caller a handoff is bound to.
type Identity struct {
	UserID    uuid.UUID
	SessionID string
}

func (i Identity) valid() bool {
	return i.UserID != uuid.Nil && strings.TrimSpace(i.SessionID) != ""
}

func requireIdentity(id Identity) error {
	if !id.valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

// Record is the staged selection handed from the cart page to checkout.
type Record struct {
	Token     string          `json:"token"`
	UserID    uuid.UUID       `json:"user_id"`
	SessionID string          `json:"session_id"`
	CreatedAt time.Time       `json:"created_at"`
	Lines     types.CartLines `json:"lines"`
}

// RedirectPath is where the client continues the checkout.
func (r Record) RedirectPath() string {
	return "/checkout/" + r.Token
}

type stagingStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	StagingKey(token string) string
	SessionHandoffKey(sessionID string) string
}

// Handoff stages checkout selections in Redis, one live handoff per session.
type Handoff interface {
	Begin(ctx context.Context, id Identity, lines types.CartLines) (*Record, error)
	Consume(ctx context.Context, id Identity, token string) (*Record, error)
	Clear(ctx context.Context, id Identity, token string) error
	Discard(ctx context.Context, sessionID string) error
}

type handoff struct {
	store   stagingStore
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	now     func() time.Time
}

// NewHandoff builds the Redis-backed handoff.
func NewHandoff(store stagingStore, ttl time.Duration, logg *logger.Logger, m *metrics.CheckoutMetrics) (Handoff, error) {
	if store == nil {
		return nil, fmt.Errorf("staging store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("staging ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &handoff{
		store:   store,
		ttl:     ttl,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

func (h *handoff) Begin(ctx context.Context, id Identity, lines types.CartLines) (*Record, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, selection.NoticeCheckoutEmpty)
	}

	record := &Record{
		Token:     uuid.NewString(),
		UserID:    id.UserID,
		SessionID: id.SessionID,
		CreatedAt: h.now().UTC(),
		Lines:     lines.Clone(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode staging record")
	}

	ctx = h.logg.WithHandoffToken(ctx, record.Token)
	sessionKey := h.store.SessionHandoffKey(id.SessionID)
	previous, err := h.store.Get(ctx, sessionKey)
	if err != nil && !redis.IsNil(err) {
		return nil, h.beginFailed(ctx, err)
	}
	if err := h.store.Set(ctx, h.store.StagingKey(record.Token), payload, h.ttl); err != nil {
		return nil, h.beginFailed(ctx, err)
	}
	if err := h.store.Set(ctx, sessionKey, record.Token, h.ttl); err != nil {
		_ = h.store.Del(ctx, h.store.StagingKey(record.Token))
		return nil, h.beginFailed(ctx, err)
	}
	if previous != "" && previous != record.Token {
		if err := h.store.Del(ctx, h.store.StagingKey(previous)); err != nil {
			h.logg.Warn(h.logg.WithField(ctx, "previous_token", previous), "failed to drop replaced handoff")
		}
		h.metrics.IncHandoff("replaced")
	}

	h.metrics.IncHandoff("begin")
	h.logg.Info(ctx, "checkout handoff staged")
	return record, nil
}

func (h *handoff) beginFailed(ctx context.Context, err error) error {
	h.metrics.IncHandoff("begin_failed")
	h.logg.Error(ctx, "failed to stage checkout handoff", err)
	return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, msgBeginFailed)
}

func (h *handoff) Consume(ctx context.Context, id Identity, token string) (*Record, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, h.absent()
	}
	ctx = h.logg.WithHandoffToken(ctx, token)

	raw, err := h.store.Get(ctx, h.store.StagingKey(token))
	if err != nil {
		if redis.IsNil(err) {
			return nil, h.absent()
		}
		h.logg.Error(ctx, "failed to read checkout handoff", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read staging record")
	}

	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		h.logg.Warn(ctx, "undecodable checkout handoff")
		return nil, h.corrupt(err)
	}
	if record.UserID != id.UserID || record.SessionID != id.SessionID {
		h.logg.Warn(ctx, "checkout handoff bound to another session")
		return nil, h.absent()
	}
	if record.Token != "" && record.Token != token {
		return nil, h.corrupt(fmt.Errorf("token mismatch"))
	}
	if err := validateLines(record.Lines); err != nil {
		h.logg.Warn(ctx, "checkout handoff holds invalid lines")
		return nil, h.corrupt(err)
	}
	record.Token = token

	h.metrics.IncHandoff("consume")
	return &record, nil
}

func validateLines(lines types.CartLines) error {
	if len(lines) == 0 {
		return fmt.Errorf("no lines")
	}
	for i, line := range lines {
		switch {
		case line.ID == uuid.Nil:
			return fmt.Errorf("line %d: missing id", i)
		case line.ProductID == uuid.Nil:
			return fmt.Errorf("line %d: missing product", i)
		case line.Quantity < 1:
			return fmt.Errorf("line %d: quantity %d", i, line.Quantity)
		case line.Product.Price.IsNegative():
			return fmt.Errorf("line %d: negative price", i)
		}
	}
	return nil
}

func (h *handoff) absent() error {
	h.metrics.IncHandoff("absent")
	return pkgerrors.New(pkgerrors.CodeStagingAbsent, msgStagingAbsent)
}

func (h *handoff) corrupt(err error) error {
	h.metrics.IncHandoff("corrupt")
	return pkgerrors.Wrap(pkgerrors.CodeStagingCorrupt, err, msgStagingCorrupt)
}

// Clear removes the record and, when it is still the live one, the session pointer.
func (h *handoff) Clear(ctx context.Context, id Identity, token string) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	keys := []string{h.store.StagingKey(token)}
	sessionKey := h.store.SessionHandoffKey(id.SessionID)
	live, err := h.store.Get(ctx, sessionKey)
	if err != nil && !redis.IsNil(err) {
		return fmt.Errorf("read session handoff: %w", err)
	}
	if live == token {
		keys = append(keys, sessionKey)
	}
	if err := h.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("clear handoff: %w", err)
	}
	h.metrics.IncHandoff("clear")
	return nil
}

func (h *handoff) Discard(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	sessionKey := h.store.SessionHandoffKey(sessionID)
	live, err := h.store.Get(ctx, sessionKey)
	if err != nil {
		if redis.IsNil(err) {
			return nil
		}
		return fmt.Errorf("read session handoff: %w", err)
	}
	if err := h.store.Del(ctx, h.store.StagingKey(live), sessionKey); err != nil {
		return fmt.Errorf("discard handoff: %w", err)
	}
	h.metrics.IncHandoff("discard")
	return nil
}
