package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct {
	revoked []string
}

func (*stubSessionManager) HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error) {
	return true, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubCartService struct {
	adds int
}

func (s *stubCartService) Load(ctx context.Context, userID uuid.UUID) (*cart.View, error) {
	return &cart.View{Lines: types.CartLines{}}, nil
}

func (s *stubCartService) Add(ctx context.Context, userID, productID uuid.UUID) (*cart.View, error) {
	s.adds++
	return &cart.View{Lines: types.CartLines{}}, nil
}

func (s *stubCartService) Remove(ctx context.Context, userID, lineID uuid.UUID) (*cart.View, error) {
	return &cart.View{}, nil
}

func (s *stubCartService) RemoveMany(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) (*cart.View, error) {
	return &cart.View{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*cart.View, error) {
	return &cart.View{}, nil
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) (*cart.View, error) {
	return &cart.View{}, nil
}

func (s *stubCartService) Prune(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error {
	return nil
}

type stubHandoff struct{}

func (stubHandoff) Begin(ctx context.Context, id checkout.Identity, lines types.CartLines) (*checkout.Record, error) {
	return &checkout.Record{Token: "tok", Lines: lines}, nil
}

func (stubHandoff) Consume(ctx context.Context, id checkout.Identity, token string) (*checkout.Record, error) {
	return &checkout.Record{Token: token}, nil
}

func (stubHandoff) Clear(ctx context.Context, id checkout.Identity, token string) error {
	return nil
}

func (stubHandoff) Discard(ctx context.Context, sessionID string) error {
	return nil
}

type stubSequencer struct{}

func (stubSequencer) Place(ctx context.Context, id checkout.Identity, token string, draft checkout.Draft) (*checkout.Confirmation, error) {
	return &checkout.Confirmation{OrderID: uuid.New(), RedirectTo: "/shop"}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderSummary{}}, nil
}

func (stubOrdersService) Detail(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{ID: orderID}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Notify(ctx context.Context, userID uuid.UUID, notice notifications.Notice) {}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type memIdempotencyStore struct {
	data map[string]string
}

func (m *memIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memIdempotencyStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront-test", ExpirationMinutes: 60},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

type testRouter struct {
	handler  http.Handler
	cart     *stubCartService
	sessions *stubSessionManager
}

func newTestRouter(cfg *config.Config) *testRouter {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg).IncHandoff("begin")
	tr := &testRouter{cart: &stubCartService{}, sessions: &stubSessionManager{}}
	tr.handler = NewRouter(cfg, logg, Dependencies{
		DB:            stubPinger{},
		Redis:         stubPinger{},
		Idempotency:   &memIdempotencyStore{data: map[string]string{}},
		Sessions:      tr.sessions,
		Cart:          tr.cart,
		Handoff:       stubHandoff{},
		Sequencer:     stubSequencer{},
		Orders:        stubOrdersService{},
		Notifications: stubNotificationsService{},
		Gatherer:      reg,
	})
	return tr
}

func bearer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "checkout_handoff_events_total") {
		t.Fatalf("expected checkout metrics in exposition")
	}
}

func TestAPIGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, target := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/checkout/tok", "/api/v1/notifications"} {
		resp := httptest.NewRecorder()
		router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token got %d", target, resp.Code)
		}
	}
}

func TestAPIGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	for _, target := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/checkout/tok", "/api/v1/notifications", "/api/v1/orders/" + uuid.NewString()} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", bearer(t, cfg))
		resp := httptest.NewRecorder()
		router.handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d: %s", target, resp.Code, resp.Body.String())
		}
	}
}

func TestCartAddRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := fmt.Sprintf(`{"product_id":%q}`, uuid.NewString())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
	if router.cart.adds != 0 {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestCartAddReplaysWithSameKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	auth := bearer(t, cfg)
	body := fmt.Sprintf(`{"product_id":%q}`, uuid.NewString())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req.Header.Set("Authorization", auth)
		req.Header.Set("Idempotency-Key", "add-1")
		resp := httptest.NewRecorder()
		router.handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
	}
	if router.cart.adds != 1 {
		t.Fatalf("expected one add, got %d", router.cart.adds)
	}
}

func TestPlaceOrderDoesNotNeedIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/tok/orders", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", bearer(t, cfg))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(router.sessions.revoked) != 1 {
		t.Fatalf("expected session revoked")
	}
}
