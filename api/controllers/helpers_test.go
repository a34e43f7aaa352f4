package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type caller struct {
	userID    uuid.UUID
	sessionID string
}

func newCaller() caller {
	return caller{userID: uuid.New(), sessionID: uuid.NewString()}
}

// newRequest builds an authenticated request with chi URL params.
func newRequest(c *caller, method, target string, body any, params map[string]string) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if c != nil {
		ctx = middleware.WithUserID(ctx, c.userID.String())
		ctx = middleware.WithSessionID(ctx, c.sessionID)
	}
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func testLines(prices ...string) types.CartLines {
	lines := make(types.CartLines, 0, len(prices))
	for _, p := range prices {
		productID := uuid.New()
		lines = append(lines, types.CartLine{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  1,
			Product:   types.ProductSnapshot{ID: productID, Name: "Item " + p, Price: decimal.RequireFromString(p)},
		})
	}
	return lines
}
