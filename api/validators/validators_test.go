package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"nope"}`))
	var dest addRequest
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	require.Error(t, err)
	perr := pkgerrors.As(err)
	require.NotNil(t, perr)
	assert.Equal(t, pkgerrors.CodeValidation, perr.Code())
	assert.Equal(t, map[string]string{"product_id": "must be a valid id"}, perr.Details())
}

func TestDecodeJSONRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"extra":1}`))
	var dest addRequest
	assert.True(t, pkgerrors.IsCode(DecodeJSON(httptest.NewRecorder(), req, &dest), pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err := DecodeJSON(httptest.NewRecorder(), req, &dest)
	require.Error(t, err)
	assert.Equal(t, "request body required", pkgerrors.As(err).Message())
}

func TestDecodeJSONSkipsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":""}`))
	var dest addRequest
	assert.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dest))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=abc", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, "abc", params.Cursor)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParsePagination(req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	params, err = ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 20, params.Limit)
}

func TestParseQueryBool(t *testing.T) {
	assert.True(t, ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unread=true", nil), "unread"))
	assert.True(t, ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unread=1", nil), "unread"))
	assert.False(t, ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unread=yes", nil), "unread"))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("lineId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "lineId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(req, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
