package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	zlog "github.com/rs/zerolog/log"
)

// retryAfterSeconds is advertised on retryable failures so clients back off
// before resubmitting.
const retryAfterSeconds = 2

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto the error envelope. Untyped errors become INTERNAL_ERROR.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		logRejection(ctx, logg, err, meta.HTTPStatus)
	}
	if meta.Retryable && meta.HTTPStatus == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, meta.HTTPStatus, envelopeFor(typed, meta))
}

// envelopeFor decides what the client sees: the error's own message only when
// the code allows it, details only when the code allows them.
func envelopeFor(typed *pkgerrors.Error, meta pkgerrors.Metadata) types.ErrorEnvelope {
	apiErr := types.APIError{
		Code:     string(typed.Code()),
		Message:  meta.PublicMessage,
		Redirect: meta.Redirect,
	}
	if m := typed.Message(); meta.MessagePublic && m != "" {
		apiErr.Message = m
	}
	if d := typed.Details(); meta.DetailsAllowed && d != nil {
		apiErr.Details = d
	}
	return types.ErrorEnvelope{Error: apiErr}
}

func logRejection(ctx context.Context, logg *logger.Logger, err error, status int) {
	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	ctx = logg.WithField(ctx, "status", status)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zlog.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}
