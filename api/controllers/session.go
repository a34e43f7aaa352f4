package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string) error
}

type handoffDiscarder interface {
	Discard(ctx context.Context, sessionID string) error
}

// AuthLogout revokes the caller's session and drops any checkout it had staged.
func AuthLogout(sessions sessionRevoker, handoff handoffDiscarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeInternal, "session manager unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := sessions.Revoke(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "revoke session"))
			return
		}

		if handoff != nil {
			if err := handoff.Discard(r.Context(), sessionID); err != nil {
				logg.Error(r.Context(), "failed to discard checkout handoff on logout", err)
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
