package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func requireCaller(r *http.Request) (uuid.UUID, error) {
	userID := middleware.CallerFromContext(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

func requireIdentity(r *http.Request) (checkout.Identity, error) {
	userID, err := requireCaller(r)
	if err != nil {
		return checkout.Identity{}, err
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return checkout.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return checkout.Identity{UserID: userID, SessionID: sessionID}, nil
}
