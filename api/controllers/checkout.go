package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/selection"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type handoffResponse struct {
	Token     string          `json:"token"`
	Redirect  string          `json:"redirect"`
	Lines     types.CartLines `json:"lines"`
	Count     int             `json:"count"`
	Total     string          `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func newHandoffResponse(record *checkout.Record) handoffResponse {
	return handoffResponse{
		Token:     record.Token,
		Redirect:  record.RedirectPath(),
		Lines:     record.Lines,
		Count:     record.Lines.Count(),
		Total:     record.Lines.Total().StringFixed(2),
		CreatedAt: record.CreatedAt,
	}
}

type confirmationResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	Handle           string    `json:"handle"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NoticeDurationMS int64     `json:"notice_duration_ms"`
	Redirect         string    `json:"redirect"`
	RedirectAfterMS  int64     `json:"redirect_after_ms"`
}

// CheckoutBegin stages the selected cart lines and returns the handoff token.
func CheckoutBegin(cartSvc cart.Service, handoff checkout.Handoff, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req selectionRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := cartSvc.Load(r.Context(), id.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := selectionFrom(view.Lines, req).Require()
		if err != nil {
			if errors.Is(err, selection.ErrEmptySelection) {
				err = pkgerrors.New(pkgerrors.CodeValidation, selection.NoticeCheckoutEmpty)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := handoff.Begin(r.Context(), id, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newHandoffResponse(record))
	}
}

// CheckoutConsume returns the staged lines for a handoff token.
func CheckoutConsume(handoff checkout.Handoff, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := handoff.Consume(r.Context(), id, strings.TrimSpace(chi.URLParam(r, "token")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newHandoffResponse(record))
	}
}

// CheckoutPlace runs order placement for a handoff token.
func CheckoutPlace(seq checkout.Sequencer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var draft checkout.Draft
		if err := validators.DecodeJSON(w, r, &draft); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conf, err := seq.Place(r.Context(), id, strings.TrimSpace(chi.URLParam(r, "token")), draft)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, confirmationResponse{
			OrderID:          conf.OrderID,
			Handle:           conf.Handle,
			Title:            conf.Title,
			Message:          conf.Message,
			NoticeDurationMS: conf.NoticeDuration.Milliseconds(),
			Redirect:         conf.RedirectTo,
			RedirectAfterMS:  conf.RedirectAfter.Milliseconds(),
		})
	}
}
