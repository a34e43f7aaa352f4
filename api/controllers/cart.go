package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/selection"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type selectionRequest struct {
	LineIDs   []string `json:"line_ids" validate:"omitempty,dive,uuid"`
	SelectAll bool     `json:"select_all"`
}

type cartLineResponse struct {
	types.CartLine
	LineTotal string `json:"line_total"`
	Selected  bool   `json:"selected"`
}

type cartResponse struct {
	Lines         []cartLineResponse `json:"lines"`
	Count         int                `json:"count"`
	Total         string             `json:"total"`
	SelectedIDs   []uuid.UUID        `json:"selected_ids"`
	SelectedTotal string             `json:"selected_total"`
	AllSelected   bool               `json:"all_selected"`
}

func newCartResponse(view *cart.View, sel *selection.Set) cartResponse {
	if sel == nil {
		sel = selection.New(view.Lines)
	}
	lines := make([]cartLineResponse, 0, len(view.Lines))
	for _, line := range view.Lines {
		lines = append(lines, cartLineResponse{
			CartLine:  line,
			LineTotal: line.LineTotal().StringFixed(2),
			Selected:  sel.IsSelected(line.ID),
		})
	}
	ids := sel.IDs()
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return cartResponse{
		Lines:         lines,
		Count:         view.Count,
		Total:         view.Total.StringFixed(2),
		SelectedIDs:   ids,
		SelectedTotal: sel.SelectedTotal().StringFixed(2),
		AllSelected:   sel.AllSelected(),
	}
}

// selectionFrom applies a request's selection to the current cart lines.
func selectionFrom(lines types.CartLines, req selectionRequest) *selection.Set {
	if req.SelectAll {
		return selection.New(lines)
	}
	ids := make([]uuid.UUID, 0, len(req.LineIDs))
	for _, raw := range req.LineIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return selection.Apply(lines, ids)
}

// CartLoad returns the cart with every line selected.
func CartLoad(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view, nil))
	}
}

// CartAddItem adds one unit of a product, merging into an existing line.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addItemRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Add(r.Context(), userID, uuid.MustParse(req.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(view, nil))
	}
}

// CartUpdateQuantity sets a line's quantity. Values below 1 leave the cart unchanged.
func CartUpdateQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateQuantity(r.Context(), userID, lineID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view, nil))
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Remove(r.Context(), userID, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view, nil))
	}
}

// CartBulkDelete removes the selected lines.
func CartBulkDelete(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req selectionRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := svc.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sel := selectionFrom(current.Lines, req)
		if sel.IsEmpty() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, selection.NoticeDeleteEmpty))
			return
		}
		view, err := svc.RemoveMany(r.Context(), userID, sel.IDs())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view, nil))
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Clear(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view, nil))
	}
}

// CartSelection previews a selection against the current cart without changing it.
func CartSelection(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req selectionRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view, selectionFrom(view.Lines, req)))
	}
}
