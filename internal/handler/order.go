package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
	"github.com/xenking/foodhub-promotions/internal/domain/order"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
	"github.com/xenking/foodhub-promotions/pkg/httpmiddleware"
)

// placeOrder serves POST /api/order.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req := order.PlaceOrderRequest{UserID: auth.UserFrom(r.Context())}
	if err := decodeBody(w, r, decodePlaceOrder(&req)); err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		// An unknown code is a problem with the order, not a missing resource.
		if errors.Is(err, promotion.ErrNotFound) {
			httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, promotion.ErrNotFound.Error())
			return
		}
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeOrder(res.Order, res.MenuItems))
}

// cancelOrder serves POST /api/order/{id}/cancel.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), auth.UserFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeOrder(o, nil))
}
