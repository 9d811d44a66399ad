// Package handler exposes the menu, promotion and order services as a JSON
// REST API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
	"github.com/xenking/foodhub-promotions/internal/domain/menu"
	"github.com/xenking/foodhub-promotions/internal/domain/order"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
	"github.com/xenking/foodhub-promotions/pkg/httpmiddleware"
)

// Deps are the services and stores the API is served from.
type Deps struct {
	Promotions *promotion.Service
	Orders     *order.Service
	Menu       menu.Repository
	Tokens     *auth.Tokens
	APIKeys    auth.Repository
	// Pepper is the HMAC key API keys are hashed with.
	Pepper []byte
}

// Handler serves the /api routes.
type Handler struct {
	promos *promotion.Service
	orders *order.Service
	menu   menu.Repository
	tokens *auth.Tokens
	keys   auth.Repository
	pepper []byte
}

// New creates a Handler.
func New(d Deps) *Handler {
	return &Handler{
		promos: d.Promotions,
		orders: d.Orders,
		menu:   d.Menu,
		tokens: d.Tokens,
		keys:   d.APIKeys,
		pepper: d.Pepper,
	}
}

// Register mounts the API on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.identify)

		r.Get("/menu", h.listMenu)
		r.Post("/promotions/preview", h.previewPromotion)
		r.Post("/order", h.placeOrder)
		r.Post("/order/{id}/cancel", h.cancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(h.requireScope(auth.ScopePromotionsWrite))
			r.Post("/promotions", h.createPromotion)
			r.Get("/promotions/{code}", h.getPromotion)
			r.Patch("/promotions/{code}/status", h.setPromotionStatus)
		})
	})
}

// Router returns a chi router serving only the API.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fail maps err onto the API error response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	httpmiddleware.WriteError(w, status, msg)
}

func classify(err error) (int, string) {
	var (
		decodeErr   *decodeError
		validation  *promotion.ValidationError
		state       *promotion.InvalidStateError
		missingItem *order.ItemNotFoundError
		quantity    *order.InvalidQuantityError
	)
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, decodeErr.Error()
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, order.ErrEmptyItems.Error()
	case errors.As(err, &state):
		return http.StatusUnprocessableEntity, string(state.Reason)
	case errors.Is(err, promotion.ErrNotFound):
		return http.StatusNotFound, promotion.ErrNotFound.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, order.ErrNotFound.Error()
	case errors.Is(err, promotion.ErrAlreadyExists):
		return http.StatusConflict, promotion.ErrAlreadyExists.Error()
	case errors.As(err, &missingItem):
		return http.StatusUnprocessableEntity, missingItem.Error()
	case errors.As(err, &quantity):
		return http.StatusUnprocessableEntity, quantity.Error()
	case errors.Is(err, order.ErrNotCancellable):
		return http.StatusConflict, order.ErrNotCancellable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
