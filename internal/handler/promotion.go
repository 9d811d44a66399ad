package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

// previewPromotion serves POST /api/promotions/preview. The caller's user ID
// comes from the bearer token, never from the body.
func (h *Handler) previewPromotion(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(w, r, req.decode); err != nil {
		fail(w, r, err)
		return
	}

	ec, err := promotion.NewEvaluationContext(
		req.code,
		req.orderSubtotal(),
		req.items,
		auth.UserFrom(r.Context()),
		req.branchID,
	)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.promos.Preview(r.Context(), ec)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeEvaluation(res))
}

// createPromotion serves POST /api/promotions.
func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req promotion.CreateRequest
	if err := decodeBody(w, r, decodeCreatePromotion(&req)); err != nil {
		fail(w, r, err)
		return
	}

	p, err := h.promos.CreatePromotion(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, encodePromotion(p))
}

// getPromotion serves GET /api/promotions/{code}.
func (h *Handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promos.GetPromotion(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodePromotion(p))
}

// setPromotionStatus serves PATCH /api/promotions/{code}/status with a
// {"status":"ACTIVE"|"INACTIVE"} body and returns the updated promotion.
func (h *Handler) setPromotionStatus(w http.ResponseWriter, r *http.Request) {
	var status promotion.Status
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := d.Str()
		status = promotion.Status(s)
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.promos.SetStatus(r.Context(), code, status); err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.promos.GetPromotion(r.Context(), code)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodePromotion(p))
}
