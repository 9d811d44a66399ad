package handler

import (
	"net/http"

	"github.com/go-faster/errors"
)

// listMenu serves GET /api/menu?branch=ID.
func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.List(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		fail(w, r, errors.Wrap(err, "list menu"))
		return
	}
	writeJSON(w, http.StatusOK, encodeMenu(items))
}
