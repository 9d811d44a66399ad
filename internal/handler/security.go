package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
	"github.com/xenking/foodhub-promotions/pkg/httpmiddleware"
)

// identify attaches the bearer token's user to the request context. Requests
// without a token stay anonymous; a bad token is rejected.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || h.tokens == nil {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := h.tokens.Verify(token)
		if err != nil {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := auth.WithUser(r.Context(), userID)
		ctx = zctx.With(ctx, zap.String("user_id", userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireScope admits requests whose API key is known and carries scope.
func (h *Handler) requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}
			info, ok := h.lookupKey(r, key)
			if !ok {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !info.HasScope(scope) {
				httpmiddleware.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			ctx := zctx.With(r.Context(), zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupKey finds the key by its HMAC and compares the stored hash in
// constant time.
func (h *Handler) lookupKey(r *http.Request, key string) (*auth.APIKeyInfo, bool) {
	if key == "" || h.keys == nil {
		return nil, false
	}
	hash := auth.HashKey(h.pepper, key)
	info, err := h.keys.FindByHash(r.Context(), hash)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
		}
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, false
	}
	return info, true
}
