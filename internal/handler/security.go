package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

// authenticate verifies the bearer token and stores the requester identity in
// the context. The token is trusted as the sole identity source; issuing it
// is out of this service's hands.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		ident, err := h.tokens.Parse(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
	})
}

// requireAdmin rejects non-admin requesters. Runs after authenticate.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok || !ident.Admin {
			respondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity fetches the identity placed by authenticate. It only returns nil
// on misrouted handlers, which is a programming error surfaced as 401.
func identity(w http.ResponseWriter, r *http.Request) *auth.Identity {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return nil
	}
	return ident
}
