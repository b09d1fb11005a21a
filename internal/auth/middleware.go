package auth

import (
	"net/http"

	"github.com/native-market/pos-api/internal/common"
)

// Middleware gates routes behind a valid session cookie.
type Middleware struct {
	Service    *Service
	CookieName string
}

// RequireSession rejects requests without a valid session cookie.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.CookieName)
		if err != nil {
			common.WriteError(w, common.Unauthorized("missing session", err))
			return
		}
		if err := m.Service.VerifySession(cookie.Value); err != nil {
			common.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
