package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/native-market/pos-api/internal/common"
)

// Handler serves the session endpoints.
type Handler struct {
	Service        *Service
	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Login verifies the stall password and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	token, expiresAt, err := h.Service.Login(req.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(token, int(h.Service.SessionTTL().Seconds())))
	common.JSONData(w, http.StatusOK, sessionResponse{Authenticated: true, ExpiresAt: &expiresAt})
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	common.JSONData(w, http.StatusOK, sessionResponse{Authenticated: false})
}

// Session reports whether the caller holds a valid session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.CookieName)
	if err != nil {
		common.JSONData(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	if err := h.Service.VerifySession(cookie.Value); err != nil {
		common.JSONData(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	common.JSONData(w, http.StatusOK, sessionResponse{Authenticated: true})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	}
}
