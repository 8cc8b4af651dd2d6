package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/transport"
	"github.com/frahmantamala/vuln-management/internal/user"
	"github.com/frahmantamala/vuln-management/pkg/logger"
	"github.com/google/uuid"
)

const stateCookieName = "oauth_state"

type LoginAPI interface {
	LoginOrCreate(ctx context.Context, email, name string) (*user.Login, error)
}

// LoginResponse is the payload returned after a completed login.
type LoginResponse struct {
	Success        bool      `json:"success"`
	ExpirationDate time.Time `json:"expiration_date"`
	JWTToken       string    `json:"jwt_token"`
}

type Handler struct {
	*transport.BaseHandler
	provider IdentityProvider
	users    LoginAPI
}

func NewHandler(provider IdentityProvider, users LoginAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		provider:    provider,
		users:       users,
	}
}

// Login starts the authorization-code flow. The state nonce lives in a
// short-lived cookie and is checked on callback.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback completes the flow: state check, code exchange, profile
// fetch, then a login that replaces any previously issued token.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.Logger.Warn("Callback: state mismatch")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	profile, err := h.provider.FetchProfile(r.Context(), code)
	if err != nil {
		h.Logger.Error("Callback: provider error", "error", err)
		h.WriteError(w, err)
		return
	}
	if !profile.VerifiedEmail {
		h.Logger.Warn("Callback: unverified email", "email", profile.Email)
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	login, err := h.users.LoginOrCreate(r.Context(), internal.NormalizeEmail(profile.Email), profile.Name)
	if err != nil {
		h.Logger.Error("Callback: login failed", "error", err, "email", profile.Email)
		h.WriteError(w, internal.NewInternalError("login failed", err))
		return
	}

	h.WriteJSON(w, http.StatusCreated, LoginResponse{
		Success:        true,
		ExpirationDate: login.ExpiresAt,
		JWTToken:       login.Token,
	})
}
