package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/system"
	"github.com/frahmantamala/vuln-management/internal/transport"
	"github.com/frahmantamala/vuln-management/pkg/logger"
	"github.com/go-chi/chi"
)

// HeaderName is the request header carrying the access token, in the
// form "<scheme> <token>".
const HeaderName = "Authentication"

// TokenVerifier checks a presented token against stored credentials.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (internal.RequestIdentity, error)
}

// RoleResolver resolves a caller's membership role within a system.
type RoleResolver interface {
	RoleOf(ctx context.Context, systemName, email string) (system.Role, bool, error)
}

// RouteMeta describes the guarded route: its policy name and whether it
// accepts a bulk payload subject to the item cap.
type RouteMeta struct {
	Name string
	Bulk bool
}

// Pipeline guards routes with an ordered sequence of stages:
// authenticate establishes the caller identity, authorize checks the
// access policy, admit enforces payload limits. Each stage either
// passes the request on or fails it; a failed stage short-circuits
// the rest.
type Pipeline struct {
	*transport.BaseHandler
	verifier TokenVerifier
	roles    RoleResolver
	policy   Policy
}

func NewPipeline(verifier TokenVerifier, roles RoleResolver, policy Policy) *Pipeline {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Pipeline{
		BaseHandler: transport.NewBaseHandler(lg),
		verifier:    verifier,
		roles:       roles,
		policy:      policy,
	}
}

type stage func(r *http.Request, meta RouteMeta) (*http.Request, error)

// Guard wraps a handler with the full stage sequence for the route.
func (p *Pipeline) Guard(meta RouteMeta) func(http.Handler) http.Handler {
	stages := []stage{p.authenticate, p.authorize, p.admit}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, run := range stages {
				guarded, err := run(r, meta)
				if err != nil {
					p.WriteError(w, err)
					return
				}
				r = guarded
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate expects "<scheme> <token>" in the Authentication header
// and verifies the token. Malformed headers and unverifiable tokens are
// indistinguishable to the caller.
func (p *Pipeline) authenticate(r *http.Request, meta RouteMeta) (*http.Request, error) {
	parts := strings.Split(r.Header.Get(HeaderName), " ")
	if len(parts) != 2 || parts[1] == "" {
		return r, internal.ErrAuthenticationFailed
	}

	identity, err := p.verifier.Verify(r.Context(), parts[1])
	if err != nil {
		p.Logger.Error("token verification failed", "route", meta.Name, "error", err)
		return r, internal.NewInternalError("could not verify credentials", err)
	}
	if !identity.Verified {
		return r, internal.ErrAuthenticationFailed
	}

	return r.WithContext(internal.ContextWithIdentity(r.Context(), identity)), nil
}

// authorize checks the route's policy entry against the caller's role
// in the target system. Routes without an entry skip authorization.
func (p *Pipeline) authorize(r *http.Request, meta RouteMeta) (*http.Request, error) {
	allowed, guarded := p.policy[meta.Name]
	if !guarded {
		return r, nil
	}

	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		return r, internal.ErrAuthenticationFailed
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))
	if systemName == "" {
		return r, internal.ErrAccessDenied
	}

	role, member, err := p.roles.RoleOf(r.Context(), systemName, identity.Email)
	if err != nil {
		p.Logger.Error("role resolution failed", "route", meta.Name, "system", systemName, "error", err)
		return r, internal.NewInternalError("could not resolve access", err)
	}
	if !member {
		return r, internal.ErrAccessDenied
	}

	for _, candidate := range allowed {
		if candidate == role {
			return r, nil
		}
	}
	return r, internal.ErrAccessDenied
}

// admit caps bulk payloads before any handler work happens. The body is
// restored so the handler can decode it again; a body that is not a
// JSON array is left for the handler to reject.
func (p *Pipeline) admit(r *http.Request, meta RouteMeta) (*http.Request, error) {
	if !meta.Bulk {
		return r, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return r, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed)
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return r, nil
	}
	if len(items) > system.MaxBulkItems {
		return r, internal.ErrMaxItemsLimit
	}
	return r, nil
}
