package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/frahmantamala/vuln-management/internal"
	"golang.org/x/oauth2"
)

// Profile is the identity returned by the external provider.
type Profile struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

// IdentityProvider runs the authorization-code flow with the external
// identity provider.
type IdentityProvider interface {
	AuthURL(state string) string
	FetchProfile(ctx context.Context, code string) (*Profile, error)
}

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements the code flow against Google OAuth2.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg internal.OAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: googleEndpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleProvider) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// FetchProfile exchanges the authorization code and loads the user's
// profile. Every provider-side failure maps to the same external auth
// error so callers need no provider knowledge.
func (g *GoogleProvider) FetchProfile(ctx context.Context, code string) (*Profile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, internal.ErrExternalAuthFailed.WithCause(fmt.Errorf("code exchange: %w", err))
	}

	resp, err := g.config.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		return nil, internal.ErrExternalAuthFailed.WithCause(fmt.Errorf("fetch userinfo: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, internal.ErrExternalAuthFailed.WithCause(fmt.Errorf("userinfo status %d", resp.StatusCode))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, internal.ErrExternalAuthFailed.WithCause(fmt.Errorf("decode userinfo: %w", err))
	}
	return &profile, nil
}
