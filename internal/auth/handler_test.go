package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/auth"
	"github.com/frahmantamala/vuln-management/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockProvider implements auth.IdentityProvider for testing
type MockProvider struct {
	profile   *auth.Profile
	fetchErr  error
	fetchCode string
}

func (m *MockProvider) AuthURL(state string) string {
	return "https://provider.example.com/auth?state=" + state
}

func (m *MockProvider) FetchProfile(ctx context.Context, code string) (*auth.Profile, error) {
	m.fetchCode = code
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.profile, nil
}

// MockLoginAPI implements auth.LoginAPI for testing
type MockLoginAPI struct {
	email    string
	name     string
	loginErr error
}

func (m *MockLoginAPI) LoginOrCreate(ctx context.Context, email, name string) (*user.Login, error) {
	m.email = email
	m.name = name
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &user.Login{
		Token:     "issued-token",
		ExpiresAt: time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC),
	}, nil
}

var _ = Describe("Auth Handler", func() {
	var (
		provider *MockProvider
		users    *MockLoginAPI
		handler  *auth.Handler
	)

	BeforeEach(func() {
		provider = &MockProvider{
			profile: &auth.Profile{
				Email:         "Alice@Example.com",
				Name:          "Alice",
				VerifiedEmail: true,
			},
		}
		users = &MockLoginAPI{}
		handler = auth.NewHandler(provider, users)
	})

	Describe("Login", func() {
		It("should redirect to the provider with a state cookie", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
			rec := httptest.NewRecorder()
			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusTemporaryRedirect))

			cookies := rec.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Name).To(Equal("oauth_state"))
			Expect(cookies[0].Value).NotTo(BeEmpty())
			Expect(rec.Header().Get("Location")).To(ContainSubstring("state=" + cookies[0].Value))
		})
	})

	Describe("Callback", func() {
		callback := func(state, cookieValue, code string) *httptest.ResponseRecorder {
			target := "/api/v1/auth/callback?state=" + state
			if code != "" {
				target += "&code=" + code
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieValue})
			}
			rec := httptest.NewRecorder()
			handler.Callback(rec, req)
			return rec
		}

		It("should complete a login and return the issued token", func() {
			rec := callback("nonce", "nonce", "auth-code")
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(provider.fetchCode).To(Equal("auth-code"))
			Expect(users.email).To(Equal("alice@example.com"))
			Expect(users.name).To(Equal("Alice"))

			var resp auth.LoginResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.JWTToken).To(Equal("issued-token"))
			Expect(resp.ExpirationDate).To(Equal(time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)))
		})

		It("should reject a missing state cookie", func() {
			rec := callback("nonce", "", "auth-code")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject a state mismatch", func() {
			rec := callback("nonce", "other", "auth-code")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject a callback without a code", func() {
			rec := callback("nonce", "nonce", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should surface a provider failure as unavailable", func() {
			provider.fetchErr = internal.ErrExternalAuthFailed
			rec := callback("nonce", "nonce", "auth-code")
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("should reject an unverified provider email", func() {
			provider.profile.VerifiedEmail = false
			rec := callback("nonce", "nonce", "auth-code")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
