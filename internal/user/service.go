package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/token"
)

// TokenCodec issues and decodes access tokens.
type TokenCodec interface {
	Issue(email, name string) (string, token.Claims, error)
	Decode(tokenString string) (token.Claims, error)
}

// Service handles user identity and credential verification.
type Service struct {
	repo   Repository
	codec  TokenCodec
	logger *slog.Logger

	// Now is the clock used for login timestamps and expiry checks;
	// overridable in tests.
	Now func() time.Time
}

func NewService(repo Repository, codec TokenCodec, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		codec:  codec,
		logger: logger,
		Now:    time.Now,
	}
}

// LoginOrCreate records a login verified by the external identity
// provider. A fresh token is issued either way; storing its id and
// expiry on the user invalidates all previously issued tokens.
func (s *Service) LoginOrCreate(ctx context.Context, email, name string) (*Login, error) {
	tokenString, claims, err := s.codec.Issue(email, name)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	now := s.Now()
	record := &User{
		AccessTokenExp: claims.Exp,
		AccessTokenJTI: claims.JTI,
		Email:          email,
		LastLogin:      now,
		Name:           name,
		Registration:   now,
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if existing != nil {
		record.Registration = existing.Registration
	}

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("user logged in",
		"email", email,
		"first_login", existing == nil)

	return &Login{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt(),
		User:      record,
	}, nil
}

// Verify decodes a presented token and checks it against the user's
// stored credential. A malformed token or a token superseded by a newer
// login yields an unverified identity, never an error; only unexpected
// storage failures propagate.
func (s *Service) Verify(ctx context.Context, tokenString string) (internal.RequestIdentity, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrMalformed) {
			return internal.RequestIdentity{}, nil
		}
		return internal.RequestIdentity{}, fmt.Errorf("decode token: %w", err)
	}

	record, err := s.repo.GetByEmail(ctx, claims.Sub)
	if err != nil {
		return internal.RequestIdentity{}, fmt.Errorf("load user: %w", err)
	}
	if record == nil {
		return internal.RequestIdentity{}, nil
	}

	if claims.JTI != record.AccessTokenJTI {
		s.logger.Debug("token superseded by newer login", "email", record.Email)
		return internal.RequestIdentity{}, nil
	}
	if !s.Now().Before(time.Unix(record.AccessTokenExp, 0)) {
		s.logger.Debug("stored token expired", "email", record.Email)
		return internal.RequestIdentity{}, nil
	}

	return internal.RequestIdentity{
		Email:    record.Email,
		Name:     record.Name,
		Verified: true,
	}, nil
}
