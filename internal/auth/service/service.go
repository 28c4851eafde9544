// Package service implements staff authentication: credential login, token
// refresh and revocation, and account bootstrap.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"visitlog/internal/audit"
	"visitlog/internal/auth/models"
	"visitlog/internal/auth/secrets"
	"visitlog/internal/auth/store"
	"visitlog/internal/auth/tokens"
	dErrors "visitlog/pkg/domain-errors"
	"visitlog/pkg/platform/sentinel"
	"visitlog/pkg/requestcontext"
)

// AuthService owns the login and token lifecycle.
type AuthService struct {
	users   store.UserStore
	tokens  *tokens.Service
	auditor *audit.Publisher
}

// Option configures optional service collaborators.
type Option func(*AuthService)

// WithAuditPublisher wires the audit trail.
func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *AuthService) { s.auditor = p }
}

func New(users store.UserStore, tokenService *tokens.Service, opts ...Option) *AuthService {
	s := &AuthService{users: users, tokens: tokenService}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and issues a token pair. Unknown usernames and
// wrong passwords return the same error so the response does not reveal
// which usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (*tokens.Pair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionUserLogin, Subject: user.ID.String()})
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued, so a stolen refresh token can be used at most once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := s.tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return nil, err
	}
	pair, err := s.tokens.GeneratePair(userID, claims.Username)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionTokenRefreshed, Subject: claims.UserID})
	return pair, nil
}

// Verify checks an access token and returns its claims.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	return s.tokens.ValidateAccess(ctx, accessToken)
}

// Revoke puts a token on the revocation list.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionTokenRevoked, Subject: requestcontext.UserID(ctx)})
	return nil
}

// Me returns the account of the authenticated user.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	raw := requestcontext.UserID(ctx)
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid user id")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// CreateUser registers a staff account from a plaintext password. Duplicate
// usernames return a conflict.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(username, hash, isAdmin, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

func (s *AuthService) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
