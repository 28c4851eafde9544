// Package handler exposes the authentication endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authModels "visitlog/internal/auth/models"
	"visitlog/internal/auth/tokens"
	platformMetrics "visitlog/internal/platform/metrics"
	"visitlog/internal/platform/middleware"
	dErrors "visitlog/pkg/domain-errors"
	"visitlog/pkg/platform/httputil"
	"visitlog/pkg/requestcontext"
)

// Service defines the auth operations the handler depends on.
type Service interface {
	Login(ctx context.Context, username, password string) (*tokens.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
	Verify(ctx context.Context, accessToken string) (*tokens.Claims, error)
	Revoke(ctx context.Context, token string) error
	Me(ctx context.Context) (*authModels.User, error)
}

// Handler handles authentication endpoints.
type Handler struct {
	logger       *slog.Logger
	auth         Service
	metrics      *platformMetrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new auth Handler.
func New(
	auth Service,
	logger *slog.Logger,
	metrics *platformMetrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	base := []func(http.Handler) http.Handler{
		middleware.Recovery(h.logger),
		middleware.RequestID,
		middleware.Logger(h.logger),
		middleware.Timeout(15 * time.Second),
		middleware.ClientMetadata,
		middleware.ContentTypeJSON,
		middleware.Latency(h.metrics),
	}

	r.Group(func(pr chi.Router) {
		pr.Use(base...)
		pr.Post("/api/token", h.handleToken)
		pr.Post("/api/token/refresh", h.handleRefresh)
		pr.Post("/api/token/verify", h.handleVerify)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(base...)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/api/token/revoke", h.handleRevoke)
		ar.Get("/api/users/me", h.handleMe)
	})
}

// TokenRequest is the credential login payload.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token for rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyRequest carries any token for inspection or revocation.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse reports the claims of a valid access token.
type VerifyResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the wire form of a staff account.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// handleToken exchanges credentials for a token pair.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	pair, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.writeAuthError(ctx, w, err, "login failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// handleRefresh rotates a refresh token into a new pair.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "refresh_token is required"))
		return
	}

	pair, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.writeAuthError(ctx, w, err, "token refresh failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// handleVerify reports whether an access token is valid.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token is required"))
		return
	}

	claims, err := h.auth.Verify(ctx, req.Token)
	if err != nil {
		h.writeAuthError(ctx, w, err, "token verification failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		UserID:    claims.UserID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// handleRevoke puts the presented token on the revocation list.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token is required"))
		return
	}

	if err := h.auth.Revoke(ctx, req.Token); err != nil {
		h.writeAuthError(ctx, w, err, "token revocation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authenticated account.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.auth.Me(ctx)
	if err != nil {
		h.writeAuthError(ctx, w, err, "failed to load account")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	})
}

func (h *Handler) writeAuthError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, logMsg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, logMsg,
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
		)
	}
	httputil.WriteError(w, err)
}
