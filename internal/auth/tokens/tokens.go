// Package tokens issues and validates the JWT access/refresh token pair.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"visitlog/internal/auth/revocation"
	dErrors "visitlog/pkg/domain-errors"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims for our tokens. TokenType distinguishes
// access from refresh so one cannot be used in place of the other.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is one issued access/refresh token pair.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	trl        revocation.TokenRevocationList
}

func NewService(
	signingKey string,
	issuer string,
	accessTTL, refreshTTL time.Duration,
	trl revocation.TokenRevocationList) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		trl:        trl,
	}
}

// GeneratePair issues a fresh access/refresh pair for a user.
func (s *Service) GeneratePair(userID uuid.UUID, username string) (*Pair, error) {
	access, err := s.sign(userID, username, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, username, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) sign(userID uuid.UUID, username, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateAccess validates an access token, including the revocation check.
func (s *Service) ValidateAccess(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, tokenString, TokenTypeAccess)
}

// ValidateRefresh validates a refresh token, including the revocation check.
func (s *Service) ValidateRefresh(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, tokenString, TokenTypeRefresh)
}

func (s *Service) validate(ctx context.Context, tokenString, wantType string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != wantType {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "wrong token type")
	}
	if s.trl != nil {
		if claims.ID == "" {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing id")
		}
		revoked, err := s.trl.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
		}
		if revoked {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
		}
	}
	return claims, nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Revoke puts a token on the revocation list for the remainder of its
// lifetime. Either token type may be revoked.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	if s.trl == nil {
		return dErrors.New(dErrors.CodeBadRequest, "token revocation is not configured")
	}
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	if err := s.trl.Revoke(ctx, claims.ID, remaining); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

// RefreshTTL exposes the refresh token lifetime for callers that revoke
// rotated refresh tokens.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}
