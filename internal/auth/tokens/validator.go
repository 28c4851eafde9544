package tokens

import (
	"context"

	"visitlog/internal/platform/middleware"
)

// MiddlewareValidator adapts Service to the middleware auth contract.
type MiddlewareValidator struct {
	svc *Service
}

func NewMiddlewareValidator(svc *Service) MiddlewareValidator {
	return MiddlewareValidator{svc: svc}
}

func (v MiddlewareValidator) ValidateAccessToken(ctx context.Context, tokenString string) (*middleware.JWTClaims, error) {
	claims, err := v.svc.ValidateAccess(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		JTI:      claims.ID,
	}, nil
}
