package jwttoken

import (
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *Claims) *middleware.OperatorClaims {
	return &middleware.OperatorClaims{
		Operator: claims.Operator,
		TokenID:  claims.ID,
	}
}

// JWTServiceAdapter lets the operator middleware validate tokens without
// depending on jwt types.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.OperatorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
