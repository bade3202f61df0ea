package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(expires time.Time) models.JWTClaims {
	return models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleCompany,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "youthhub",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestValidateTokenAcceptsSignedClaims(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "youthhub"})
	token := signToken(t, "secret", jwt.SigningMethodHS256, validClaims(time.Now().Add(time.Hour)))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "user-1", Role: models.RoleCompany}, claims.Actor())
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "youthhub"})

	noRole := validClaims(time.Now().Add(time.Hour))
	noRole.Role = "GUEST"

	cases := map[string]string{
		"expired":      signToken(t, "secret", jwt.SigningMethodHS256, validClaims(time.Now().Add(-time.Hour))),
		"wrong secret": signToken(t, "other", jwt.SigningMethodHS256, validClaims(time.Now().Add(time.Hour))),
		"wrong alg":    signToken(t, "secret", jwt.SigningMethodHS512, validClaims(time.Now().Add(time.Hour))),
		"unknown role": signToken(t, "secret", jwt.SigningMethodHS256, noRole),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}
