package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezhealth/appointment-api/internal/model"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", "ezhealth", time.Hour)
	want := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}

	token, err := svc.GenerateToken(want)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret", "ezhealth", time.Hour)
	principal := model.Principal{ID: uuid.New(), Role: model.RolePatient}

	wrongKey, err := NewJWTService("other", "ezhealth", time.Hour).GenerateToken(principal)
	require.NoError(t, err)

	expired, err := NewJWTService("secret", "ezhealth", -time.Minute).GenerateToken(principal)
	require.NoError(t, err)

	wrongIssuer, err := NewJWTService("secret", "someone-else", time.Hour).GenerateToken(principal)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
			Issuer:  "ezhealth",
		},
		Role: "Nurse",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42", Issuer: "ezhealth"},
		Role:             model.RoleAdmin,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong key":    wrongKey,
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"bad role":     badRole,
		"bad subject":  badSubject,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}
