package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/pkg/models"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func TestCanManageTrip(t *testing.T) {
	trip := &models.Trip{ID: "t-1", AgentID: "agent-1"}

	assert.NoError(t, CanManageTrip(models.Caller{ID: "root", Role: models.RoleAdmin}, trip))
	assert.NoError(t, CanManageTrip(models.Caller{ID: "agent-1", Role: models.RoleAgent}, trip))
	assert.ErrorIs(t, CanManageTrip(models.Caller{ID: "agent-2", Role: models.RoleAgent}, trip), ErrForbidden)
	assert.ErrorIs(t, CanManageTrip(models.Caller{ID: "client-1", Role: models.RoleClient}, trip), ErrForbidden)
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(models.Caller{Role: models.RoleAdmin}))
	assert.ErrorIs(t, RequireAdmin(models.Caller{Role: models.RoleAgent}), ErrForbidden)
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	assert.False(t, ok)

	want := models.Caller{ID: "u", Role: models.RoleAgent}
	got, ok := CallerFrom(WithCaller(context.Background(), want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestTokenVerifier_Verify(t *testing.T) {
	v := NewTokenVerifier(secret)
	exp := time.Now().Add(time.Hour).Unix()

	caller, err := v.Verify(sign(t, secret, jwt.MapClaims{"user_id": "agent-1", "role": "agent", "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, models.Caller{ID: "agent-1", Role: models.RoleAgent}, caller)

	tests := map[string]string{
		"wrong secret": sign(t, "other", jwt.MapClaims{"user_id": "a", "role": "admin", "exp": exp}),
		"expired":      sign(t, secret, jwt.MapClaims{"user_id": "a", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no user":      sign(t, secret, jwt.MapClaims{"role": "admin", "exp": exp}),
		"bad role":     sign(t, secret, jwt.MapClaims{"user_id": "a", "role": "root", "exp": exp}),
		"garbage":      "not.a.token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}
