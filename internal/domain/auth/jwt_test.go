package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "procura/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{UserID: "u-1", Email: "buyer@example.com", Roles: []string{"buyer"}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, []string{"buyer"}, user.Roles)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	user := appctx.UserContext{UserID: "u-1"}

	wrongKey, _, err := NewJWTService(DefaultJWTConfig("other")).GenerateAccessToken(user)
	require.NoError(t, err)

	otherIssuer := DefaultJWTConfig("secret")
	otherIssuer.Issuer = "someone-else"
	foreign, _, err := NewJWTService(otherIssuer).GenerateAccessToken(user)
	require.NoError(t, err)

	expiredSvc := NewJWTService(DefaultJWTConfig("secret"))
	expiredSvc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := expiredSvc.GenerateAccessToken(user)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, _, err := svc.GenerateAccessToken(appctx.UserContext{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong key", wrongKey},
		{"wrong issuer", foreign},
		{"expired", expired},
		{"alg none", none},
		{"no subject", noSubject},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}
