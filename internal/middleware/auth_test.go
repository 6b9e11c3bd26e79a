package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartnshine/interview/internal/models"
)

func signToken(t *testing.T, claims UserClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	require.NoError(t, err)
	return signed
}

func authRequest(t *testing.T, authHeader string) (*httptest.ResponseRecorder, string, models.SubscriptionTier) {
	t.Helper()

	var userID string
	var tier models.SubscriptionTier
	handler := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = GetUserID(r)
		tier = GetTier(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, userID, tier
}

func TestAuthenticateValidToken(t *testing.T) {
	token := signToken(t, UserClaims{
		UserID: "user42",
		Tier:   string(models.TierPro),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, userID, tier := authRequest(t, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user42", userID)
	assert.Equal(t, models.TierPro, tier)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	rec, _, _ := authRequest(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	rec, _, _ := authRequest(t, "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	token := signToken(t, UserClaims{
		UserID: "user42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	rec, _, _ := authRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateTokenWithoutUserID(t *testing.T) {
	token := signToken(t, UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, _, _ := authRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTierDefaultsToFree(t *testing.T) {
	token := signToken(t, UserClaims{
		UserID: "user42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, _, tier := authRequest(t, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TierFree, tier)
}
