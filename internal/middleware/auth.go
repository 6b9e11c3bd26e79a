package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/utils"
)

const (
	userIDKey contextKey = "user_id"
	tierKey   contextKey = "subscription_tier"
)

var jwtSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "your-secret-key" // Default for development
	}
	jwtSecret = []byte(secret)
}

// UserClaims are the claims the auth service puts in access tokens.
// The subscription tier rides along so quota checks need no extra
// round trip to the billing service.
type UserClaims struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
	jwt.RegisteredClaims
}

func parseToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return token.Claims.(*UserClaims), nil
}

func extractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", errors.New("invalid authorization header format")
	}
	return authHeader[7:], nil
}

// Authenticate verifies the bearer token and stores the caller's
// identity and tier in the request context.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
				Code:    "unauthorized",
				Message: err.Error(),
			})
			return
		}

		claims, err := parseToken(tokenString)
		if err != nil || claims.UserID == "" {
			utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
				Code:    "invalid_token",
				Message: "Invalid or expired token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, tierKey, models.SubscriptionTier(claims.Tier))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the authenticated caller's user id.
func GetUserID(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTier returns the caller's subscription tier; unknown tiers fall
// back to free when limits are resolved.
func GetTier(r *http.Request) models.SubscriptionTier {
	if tier, ok := r.Context().Value(tierKey).(models.SubscriptionTier); ok && tier != "" {
		return tier
	}
	return models.TierFree
}
