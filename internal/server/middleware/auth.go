package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aetherblog/ai-service/pkg/api"
)

const (
	ctxUserID = "auth_user_id"
	ctxRole   = "auth_role"
)

// Identity parses an optional Bearer JWT (HMAC, shared secret with the
// main application) and stashes the user id. Requests without a token
// proceed anonymously; routing then resolves against system rows only.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.NewError(http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format"))
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.NewError(http.StatusUnauthorized, "Unauthorized", "Invalid or expired token"))
			return
		}

		if id, ok := userIDClaim(claims); ok {
			c.Set(ctxUserID, id)
		}
		if role, ok := claims["role"].(string); ok {
			c.Set(ctxRole, role)
		}

		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ctxUserID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.NewError(http.StatusUnauthorized, "Unauthorized", "Authentication required"))
			return
		}
		c.Next()
	}
}

// RequireAdmin guards the admin surface.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(ctxRole); role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden,
				api.NewError(http.StatusForbidden, "Forbidden", "Admin role required"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user, or nil for anonymous callers.
func UserID(c *gin.Context) *int64 {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}

func userIDClaim(claims jwt.MapClaims) (int64, bool) {
	for _, key := range []string{"user_id", "sub"} {
		switch v := claims[key].(type) {
		case float64:
			return int64(v), true
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id, true
			}
		}
	}
	return 0, false
}
