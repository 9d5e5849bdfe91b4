package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
)

// Context keys set by RequireAuth.
const (
	CtxAccountID = "account_id"
	CtxRole      = "role"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// RequireAuth validates the bearer session token and stores the caller's
// account id and role on the gin context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(am.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		accountID, ok := claims["account_id"].(string)
		if !ok || accountID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account_id claim is required"})
			c.Abort()
			return
		}
		roleClaim, ok := claims["role"].(string)
		if !ok || !channel.Role(roleClaim).IsValid() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "role claim is missing or unknown"})
			c.Abort()
			return
		}

		c.Set(CtxAccountID, accountID)
		c.Set(CtxRole, channel.Role(roleClaim))
		c.Next()
	}
}

// Identity reads back what RequireAuth stored.
func Identity(c *gin.Context) (string, channel.Role) {
	accountID, _ := c.Get(CtxAccountID)
	role, _ := c.Get(CtxRole)
	id, _ := accountID.(string)
	r, _ := role.(channel.Role)
	return id, r
}
