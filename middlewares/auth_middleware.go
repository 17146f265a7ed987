package middlewares

import (
	"errors"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityMiddleware resolves the calling identity and stores it under
// "email" in the request context. Order: Bearer token email claim, then the
// X-User-Email header, then the user query parameter. It never aborts;
// handlers that require an identity respond 401 themselves (the examples
// endpoint is public).
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if email := emailFromBearer(c); email != "" {
			c.Set("email", email)
		} else if email := c.GetHeader("X-User-Email"); email != "" {
			c.Set("email", email)
		} else if email := c.Query("user"); email != "" {
			c.Set("email", email)
		}
		c.Next()
	}
}

func emailFromBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		return ""
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}
