package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playtombola/backend/internal/config"
)

// IssueHostToken signs an HS256 JWT binding the bearer to one draw. The
// token is returned once at creation (and again on PIN recovery); it is
// what unlocks host control messages over the websocket and host-only
// HTTP endpoints.
func IssueHostToken(cfg *config.Config, drawToken string) (string, error) {
	exp := time.Now().Add(time.Duration(cfg.SessionTimeoutMin) * time.Minute)
	claims := jwt.MapClaims{
		"draw_token": drawToken,
		"exp":        exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// HostAuthMiddleware validates a bearer host JWT against the :token route
// parameter.
func HostAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		drawToken, _ := claims["draw_token"].(string)
		if drawToken == "" || drawToken != c.Param("token") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token not valid for this draw"})
			return
		}

		c.Set("draw_token", drawToken)
		c.Next()
	}
}
