package middleware

import (
	"log"
	"net/http"
	"strings"

	"newgenmusic/auth"
	"newgenmusic/models"
	"newgenmusic/posts"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const callerKey = "caller"

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			token := c.Query("token")
			if token == "" {
				abort(c, http.StatusUnauthorized, "unauthorized", "No authorization token provided")
				return
			}
			authHeader = "Bearer " + token
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "unauthorized", "Format should be: Bearer <token>")
			return
		}

		claims, err := tokens.ParseToken(parts[1])
		if err != nil {
			log.Printf("JWT validation error: %v", err)
			abort(c, http.StatusUnauthorized, "unauthorized", "Token validation failed")
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "Token validation failed")
			return
		}
		c.Set(callerKey, &posts.Caller{ID: id, Role: claims.Role})
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		caller := CallerFrom(c)
		if caller == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if caller.Role != models.RoleAdmin {
			abort(c, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		c.Next()
	}
}

// CallerFrom returns the caller set by RequireAuth, or nil.
func CallerFrom(c *gin.Context) *posts.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*posts.Caller)
	return caller
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": message})
}
