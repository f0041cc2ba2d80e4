package middleware

import (
	"strings"

	"github.com/contextlens/core/internal/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const (
	scopeContextKey = "caller_scope"
	tokenContextKey = "caller_token"
)

// Scope resolves the quota scope for each request: the subject of a valid
// bearer token when one is presented, otherwise the client IP. Invalid tokens
// are ignored rather than rejected; an anonymous caller still gets the
// IP-scoped budget.
func Scope() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := jwt.Parse(token); err == nil && claims.Subject != "" {
				c.Set(scopeContextKey, "token:"+claims.Subject)
				c.Set(tokenContextKey, token)
			}
		}
		c.Next()
	}
}

// CallerScope returns the quota scope resolved for this request.
func CallerScope(c *gin.Context) string {
	if scope, ok := c.Get(scopeContextKey); ok {
		return scope.(string)
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// IsIdentified reports whether the caller presented a valid token.
func IsIdentified(c *gin.Context) bool {
	_, ok := c.Get(tokenContextKey)
	return ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
