package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// loginRoute is where unauthenticated callers are challenged
const loginRoute = "/main"

// contextUserKey is the gin context key holding the resolved identity
const contextUserKey = "username"

// requestIDMiddleware adds a unique request ID to each request
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// loggingMiddleware provides structured request logging
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("http request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString("request_id"),
		})
	}
}

// sessionGate resolves the caller's session cookie to an identity and binds
// it into the request context. Every failure mode fails closed: the request
// is redirected to the login entry point, never passed through.
func (s *Server) sessionGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.config.Security.CookieName)
		if err != nil {
			s.challenge(c)
			return
		}

		username, err := s.identity.Resolve(token)
		if err != nil {
			s.logger.Debug("session resolution failed", map[string]interface{}{
				"path":       c.Request.URL.Path,
				"request_id": c.GetString("request_id"),
			})
			s.challenge(c)
			return
		}

		c.Set(contextUserKey, username)
		c.Next()
	}
}

// challenge rejects an unauthenticated request with a redirect to login
func (s *Server) challenge(c *gin.Context) {
	c.Redirect(http.StatusFound, loginRoute)
	c.Abort()
}

// currentUser returns the identity bound by the session gate
func currentUser(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
