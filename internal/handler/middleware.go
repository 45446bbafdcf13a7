package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"shopsystem/internal/model"
	"shopsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware propagates X-Request-ID or assigns a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s | %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
			c.GetString(ctxRequestIDKey),
		)
	}
}

// RecoveryMiddleware turns a panic into a 500 response.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				response.Abort(c, http.StatusInternalServerError, "Internal server error.")
			}
		}()
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return parts[1]
}

// requireRole authenticates the bearer token and, when roles is non-empty, checks
// the user's role. Failures respond 401 with message.
func (h *Handler) requireRole(message string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, message)
			return
		}

		user, err := h.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, message)
			return
		}

		if len(roles) > 0 && !hasRole(user.Role, roles) {
			response.Abort(c, http.StatusUnauthorized, message)
			return
		}

		c.Set(ctxUserIDKey, user.ID)
		c.Next()
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (h *Handler) IsBuyer() gin.HandlerFunc {
	return h.requireRole("Unauthorized.", model.RoleBuyer)
}

func (h *Handler) IsAdmin() gin.HandlerFunc {
	return h.requireRole("You are not admin.", model.RoleAdmin)
}

// IsUser accepts any authenticated user.
func (h *Handler) IsUser() gin.HandlerFunc {
	return h.requireRole("Unauthorized.")
}
