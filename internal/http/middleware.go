package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"account-service/internal/domain"
	"account-service/internal/service"
)

// callerKey is the gin context key under which requireAuth stores the caller.
const callerKey = "authCaller"

// requireAuth extracts and verifies the bearer token, then re-checks the
// subject against the live record. A deactivated or deleted account fails
// here even if its token has not expired yet.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithMessage(c, http.StatusUnauthorized, "authentication required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithMessage(c, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, role, err := h.tokens.Verify(parts[1])
		if err != nil {
			h.logger.Warnf("rejected token: %v", err)
			abortWithMessage(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				abortWithMessage(c, http.StatusUnauthorized, "account not found or deactivated")
				return
			}
			h.logger.Errorf("load authenticated user: %v", err)
			abortWithMessage(c, http.StatusInternalServerError, "server error")
			return
		}
		if !user.IsActive {
			abortWithMessage(c, http.StatusUnauthorized, "account not found or deactivated")
			return
		}

		// The role comes from the token, not the live record: a role change
		// does not affect tokens issued before it.
		c.Set(callerKey, domain.Caller{UserID: user.ID, Role: role})
		c.Next()
	}
}

// requireRole permits the request only if the authenticated caller holds one
// of the given roles. It assumes requireAuth ran earlier in the chain.
func (h *Handler) requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !caller.Role.OneOf(roles...) {
			abortWithMessage(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) (domain.Caller, bool) {
	value, ok := c.Get(callerKey)
	if !ok {
		return domain.Caller{}, false
	}
	caller, ok := value.(domain.Caller)
	return caller, ok
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
