package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OwnerHeader carries the id of the already-authenticated user, set by the gateway in front of this service.
const OwnerHeader = "X-User-ID"

// ownerIDKey is the key used to store the owner's ID in the Gin and request contexts.
const ownerIDKey = contextKey("ownerID")

// OwnerMiddleware reads the owner id from OwnerHeader and rejects requests without one.
func OwnerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(OwnerHeader)
		if ownerID == "" {
			GetLoggerFromContext(c).Warn("Request without owner id", slog.String("header", OwnerHeader))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(string(ownerIDKey), ownerID)
		ctx := context.WithValue(c.Request.Context(), ownerIDKey, ownerID)
		ctx = WithLogger(ctx, GetLoggerFromCtx(ctx).With(slog.String("owner_id", ownerID)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetOwnerIDFromContext retrieves the owner ID from the Gin context.
// It returns the owner ID and a boolean indicating if it was found.
func GetOwnerIDFromContext(c *gin.Context) (string, bool) {
	ownerIDVal, exists := c.Get(string(ownerIDKey))
	if !exists {
		// check in the request context as well
		if v, ok := c.Request.Context().Value(ownerIDKey).(string); ok && v != "" {
			return v, true
		}
		return "", false
	}

	ownerID, ok := ownerIDVal.(string)
	if !ok || ownerID == "" {
		return "", false
	}
	return ownerID, true
}
