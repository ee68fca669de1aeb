package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// Identity headers forwarded by the authenticating gateway.
const (
	headerUserID         = "X-User-ID"
	headerUserName       = "X-User-Name"
	headerUserRole       = "X-User-Role"
	headerUserDepartment = "X-User-Department"
)

const actorContextKey = "actor"

// Identity resolves the acting user from gateway headers and rejects
// requests without one.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerUserID)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		role := models.RoleEndUser
		if c.GetHeader(headerUserRole) == string(models.RoleAdmin) {
			role = models.RoleAdmin
		}

		c.Set(actorContextKey, models.Actor{
			ID:         id,
			Name:       c.GetHeader(headerUserName),
			Department: c.GetHeader(headerUserDepartment),
			Role:       role,
			IPAddress:  c.ClientIP(),
		})
		c.Next()
	}
}

// RequireAdmin aborts requests from non-admin actors.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return models.Actor{}
	}
	actor, _ := v.(models.Actor)
	return actor
}
