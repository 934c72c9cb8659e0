package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/repo/postgres"
)

// RoleResolver looks the acting user's role up in the store. Role is
// resolved fresh on every request instead of trusted from token claims, so
// a demoted admin is locked out on their next call.
type RoleResolver interface {
	GetRole(ctx context.Context, id int64) (user.Role, error)
}

func RequireRole(roles RoleResolver, required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserIDFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		role, err := roles.GetRole(c.Request.Context(), id)

		if err != nil && !errors.Is(err, postgres.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not verify permissions",
				},
			})
			return
		}

		// A bearer for a deleted user and a role mismatch deny the same way.
		if err != nil || role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Access denied. Admin role required.",
				},
			})
			return
		}

		c.Next()
	}
}
