package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/internal/utils"
	"github.com/tchtranslate/portal/pkg/response"
)

const (
	ContextUID        = "uid"
	ContextEmail      = "email"
	ContextRole       = "role"
	ContextTenant     = "tenant"
	ContextDepartment = "department"
)

// TokenVerifier checks a bearer token against current account state.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (*utils.Claims, error)
}

// AuthRequired rejects requests without a valid, unrevoked bearer token and
// stores the verified claims on the context.
func AuthRequired(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		claims, err := verifier.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUID, claims.UID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextTenant, claims.Tenant)
		c.Set(ContextDepartment, claims.Department)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AdminRequired lets only admins through.
func AdminRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleAdmin)
}

// RoleRequired lets through callers holding one of roles.
func RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
		c.Abort()
	}
}

// GetCaller returns the verified identity of the request.
func GetCaller(c *gin.Context) services.Caller {
	return services.Caller{
		UID:        c.GetString(ContextUID),
		Role:       c.GetString(ContextRole),
		Tenant:     c.GetString(ContextTenant),
		Department: c.GetString(ContextDepartment),
	}
}

func GetUID(c *gin.Context) string {
	return c.GetString(ContextUID)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// GetAudit describes the caller for system log entries.
func GetAudit(c *gin.Context) services.AuditEntry {
	return services.AuditEntry{
		UserID:    c.GetString(ContextUID),
		Tenant:    c.GetString(ContextTenant),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
