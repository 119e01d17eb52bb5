package main

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine. The
// returned limiter must be stopped on shutdown.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	r.Use(logger.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins))

	loginLimiter := middleware.NewRateLimiter(svc.cfg.Server.LoginRPS, svc.cfg.Server.LoginBurst)

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	api.Use(middleware.AuditLog())
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimiter.Middleware(), svc.authHandler.Login)
		}

		// Callable gateway; verifyToken answers for any token holder
		api.POST("/functions/verifyToken", svc.functionsHandler.VerifyToken)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.authService))
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			protected.POST("/functions/:name", svc.functionsHandler.Call)

			// Projects
			ph := svc.projectHandler
			protected.GET("/projects", ph.List)
			protected.GET("/projects/status-options", ph.StatusOptions)
			protected.PUT("/projects/status", ph.BulkUpdateStatus)
			protected.GET("/projects/:id", ph.GetByID)
			protected.PUT("/projects/:id/status", ph.UpdateStatus)
			protected.PUT("/projects/:id/comments", ph.UpdateComments)

			staff := protected.Group("", middleware.RoleRequired(models.RoleAdmin, models.RoleTranslator))
			staff.PUT("/projects/:id/wordcount", ph.UpdateWordCount)

			submitters := protected.Group("", middleware.RoleRequired(models.RoleAdmin, models.RoleClient))
			submitters.POST("/projects", ph.Create)
			submitters.DELETE("/projects/:id", ph.Delete)

			// Documents
			dh := svc.documentHandler
			protected.GET("/projects/:id/documents", dh.List)
			protected.POST("/projects/:id/documents", dh.Upload)
			protected.GET("/projects/:id/documents/:docId/url", dh.Download)
			protected.DELETE("/projects/:id/documents/:docId", dh.Delete)

			// Tenants (read)
			protected.GET("/tenants", svc.tenantHandler.List)

			admin := protected.Group("", middleware.AdminRequired())
			{
				admin.PUT("/projects/:id/translator", ph.AssignTranslator)
				admin.PUT("/projects/:id/billing", ph.UpdateBilling)

				th := svc.tenantHandler
				admin.GET("/tenants/:id", th.GetByID)
				admin.POST("/tenants", th.Create)
				admin.PUT("/tenants/:id", th.Update)
				admin.DELETE("/tenants/:id", th.Delete)
				admin.POST("/tenants/:id/logo", th.UploadLogo)

				uh := svc.userHandler
				admin.GET("/users", uh.List)
				admin.GET("/users/:id", uh.GetByID)
				admin.POST("/users", uh.Save)
				admin.PUT("/users/:id/claims", uh.AssignClaims)
				admin.DELETE("/users/:id", uh.Delete)

				admin.GET("/counters/:key", svc.counterHandler.Get)
				admin.POST("/counters/:key/reconcile", svc.counterHandler.Reconcile)

				admin.GET("/system-logs", svc.systemLogHandler.List)
			}
		}
	}
	return loginLimiter
}
