package api

import (
	"student-result-system/internal/metrics"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", handler.Login)
		v1.POST("/auth/logout", handler.Logout)

		session := SessionMiddleware(handler.auth, handler.cfg.Auth.CookieName)
		authed := v1.Group("", session)
		{
			authed.GET("/auth/me", handler.Me)

			authed.POST("/students/upload", handler.UploadStudents)
			authed.GET("/students", handler.ListStudents)

			authed.POST("/emails/send", handler.SendEmails)

			authed.GET("/logs", handler.ListLogs)
			authed.GET("/logs/export", handler.ExportLogs)
			authed.GET("/stats", handler.Stats)

			authed.GET("/settings/email", handler.GetEmailConfig)
			authed.POST("/settings/email", handler.UpdateEmailConfig)
			authed.POST("/settings/email/test", handler.SendTestEmail)
		}
	}
}

// NewRouter builds the engine with the standard middleware chain.
func NewRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(CORSMiddleware(allowedOrigins))

	SetupRoutes(router, handler)
	return router
}
