package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app/controller"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/middleware"
)

// Controllers groups every HTTP handler set the router mounts.
type Controllers struct {
	Auth          *controller.AuthController
	Establishment *controller.EstablishmentController
	Employee      *controller.EmployeeController
	Registration  *controller.RegistrationController
	Certificate   *controller.CertificateController
	Training      *controller.TrainingController
	Request       *controller.RequestController
	Admin         *controller.AdminController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	metrics        *metrics.Metrics
	config         *config.Config
}

func NewRouter(
	controllers Controllers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	m *metrics.Metrics,
	cfg *config.Config,
) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		metrics:        m,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()
	router.MaxMultipartMemory = r.config.Upload.MaxImportSize

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(r.metrics.Middleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	limits := r.config.RateLimit
	general := r.rateLimiter.Limit("general", limits.GeneralLimit)
	strict := r.rateLimiter.Limit("auth", limits.AuthLimit)

	api := router.Group("/api", general, r.authMiddleware.Authenticate())
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/bootstrap", strict, r.controllers.Auth.Bootstrap)
			auth.POST("/login", strict, r.controllers.Auth.Login)
			auth.POST("/logout", r.authMiddleware.RequireAuth(), r.controllers.Auth.Logout)
		}
		api.GET("/me", r.authMiddleware.RequireAuth(), r.controllers.Auth.Me)

		registration := api.Group("/registration", strict)
		{
			registration.GET("/:token", r.controllers.Registration.Lookup)
			registration.POST("/:token", r.controllers.Registration.Complete)
		}

		api.POST("/requests", strict, r.controllers.Request.Create)

		admin := api.Group("", r.authMiddleware.RequireAdmin())
		{
			admin.GET("/metrics", r.controllers.Admin.Summary)
			admin.GET("/audit-logs", r.controllers.Admin.AuditLogs)

			establishments := admin.Group("/establishments")
			{
				establishments.GET("", r.controllers.Establishment.List)
				establishments.POST("", r.controllers.Establishment.Create)
				establishments.GET("/:id", r.controllers.Establishment.Get)
				establishments.PUT("/:id", r.controllers.Establishment.Update)
				establishments.DELETE("/:id", r.controllers.Establishment.Archive)
				establishments.POST("/:id/restore", r.controllers.Establishment.Restore)
			}

			employees := admin.Group("/employees")
			{
				employees.GET("", r.controllers.Employee.List)
				employees.POST("", r.controllers.Employee.Create)
				employees.POST("/bulk", r.controllers.Employee.BulkCreate)
				employees.GET("/:id", r.controllers.Employee.Get)
				employees.PUT("/:id", r.controllers.Employee.Update)
				employees.DELETE("/:id", r.controllers.Employee.Archive)
				employees.POST("/:id/restore", r.controllers.Employee.Restore)
				employees.POST("/:id/transfer", r.controllers.Employee.Transfer)
				employees.GET("/:id/transfers", r.controllers.Employee.Transfers)
				employees.POST("/:id/send-training", r.controllers.Employee.SendTraining)
				employees.GET("/:id/training-results", r.controllers.Training.Results)
			}

			certificates := admin.Group("/certificates")
			{
				certificates.GET("", r.controllers.Certificate.List)
				certificates.POST("", r.controllers.Certificate.Issue)
				certificates.GET("/:id", r.controllers.Certificate.Get)
				certificates.GET("/:id/pdf", r.controllers.Certificate.PDF)
				certificates.GET("/:id/history", r.controllers.Certificate.History)
				certificates.POST("/:id/revoke", r.controllers.Certificate.Revoke)
			}

			requests := admin.Group("/requests")
			{
				requests.GET("", r.controllers.Request.List)
				requests.PATCH("/:id", r.controllers.Request.UpdateStatus)
			}

			admin.POST("/training/import", r.controllers.Training.Import)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
