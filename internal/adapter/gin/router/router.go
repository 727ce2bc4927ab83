package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-doc-service/docs"
	"user-doc-service/internal/adapter/gin/handler"
	"user-doc-service/internal/adapter/gin/middleware"
	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/pkg/logger"
)

// Options carries what the router needs besides handlers.
type Options struct {
	ServiceName    string
	ServiceVersion string
	AllowOrigins   []string
	// TrustedProxies lists the peers whose X-Forwarded-For is believed. Empty trusts none.
	TrustedProxies []string
	RateLimiter    *ratelimit.Limiter
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	opts Options,
	log *zap.Logger,
) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", zap.Strings("trusted_proxies", opts.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	allowOrigins := opts.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", logger.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", logger.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": opts.ServiceName,
			"version": opts.ServiceVersion,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger/doc.json",
			"health":  "/health",
			"api":     "/v1/users",
		})
	})
	router.GET("/health", healthHandler.Health)

	// http-swagger serves doc.json from the swag registry
	router.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.InstanceName(docs.SwaggerInfo.InstanceName()),
	)))

	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimit(opts.RateLimiter, log))
	{
		users := v1.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	return router
}
