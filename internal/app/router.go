package app

import (
	"quizhub_backend/docs"
	"quizhub_backend/internal/config"
	"quizhub_backend/internal/middleware"
	"quizhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(api, c, cfg)

	// 2. 需要授权的路由
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerAttemptRoutes(authGroup, c)
	}
}

// handleBoth registers path with and without a trailing slash so neither
// form is answered with a redirect.
func handleBoth(r gin.IRoutes, method, path string, handlers ...gin.HandlerFunc) {
	r.Handle(method, path, handlers...)
	r.Handle(method, path+"/", handlers...)
}

func (a *App) registerPublicRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	api.GET("/health", c.health.HealthCheck)

	handleBoth(api, "GET", "/tests", c.test.List)
	handleBoth(api, "GET", "/tests/:id", c.test.Detail)

	// 预览允许匿名，携带 token 时也可识别用户
	handleBoth(api, "POST", "/attempts/preview", middleware.TryAuthMiddleware(cfg), c.attempt.Preview)
}

func (a *App) registerAttemptRoutes(r *gin.RouterGroup, c *controllers) {
	handleBoth(r, "POST", "/attempts", c.attempt.Submit)
	handleBoth(r, "GET", "/attempts/my", c.attempt.My)
	handleBoth(r, "GET", "/attempts/:id", c.attempt.Get)
}
