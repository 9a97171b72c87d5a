package router

import (
	"net/http"

	"claimflow/api"
	"claimflow/app"
	_ "claimflow/docs"
	"claimflow/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(a *app.App) *gin.Engine {
	cfg := a.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(a.Log))
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if sqlDB, err := a.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status})
	})

	authHandler := api.NewAuthHandler(a.Users, a.JWT, cfg.Server)
	claimHandler := api.NewClaimHandler(a.Claims, cfg.Server)
	userHandler := api.NewUserHandler(a.Users, cfg.Server)
	matrixHandler := api.NewMatrixHandler(a.Matrix, cfg.Server)
	exportHandler := api.NewExportHandler(a.Exporter, cfg.Server)

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", a.LoginLimiter.Middleware(), authHandler.Login)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
		}

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(a.JWT.Auth(a.Repo.Users))
		{
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.PUT("/auth/password", authHandler.ChangePassword)

			claims := authorized.Group("/claims")
			{
				claims.GET("", claimHandler.List)
				claims.POST("", claimHandler.Create)
				claims.GET("/:id", claimHandler.Get)
				claims.PUT("/:id/status", claimHandler.UpdateStatus)
				claims.DELETE("/:id", claimHandler.Delete)
			}

			admin := authorized.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/users", userHandler.List)
				admin.POST("/users", userHandler.Create)
				admin.PUT("/users/:id", userHandler.Update)
				admin.DELETE("/users/:id", userHandler.Delete)

				admin.GET("/matrix", matrixHandler.List)
				admin.POST("/matrix", matrixHandler.Upsert)
				admin.DELETE("/matrix/:id", matrixHandler.Delete)

				admin.GET("/claims/export", exportHandler.ExportClaims)
			}
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
