package router

import (
	"io/fs"
	"net/http"
	"time"

	"ledger/api"
	"ledger/config"
	"ledger/database"
	_ "ledger/docs"
	"ledger/middleware"
	"ledger/service"
	"ledger/web"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	store, err := service.NewFileStore(&cfg.Upload)
	if err != nil {
		return nil, err
	}
	emailService := service.NewEmailService(&cfg.Email)

	// 嵌入的静态文件 - 状态页
	staticFS, _ := fs.Sub(web.StaticFS, ".")
	r.GET("/", func(c *gin.Context) {
		content, err := fs.ReadFile(staticFS, "index.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "加载页面失败")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	})

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查：匿名可访问，带有效 token 时额外报告调用者身份
	r.GET("/health", middleware.OptionalAuth(), func(c *gin.Context) {
		sqlDB, err := database.DB.DB()
		dbStatus := "ok"
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "unavailable"
		}
		resp := gin.H{
			"status":   "ok",
			"mode":     cfg.Server.Mode,
			"database": dbStatus,
			"time":     time.Now().Format(time.RFC3339),
		}
		if identity, ok := middleware.GetIdentity(c); ok {
			resp["user"] = identity.Email
		}
		c.JSON(http.StatusOK, resp)
	})

	apiGroup := r.Group("/api")

	// 认证相关路由
	authHandler := api.NewAuthHandler(cfg)
	auth := apiGroup.Group("/auth")
	{
		// 登录限速：同一来源 15 分钟内最多 10 次尝试
		auth.POST("/login", middleware.LoginRateLimit(10, 15*time.Minute), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.Auth())
		{
			authed.GET("/me", authHandler.Me)
			authed.POST("/change-password", authHandler.ChangePassword)
		}
	}

	// 用户管理（仅管理员）
	userHandler := api.NewUserHandler(emailService)
	users := apiGroup.Group("/users")
	users.Use(middleware.Auth(), middleware.RequireAdmin())
	{
		users.GET("", userHandler.ListUsers)
		users.POST("", userHandler.CreateUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
		users.POST("/:id/reset-password", userHandler.ResetPassword)
	}

	// 档案
	profileHandler := api.NewProfileHandler()
	profiles := apiGroup.Group("/profiles")
	profiles.Use(middleware.Auth())
	{
		profiles.GET("", middleware.RequireAdminOrManager(), profileHandler.ListProfiles)
		profiles.GET("/:id", profileHandler.GetProfile)
		profiles.PUT("/:id", profileHandler.UpdateProfile)
	}

	// 类别：读操作对所有登录用户开放，写操作需要管理员或经理
	categoryHandler := api.NewCategoryHandler()
	categories := apiGroup.Group("/categories")
	categories.Use(middleware.Auth())
	{
		categories.GET("", categoryHandler.ListCategories)
		categories.GET("/:id", categoryHandler.GetCategory)

		writes := categories.Group("")
		writes.Use(middleware.RequireAdminOrManager())
		{
			writes.POST("", categoryHandler.CreateCategory)
			writes.PUT("/:id", categoryHandler.UpdateCategory)
			writes.DELETE("/:id", categoryHandler.DeleteCategory)
		}
	}

	// 子类别
	subcategoryHandler := api.NewSubcategoryHandler()
	subcategories := apiGroup.Group("/subcategories")
	subcategories.Use(middleware.Auth())
	{
		subcategories.GET("", subcategoryHandler.ListSubcategories)

		writes := subcategories.Group("")
		writes.Use(middleware.RequireAdminOrManager())
		{
			writes.POST("", subcategoryHandler.CreateSubcategory)
			writes.PUT("/:id", subcategoryHandler.UpdateSubcategory)
			writes.DELETE("/:id", subcategoryHandler.DeleteSubcategory)
		}
	}

	// 交易
	transactionHandler := api.NewTransactionHandler(store)
	statsHandler := api.NewStatsHandler()
	exportHandler := api.NewExportHandler()
	transactions := apiGroup.Group("/transactions")
	transactions.Use(middleware.Auth())
	{
		transactions.GET("", transactionHandler.ListTransactions)
		transactions.GET("/stats/summary", statsHandler.Summary)
		transactions.GET("/export/excel", exportHandler.ExportExcel)
		transactions.GET("/export/csv", exportHandler.ExportCSV)
		transactions.GET("/export/json", exportHandler.ExportJSON)
		transactions.GET("/:id", transactionHandler.GetTransaction)

		writes := transactions.Group("")
		writes.Use(middleware.RequireAdminOrManager())
		{
			writes.POST("", transactionHandler.CreateTransaction)
			writes.PUT("/:id", transactionHandler.UpdateTransaction)
			writes.DELETE("/:id", transactionHandler.DeleteTransaction)
			writes.DELETE("/:id/file", transactionHandler.DeleteTransactionReceipt)
		}
	}

	// 票据文件
	fileHandler := api.NewFileHandler(store)
	files := apiGroup.Group("/files")
	files.Use(middleware.Auth())
	{
		// 查看对所有登录用户开放，供前端内嵌展示票据
		files.GET("/view/:filename", fileHandler.View)

		managed := files.Group("")
		managed.Use(middleware.RequireAdminOrManager())
		{
			managed.POST("/upload", fileHandler.Upload)
			managed.GET("", fileHandler.List)
			managed.GET("/:filename", fileHandler.Get)
			managed.DELETE("/:filename", fileHandler.Delete)
		}
	}

	return r, nil
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
