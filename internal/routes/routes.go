package routes

import (
	"cardkeeper-backend/internal/config"
	"cardkeeper-backend/internal/handlers"
	"cardkeeper-backend/internal/middleware"
	"cardkeeper-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(middleware.LoggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(60))

	// 已上传的名片图片和语音文件直接静态访问
	router.Static("/uploads", cfg.Storage.UploadPath)

	categoryService := services.NewCategoryService(db)
	cardService := services.NewCardService(db, categoryService)
	authService := services.NewAuthService(db, categoryService)
	storageService := services.NewStorageService(cfg.Storage)
	recognitionService := services.NewRecognitionService(cfg.Recognition)
	captureService := services.NewCaptureService(storageService, recognitionService, cardService, cfg.Capture.MaxVoiceSeconds)
	searchService := services.NewSearchService(cardService, categoryService, cfg.Search)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	cardHandler := handlers.NewCardHandler(cardService)
	captureHandler := handlers.NewCaptureHandler(captureService, categoryService)
	searchHandler := handlers.NewSearchHandler(searchService)

	api := router.Group("/api")

	public := api.Group("")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(db, cfg))
	{
		user := protected.Group("/auth")
		{
			user.GET("/me", authHandler.GetMe)
		}

		categories := protected.Group("/categories")
		{
			categories.GET("", categoryHandler.GetCategories)
			categories.POST("", categoryHandler.CreateCategory)
			categories.PUT("/:id", categoryHandler.UpdateCategory)
			categories.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		cards := protected.Group("/cards")
		{
			cards.GET("", cardHandler.GetCards)
			cards.POST("", cardHandler.CreateCard)
			cards.GET("/:id", cardHandler.GetCard)
			cards.PUT("/:id", cardHandler.UpdateCard)
			cards.POST("/:id/move", cardHandler.MoveCard)
			cards.DELETE("/:id", cardHandler.DeleteCard)
		}

		capture := protected.Group("/capture")
		{
			capture.POST("", captureHandler.Start)
			capture.GET("", captureHandler.GetDraft)
			capture.POST("/confirm", captureHandler.ConfirmPhoto)
			capture.POST("/voice", captureHandler.AttachVoice)
			capture.POST("/voice/decline", captureHandler.DeclineVoice)
			capture.PUT("/fields", captureHandler.UpdateFields)
			capture.POST("/save", captureHandler.Save)
			capture.DELETE("", captureHandler.Discard)
		}

		search := protected.Group("/search")
		{
			search.GET("", searchHandler.Search)
			search.GET("/live", searchHandler.SearchLive)
			search.GET("/history", searchHandler.GetHistory)
			search.DELETE("/history", searchHandler.DeleteHistory)
		}

		protected.GET("/stats", cardHandler.GetUserStats)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "服务运行正常",
		})
	})

	return router
}
