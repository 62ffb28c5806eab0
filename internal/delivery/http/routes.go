package http

import (
	"github.com/gin-gonic/gin"
	"github.com/skinlens/backend/config"
)

// multipartOverhead leaves room for form boundaries around an upload
const multipartOverhead = 1 << 20

// SetupRouter creates and configures the Gin router. A nil limiter turns
// rate limiting off.
func SetupRouter(cfg *config.Config, handler *Handler, limiter *IPRateLimiter) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = handler.maxUploadBytes

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(limiter))
	v1.Use(BodyLimitMiddleware(handler.maxUploadBytes + multipartOverhead))
	{
		ingredients := v1.Group("/ingredients")
		{
			ingredients.POST("/normalize", handler.NormalizeIngredients)
			ingredients.POST("/extract", handler.ExtractIngredients)
		}

		analyses := v1.Group("/analyses")
		{
			analyses.POST("", handler.CreateAnalysis)
			analyses.POST("/image", handler.CreateImageAnalysis)
			analyses.GET("/:id", handler.GetAnalysis)
			analyses.GET("/:id/csv", handler.DownloadCSV)
			analyses.POST("/:id/export", handler.ExportAnalysis)
		}
	}

	return router
}
