package routes

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"stock_insight_backend/config"
	"stock_insight_backend/controllers"
	"stock_insight_backend/services"
	"stock_insight_backend/services/marketdata"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, mongoClient *mongo.Client) {
	// Market data sources, dispatched by ticker market tag
	registry := marketdata.NewRegistry(
		marketdata.NewKRXClient(cfg.KRXBaseURL),
		marketdata.NewYahooClient(cfg.YahooBaseURL),
	)
	inference := services.NewInferenceClient(cfg.InferenceAPIURL)

	chartService := services.NewChartService(db, registry)
	predictionService := services.NewPredictionService(db, registry, inference)
	explanationService := services.NewExplanationService(db, registry, inference)
	newsService := services.NewNewsService(db, registry, services.NewYahooNewsClient(cfg.YahooBaseURL))
	searchService := services.NewSearchService(db, mongoClient)

	stockController := controllers.NewStockController(db, chartService, predictionService, explanationService, newsService)
	searchController := controllers.NewSearchController(searchService)

	// API v1 group
	api := router.Group("/api/v1")
	{
		api.GET("/search", searchController.SearchTickers)
		api.GET("/stock-info", stockController.GetStockInfo)

		stocks := api.Group("/stocks")
		{
			stocks.GET("/:code/chart", stockController.GetChart)
			stocks.GET("/:code/prediction", stockController.GetPrediction)
			stocks.GET("/:code/explanation", stockController.GetExplanation)
			stocks.GET("/:code/news", stockController.GetNews)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Stock Insight API is running",
		})
	})
}
