package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stock_insight_backend/models"
	"stock_insight_backend/services"
)

// StockController handles chart, prediction, explanation and news requests
type StockController struct {
	db           *gorm.DB
	charts       *services.ChartService
	predictions  *services.PredictionService
	explanations *services.ExplanationService
	news         *services.NewsService
}

// NewStockController creates a new stock controller
func NewStockController(
	db *gorm.DB,
	charts *services.ChartService,
	predictions *services.PredictionService,
	explanations *services.ExplanationService,
	news *services.NewsService,
) *StockController {
	return &StockController{
		db:           db,
		charts:       charts,
		predictions:  predictions,
		explanations: explanations,
		news:         news,
	}
}

// GetChart returns the full cached series for a ticker
// GET /api/v1/stocks/:code/chart?interval=1
func (sc *StockController) GetChart(c *gin.Context) {
	code := c.Param("code")

	interval, err := strconv.Atoi(c.DefaultQuery("interval", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidInterval.Error()})
		return
	}

	points, err := sc.charts.GetChartData(c.Request.Context(), code, interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":   code,
		"interval": interval,
		"data":     points,
	})
}

// GetPrediction returns the cached or freshly computed forecast
// GET /api/v1/stocks/:code/prediction?horizon=7
func (sc *StockController) GetPrediction(c *gin.Context) {
	code := c.Param("code")
	horizon, err := strconv.Atoi(c.DefaultQuery("horizon", "7"))
	if err != nil || horizon < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be a positive integer"})
		return
	}

	result := sc.predictions.Run(c.Request.Context(), code, horizon)
	c.JSON(http.StatusOK, gin.H{
		"ticker":     code,
		"prediction": result,
	})
}

// GetExplanation returns the cached or freshly computed token importances
// GET /api/v1/stocks/:code/explanation?horizon=7
func (sc *StockController) GetExplanation(c *gin.Context) {
	code := c.Param("code")
	horizon, err := strconv.Atoi(c.DefaultQuery("horizon", "7"))
	if err != nil || horizon < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be a positive integer"})
		return
	}

	result := sc.explanations.Generate(c.Request.Context(), code, horizon)
	c.JSON(http.StatusOK, gin.H{
		"ticker":      code,
		"explanation": result,
	})
}

// GetNews returns the latest cached headlines for a ticker
// GET /api/v1/stocks/:code/news
func (sc *StockController) GetNews(c *gin.Context) {
	code := c.Param("code")

	items := sc.news.Recent(c.Request.Context(), code)
	c.JSON(http.StatusOK, gin.H{
		"ticker": code,
		"news":   items,
	})
}

// GetStockInfo assembles chart, news, prediction and explanation in one call
// GET /api/v1/stock-info?ticker=AAPL&horizon=7&includeNews=true&includeXAI=true
func (sc *StockController) GetStockInfo(c *gin.Context) {
	code := c.Query("ticker")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	horizon, err := strconv.Atoi(c.DefaultQuery("horizon", "7"))
	if err != nil || horizon < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be a positive integer"})
		return
	}

	includeNews := c.DefaultQuery("includeNews", "true") == "true"
	includeXAI := c.DefaultQuery("includeXAI", "true") == "true"

	var ticker models.Ticker
	if err := sc.db.Where("ticker_code = ?", code).First(&ticker).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticker not found"})
		return
	}

	ctx := c.Request.Context()

	chartData, err := sc.charts.GetChartData(ctx, code, 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	news := []services.NewsItem{}
	if includeNews {
		news = sc.news.Recent(ctx, code)
	}

	prediction := sc.predictions.Run(ctx, code, horizon)

	var explanation *services.ExplanationResult
	if includeXAI {
		result := sc.explanations.Generate(ctx, code, horizon)
		explanation = &result
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stock info fetched",
		"data": gin.H{
			"ticker":      code,
			"chartData":   chartData,
			"news":        news,
			"prediction":  prediction,
			"explanation": explanation,
		},
	})
}
