package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_insight_backend/services"
)

// SearchController handles ticker autocomplete requests
type SearchController struct {
	search *services.SearchService
}

// NewSearchController creates a new search controller
func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

// SearchTickers searches tickers by code or company name
// GET /api/v1/search?q=sams
func (sc *SearchController) SearchTickers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query required"})
		return
	}

	hits := sc.search.Search(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"data": hits})
}
