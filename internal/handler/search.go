package handler

import (
	"context"
	"net/http"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"

	"github.com/gin-gonic/gin"
)

// Searcher answers natural-language listing queries
type Searcher interface {
	Search(ctx context.Context, query string) (*model.SearchResponse, error)
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService Searcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService Searcher) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, validationResponse("Invalid request: "+err.Error()))
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), req.Query)
	if err != nil {
		status := apperror.HTTPStatus(err)
		if status == http.StatusBadRequest {
			c.JSON(status, validationResponse(err.Error()))
			return
		}
		c.JSON(status, model.ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Options handles the CORS preflight for /api/search
func (h *SearchHandler) Options(c *gin.Context) {
	setCORSHeaders(c)
	c.Status(http.StatusOK)
}

// setCORSHeaders writes the permissive headers browsers expect on preflight
func setCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-Info, Apikey")
}

func validationResponse(msg string) model.SearchResponse {
	return model.SearchResponse{
		Success: false,
		Query:   "",
		Results: []model.ListingRecord{},
		Count:   0,
		Error:   msg,
	}
}
