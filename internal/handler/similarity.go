package handler

import (
	"context"
	"net/http"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"

	"github.com/gin-gonic/gin"
)

// SimilarityFinder ranks listings by embedding similarity
type SimilarityFinder interface {
	Search(ctx context.Context, query string, topK int) ([]model.ScoredListing, error)
	Reindex(ctx context.Context) (int, error)
}

// SimilarityHandler handles embedding similarity requests
type SimilarityHandler struct {
	similarity SimilarityFinder
	maxTopK    int
}

// NewSimilarityHandler creates a new similarity handler
func NewSimilarityHandler(similarity SimilarityFinder, maxTopK int) *SimilarityHandler {
	if maxTopK <= 0 {
		maxTopK = 50
	}
	return &SimilarityHandler{similarity: similarity, maxTopK: maxTopK}
}

// Similar handles POST /api/similar
func (h *SimilarityHandler) Similar(c *gin.Context) {
	var req model.SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	if req.TopK > h.maxTopK {
		req.TopK = h.maxTopK
	}

	results, err := h.similarity.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		c.JSON(apperror.HTTPStatus(err), model.ErrorResponse{Error: err.Error()})
		return
	}
	if results == nil {
		results = []model.ScoredListing{}
	}

	c.JSON(http.StatusOK, model.SimilarResponse{
		Success: true,
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

// Reindex handles POST /api/similar/reindex
func (h *SimilarityHandler) Reindex(c *gin.Context) {
	indexed, err := h.similarity.Reindex(c.Request.Context())
	if err != nil {
		c.JSON(apperror.HTTPStatus(err), model.ErrorResponse{Error: "Reindex failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ReindexResponse{
		Success: true,
		Indexed: indexed,
		Message: "Similarity index rebuilt",
	})
}
