package handler

import (
	"strings"

	"listingsearch/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Routes groups the handlers mounted on the router. Similarity is optional.
type Routes struct {
	Search         *SearchHandler
	Health         *HealthHandler
	Similarity     *SimilarityHandler
	AllowedOrigins string
}

// NewRouter builds the gin engine with middleware and API routes
func NewRouter(routes Routes, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(observability.RequestID())
	router.Use(observability.AccessLog(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(routes.AllowedOrigins)))

	router.GET("/version", routes.Health.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/search", routes.Search.Search)
		api.OPTIONS("/search", routes.Search.Options)
		api.GET("/health", routes.Health.Health)

		if routes.Similarity != nil {
			api.POST("/similar", routes.Similarity.Similar)
			api.POST("/similar/reindex", routes.Similarity.Reindex)
		}
	}

	return router
}

func corsConfig(allowed string) cors.Config {
	cfg := cors.DefaultConfig()
	if allowed == "" || allowed == "*" {
		cfg.AllowAllOrigins = true
	} else {
		for _, origin := range strings.Split(allowed, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
			}
		}
		cfg.AllowAllOrigins = len(cfg.AllowOrigins) == 0
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Content-Type", "Authorization", "X-Client-Info", "Apikey"}
	cfg.ExposeHeaders = []string{observability.RequestIDHeader}
	cfg.OptionsResponseStatusCode = 200
	return cfg
}
