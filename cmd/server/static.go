package main

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupStaticFiles serves a built frontend from dir with SPA fallback to
// index.html. Unknown /api paths always get a JSON 404.
func setupStaticFiles(router *gin.Engine, dir string, logger *zap.Logger) {
	if dir == "" {
		logger.Info("no STATIC_DIR configured, serving API only")
		router.NoRoute(apiNotFound)
		return
	}

	logger.Info("serving frontend assets", zap.String("dir", dir))
	router.NoRoute(spaHandler(os.DirFS(dir)))
}

func apiNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
}

func spaHandler(assets fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if urlPath == "/api" || strings.HasPrefix(urlPath, "/api/") {
			apiNotFound(c)
			return
		}

		cleanPath := path.Clean(urlPath)
		if cleanPath == "/" {
			cleanPath = "index.html"
		} else {
			cleanPath = strings.TrimPrefix(cleanPath, "/")
		}

		if content, ok := readFile(assets, cleanPath); ok {
			c.Data(http.StatusOK, contentType(cleanPath), content)
			return
		}

		// File not found, serve index.html for SPA routing
		content, ok := readFile(assets, "index.html")
		if !ok {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	}
}

func readFile(assets fs.FS, name string) ([]byte, bool) {
	file, err := assets.Open(name)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		return nil, false
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, false
	}
	return content, true
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "text/html; charset=utf-8"
}
