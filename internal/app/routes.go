package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contextlens/core/internal/modules/analysis"
	"github.com/contextlens/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "contextlens-core",
		"version": "1.0.0",
	}

	api := r.Group(apiPrefix)

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/health", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": gin.H{
				"timestamp": uptimeMs,
				"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
			},
			"jobs": a.sched.List(),
		})
	})

	analysis.NewHandler(a.orch).RegisterRoutes(api)
}
