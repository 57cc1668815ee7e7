package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP, WebSocket, admin and metrics endpoints
func NewRouter(chatHandler *ChatHandler, dossierHandler *DossierHandler, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":     "TESS",
			"endpoint": "/ws",
		})
	})

	r.GET("/ws", chatHandler.WebSocket)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API routes
	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)
		api.GET("/tools", chatHandler.Tools)

		// Dossier administration
		api.GET("/dossiers", dossierHandler.ListDossiers)
		api.GET("/dossiers/:id", dossierHandler.GetDossier)
		api.DELETE("/dossiers/:id", dossierHandler.DeleteDossier)
		api.POST("/dossiers/cleanup", dossierHandler.Cleanup)
	}

	return r
}
