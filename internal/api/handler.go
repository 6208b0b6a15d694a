package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"ecommerce-datagen/internal/inventory"
	"ecommerce-datagen/internal/service"
	"ecommerce-datagen/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	ledger  inventory.Ledger
	summary atomic.Pointer[service.Summary]
}

// NewHandler creates a new HTTP handler
func NewHandler(ledger inventory.Ledger) *Handler {
	return &Handler{
		ledger: ledger,
	}
}

// SetSummary publishes the summary of a finished run and marks the service
// ready
func (h *Handler) SetSummary(s service.Summary) {
	h.summary.Store(&s)
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/summary", h.getSummary)
		v1.GET("/inventory/:product_id", h.getInventory)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once a run has finished
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.summary.Load() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "generating",
			"time":   time.Now().Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getSummary returns the summary of the last run
func (h *Handler) getSummary(c *gin.Context) {
	s := h.summary.Load()
	if s == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Generation still running",
		})
		return
	}
	c.JSON(http.StatusOK, s)
}

// getInventory returns the ledger snapshot of one product
func (h *Handler) getInventory(c *gin.Context) {
	productID := c.Param("product_id")

	snap, found, err := h.ledger.Lookup(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read inventory",
			"details": err.Error(),
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":  snap.ProductID,
		"category_id": snap.CategoryID,
		"stock":       snap.Stock,
		"is_active":   snap.Active,
		"price":       snap.Price,
		"available":   snap.Available(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
