package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter registers the orders routes. Middleware runs before every route.
func NewRouter(api *OrdersAPI, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.POST("/orders", api.SubmitOrder)
	v1.GET("/orders", api.ListOrders)
	v1.GET("/orders/:orderId", api.GetOrder)
	v1.POST("/orders/:orderId/complete", api.CompleteOrder)
	v1.POST("/orders/:orderId/cancel", api.CancelOrder)
	v1.GET("/products/:productId/stock", api.GetStock)
	return router
}
