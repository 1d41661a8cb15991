package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes, all read-only
	v1 := router.Group("/api/v1")
	{
		// NFT endpoints. The static stats route wins over the :token_id parameter.
		v1.GET("/nfts", handler.ListNFTs)
		v1.GET("/nfts/stats", handler.GetStats)
		v1.GET("/nfts/:token_id", handler.GetNFT)

		// Transaction history
		v1.GET("/transactions", handler.ListTransactions)
		v1.GET("/transactions/:hash", handler.GetTransaction)

		// User aggregates
		v1.GET("/users/:address", handler.GetUser)
	}
}
