package router

import (
	"github.com/gin-gonic/gin"

	"claimlens/internal/handler"
	"claimlens/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	corsOrigins []string,
	documentH *handler.DocumentHandler,
	reviewH *handler.ReviewHandler,
	exportH *handler.ExportHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Document routes
	documents := v1.Group("/documents")
	documents.POST("", documentH.Upload)
	documents.GET("", documentH.List)
	documents.GET("/:id", documentH.GetByID)
	documents.DELETE("/:id", documentH.Delete)
	documents.GET("/:id/download", documentH.GetDownloadURL)
	documents.POST("/:id/process", documentH.Process)
	documents.GET("/:id/extractions", documentH.ListExtractions)
	documents.GET("/:id/extractions/latest", documentH.GetLatestExtraction)

	// Review routes
	reviews := v1.Group("/reviews")
	reviews.GET("", reviewH.Queue)
	reviews.POST("/:id/approve", reviewH.Approve)
	reviews.POST("/:id/reject", reviewH.Reject)

	// Export routes
	exports := v1.Group("/exports")
	exports.GET("/documents.csv", exportH.ExportCSV)
	exports.GET("/documents.xlsx", exportH.ExportXLSX)

	return r
}
