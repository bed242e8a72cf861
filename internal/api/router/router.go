package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zaptalk/zaptalk-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "job-api-service",
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "job-api-service",
		})
	})

	// Initialize job handler
	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/imports - Enqueue a contact file import
		v1.POST("/imports", jobHandler.CreateImport)

		// POST /api/v1/reports - Enqueue a report or export
		v1.POST("/reports", jobHandler.CreateReport)

		campaigns := v1.Group("/campaigns")
		{
			// POST /api/v1/campaigns/:campaign_id/dispatch - Enqueue a campaign dispatch
			campaigns.POST("/:campaign_id/dispatch", jobHandler.DispatchCampaign)

			// POST /api/v1/campaigns/:campaign_id/test - Enqueue a single test message
			campaigns.POST("/:campaign_id/test", jobHandler.SendTestMessage)
		}

		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)
		}
	}

	return r
}
