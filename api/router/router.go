package router

import (
	"contract-insight/api/handler"
	"contract-insight/api/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, contractH *handler.ContractHandler, uploadLimiter *middleware.UserRateLimiter) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		analysis := api.Group("/analysis")
		{
			analysis.POST("/normalize", handler.Normalize)
		}

		contracts := api.Group("/contracts", middleware.UserIdentity())
		{
			contracts.POST("/upload", uploadLimiter.Handler(), contractH.Upload)
			contracts.POST("/analyze", uploadLimiter.Handler(), contractH.Analyze)
			contracts.GET("", contractH.List)
			contracts.GET("/search", contractH.Search)
			contracts.GET("/:id", contractH.Get)
			contracts.DELETE("/:id", contractH.Delete)
		}
	}
}
