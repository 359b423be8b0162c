package router

import (
	"github.com/droplog/internal/handler"
	"github.com/droplog/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 追踪器意图与读取接口
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/state", api.GetState)
		apiGroup.GET("/history", api.GetHistory)
		apiGroup.POST("/entries", api.AddEntry)
		apiGroup.PUT("/target", api.SetTarget)
		apiGroup.POST("/cup-sizes", api.CreateCupSize)
		apiGroup.PUT("/cup-sizes/selected", api.SetSelectedCup)
		apiGroup.DELETE("/cup-sizes/:id", api.DeleteCupSize)
	}

	return r
}
