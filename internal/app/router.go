package app

import (
	"ai_tutor_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		// 知识点抽取
		api.POST("/knowledge/extract", c.knowledge.Extract)

		// 错题与知识点关联
		api.POST("/mistakes", c.mistake.Create)
		api.GET("/mistakes/:id", c.mistake.Get)
		api.POST("/mistakes/:id/associate", c.mistake.Associate)
		api.GET("/mistakes/:id/knowledge-points", c.mistake.KnowledgePoints)

		// 三段式复习
		api.POST("/review/start", c.review.Start)
		api.GET("/review/sessions/:id", c.review.GetState)
		api.POST("/review/sessions/:id/submit", c.review.Submit)
		api.POST("/review/mastery", c.review.UpdateMastery)

		// 知识图谱
		api.GET("/graph/recommendations", c.graph.Recommendations)
		api.GET("/graph/weak-chains", c.graph.WeakChains)
		api.GET("/graph/learning-context", c.graph.LearningContext)
		api.POST("/graph/snapshots", c.graph.CreateSnapshot)
		api.GET("/graph/snapshots/latest", c.graph.LatestSnapshot)
	}
}
