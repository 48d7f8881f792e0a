package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeEditor/internal/ai"
	"resumeEditor/internal/api/middleware"
)

// Deps 汇总路由需要的依赖。RedisClient 与 Generator 可以为空。
type Deps struct {
	// Resumes 同时服务 REST 处理器与编辑会话。
	Resumes     ResumeService
	Generator   ai.SummaryGenerator
	Auth        middleware.TokenVerifier
	RedisClient *redis.Client
	Logger      *slog.Logger
	WS          WsConfig
}

// RegisterRoutes 注册 API 路由，返回的 WsHandler 用于关闭时排空编辑会话。
func RegisterRoutes(router *gin.Engine, d Deps) *WsHandler {
	resumeHandler := NewResumeHandler(d.Resumes)
	summaryHandler := NewSummaryHandler(d.Generator)
	wsHandler := NewWsHandler(d.RedisClient, d.Auth, d.Resumes, d.Generator, d.Logger, d.WS)
	authMiddleware := middleware.AuthMiddleware(d.Auth)

	v1 := router.Group("/v1")
	{
		// WebSocket 通过首条消息鉴权，不走 Authorization 头。
		v1.GET("/editor/ws", wsHandler.HandleConnection)

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.POST("/generate-summary", summaryHandler.GenerateSummary)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.GET("/:id/preview", resumeHandler.PreviewResume)
			resumeGroup.POST("/:id/print", resumeHandler.PrintResume)
			resumeGroup.GET("/:id/print-link", resumeHandler.GetPrintLink)
		}
	}
	return wsHandler
}
