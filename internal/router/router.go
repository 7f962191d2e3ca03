package router

import (
	"inkblog/internal/handlers"
	"inkblog/internal/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func RegisterRoutes(r *gin.Engine, comments handlers.CommentEngine, log *zap.Logger) {
	// Handlers
	commentHandler := handlers.NewCommentHandler(comments, log)
	reactionHandler := handlers.NewReactionHandler(comments, log)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/posts/:postId/comments", commentHandler.List)                           // 顶级评论分页
	api.GET("/posts/:postId/comments/:commentId/replies", commentHandler.ListReplies) // 回复分页
	api.GET("/comments/:commentId", commentHandler.Get)                               // 单条评论及计数

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts/:postId/comments", commentHandler.Create)        // 发表评论/回复
		authorized.DELETE("/comments/:commentId", commentHandler.Delete)         // 删除评论
		authorized.POST("/comments/:commentId/like", reactionHandler.Like)       // 点赞（再点一次取消）
		authorized.POST("/comments/:commentId/dislike", reactionHandler.Dislike) // 踩（再点一次取消）
	}
}
