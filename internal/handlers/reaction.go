package handlers

import (
	"context"
	"inkblog/internal/middleware"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReactionHandler struct {
	comments CommentEngine
	log      *zap.Logger
}

func NewReactionHandler(comments CommentEngine, log *zap.Logger) *ReactionHandler {
	return &ReactionHandler{comments: comments, log: log}
}

// Like POST /api/comments/:commentId/like
func (h *ReactionHandler) Like(c *gin.Context) {
	h.toggle(c, h.comments.Like)
}

// Dislike POST /api/comments/:commentId/dislike
func (h *ReactionHandler) Dislike(c *gin.Context) {
	h.toggle(c, h.comments.Dislike)
}

func (h *ReactionHandler) toggle(c *gin.Context, fn func(context.Context, uint, string) (*models.Reaction, error)) {
	reaction, err := fn(c.Request.Context(), middleware.CurrentUserID(c), c.Param("commentId"))
	if err != nil {
		RenderError(c, h.log, err)
		return
	}
	// reaction 为 nil 表示这次操作取消了原有的反应
	c.JSON(http.StatusOK, gin.H{
		"reaction": reaction,
		"state":    services.StateOf(reaction),
	})
}
