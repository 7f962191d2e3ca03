package handlers

import (
	"context"
	"errors"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommentEngine is what the HTTP layer needs from the comment service.
type CommentEngine interface {
	Create(ctx context.Context, in services.CreateInput) (*models.Comment, error)
	Delete(ctx context.Context, requesterID uint, commentID string) (*models.Comment, error)
	List(ctx context.Context, in services.ListInput) (*services.Page, error)
	Get(ctx context.Context, viewerID uint, commentID string) (*models.CommentView, error)
	Like(ctx context.Context, userID uint, commentID string) (*models.Reaction, error)
	Dislike(ctx context.Context, userID uint, commentID string) (*models.Reaction, error)
}

// RenderError 把 service 错误翻译成 HTTP 状态码和 {"error","code"} 响应体
func RenderError(c *gin.Context, log *zap.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, services.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrInvalidNesting):
		status, code = http.StatusUnprocessableEntity, "invalid_nesting"
	case errors.Is(err, services.ErrRequestInFlight):
		status, code = http.StatusConflict, "request_in_flight"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "code": "validation_failed"})
}
