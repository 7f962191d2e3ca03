package handlers

import (
	"inkblog/internal/middleware"
	"inkblog/internal/services"
	"inkblog/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommentHandler struct {
	comments CommentEngine
	log      *zap.Logger
}

func NewCommentHandler(comments CommentEngine, log *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, log: log}
}

type createCommentRequest struct {
	Body     string  `json:"body"`
	ParentID *string `json:"parent_id"`
}

type listQuery struct {
	Cursor string `form:"cursor"`
	Limit  *int   `form:"limit"`
}

// List GET /api/posts/:postId/comments
func (h *CommentHandler) List(c *gin.Context) {
	h.list(c, nil)
}

// ListReplies GET /api/posts/:postId/comments/:commentId/replies
func (h *CommentHandler) ListReplies(c *gin.Context) {
	parentID := c.Param("commentId")
	h.list(c, &parentID)
}

func (h *CommentHandler) list(c *gin.Context, parentID *string) {
	postID, ok := utils.ParseID(c.Param("postId"))
	if !ok {
		badRequest(c, "invalid post id")
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: limit must be a number")
		return
	}

	page, err := h.comments.List(c.Request.Context(), services.ListInput{
		ViewerID: middleware.CurrentUserID(c),
		PostID:   postID,
		ParentID: parentID,
		Cursor:   q.Cursor,
		Limit:    q.Limit,
	})
	if err != nil {
		RenderError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create POST /api/posts/:postId/comments
func (h *CommentHandler) Create(c *gin.Context) {
	postID, ok := utils.ParseID(c.Param("postId"))
	if !ok {
		badRequest(c, "invalid post id")
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), services.CreateInput{
		AuthorID:       middleware.CurrentUserID(c),
		PostID:         postID,
		ParentID:       req.ParentID,
		Body:           req.Body,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		RenderError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Get GET /api/comments/:commentId
func (h *CommentHandler) Get(c *gin.Context) {
	view, err := h.comments.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("commentId"))
	if err != nil {
		RenderError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete DELETE /api/comments/:commentId
func (h *CommentHandler) Delete(c *gin.Context) {
	deleted, err := h.comments.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("commentId"))
	if err != nil {
		RenderError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}
