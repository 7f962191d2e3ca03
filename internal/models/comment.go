package models

import (
	"time"
)

// Comment 两级评论：ParentID 为空是顶级评论，否则是对顶级评论的回复
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36;index:idx_comments_scope,priority:4" json:"id"`
	PostID    uint      `gorm:"not null;index:idx_comments_scope,priority:1" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	ParentID  *string   `gorm:"size:36;index:idx_comments_scope,priority:2" json:"parent_id"` // Nullable for top-level comments
	Parent    *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index:idx_comments_scope,priority:3" json:"updated_at"`
}

func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// CommentView is a comment as served to a reader: counts are computed at read
// time and ViewerReaction is nil for anonymous readers or when they have not reacted.
type CommentView struct {
	Comment
	ReplyCount     int64         `json:"reply_count"`
	LikeCount      int64         `json:"like_count"`
	DislikeCount   int64         `json:"dislike_count"`
	ViewerReaction *ReactionType `json:"viewer_reaction"`
}
