package models

import (
	"time"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Reaction 每个用户对每条评论最多一条，联合主键保证
type Reaction struct {
	UserID    uint         `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CommentID string       `gorm:"primaryKey;size:36;index" json:"comment_id"`
	Comment   *Comment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Type      ReactionType `gorm:"type:varchar(10);not null" json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
