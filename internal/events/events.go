// Package events publishes comment and reaction changes for downstream consumers.
package events

import (
	"context"
	"time"
)

const (
	TypeCommentCreated  = "comment.created"
	TypeCommentDeleted  = "comment.deleted"
	TypeReactionToggled = "reaction.toggled"
)

type Event struct {
	Type      string    `json:"type"`
	CommentID string    `json:"comment_id"`
	PostID    uint      `json:"post_id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	UserID    uint      `json:"user_id"`
	State     string    `json:"state,omitempty"`
	Cascade   []string  `json:"cascade,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
