package services

import (
	"context"
	"inkblog/internal/events"
	"inkblog/internal/metrics"
	"inkblog/internal/models"
	"inkblog/internal/repositories"

	"go.uber.org/zap"
)

// ReactionState is where a (user, comment) pair ends up after a toggle.
type ReactionState string

const (
	StateNone     ReactionState = "none"
	StateLiked    ReactionState = "like"
	StateDisliked ReactionState = "dislike"
)

func StateOf(r *models.Reaction) ReactionState {
	if r == nil {
		return StateNone
	}
	return ReactionState(r.Type)
}

// Like toggles the user's like on a comment. A nil reaction means the toggle
// removed an existing like.
func (s *CommentService) Like(ctx context.Context, userID uint, commentID string) (*models.Reaction, error) {
	return s.toggle(ctx, userID, commentID, models.ReactionLike)
}

// Dislike is Like for the dislike reaction.
func (s *CommentService) Dislike(ctx context.Context, userID uint, commentID string) (*models.Reaction, error) {
	return s.toggle(ctx, userID, commentID, models.ReactionDislike)
}

// toggle 状态机：
//
//	无     + want -> want   (insert)
//	相反   + want -> want   (upsert 改 type)
//	相同   + want -> 无     (delete)
//
// upsert 只在 type 不同时生效，影响 0 行说明已经是同一种反应，再删掉它。
// 两步在同一事务里，(user_id, comment_id) 主键兜底并发。
func (s *CommentService) toggle(ctx context.Context, userID uint, commentID string, want models.ReactionType) (*models.Reaction, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if !want.Valid() {
		return nil, invalid("Type", "unknown reaction")
	}

	var (
		out    *models.Reaction
		postID uint
	)
	now := s.clock()
	err := s.store.Begin(ctx, func(tx *repositories.Store) error {
		c, err := tx.Comments().FindByID(commentID)
		if err != nil {
			return notFound("comment", err)
		}
		postID = c.PostID

		applied, err := tx.Reactions().Apply(userID, commentID, want, now)
		if err != nil {
			return notFound("comment", err)
		}
		if applied {
			out, err = tx.Reactions().Find(userID, commentID)
			return err
		}
		_, err = tx.Reactions().Remove(userID, commentID, want)
		return err
	})
	if err != nil {
		return nil, err
	}

	state := StateOf(out)
	result := "applied"
	if out == nil {
		result = "removed"
	}
	metrics.ReactionToggles.WithLabelValues(string(want), result).Inc()
	s.log.Debug("reaction toggled",
		zap.String("comment_id", commentID),
		zap.Uint("user_id", userID),
		zap.String("state", string(state)),
	)
	s.publish(ctx, events.Event{
		Type:      events.TypeReactionToggled,
		CommentID: commentID,
		PostID:    postID,
		UserID:    userID,
		State:     string(state),
		At:        now,
	})
	return out, nil
}
