package services

import (
	"context"
	"inkblog/internal/models"
	"inkblog/internal/repositories"
)

type ListInput struct {
	ViewerID uint
	PostID   uint `validate:"required"`
	ParentID *string
	Cursor   string
	Limit    *int // nil selects the default page size
}

// Page is one page of a comment scope. NextCursor is nil on the last page.
type Page struct {
	Items      []models.CommentView `json:"items"`
	TotalCount int64                `json:"total_count"`
	NextCursor *string              `json:"next_cursor"`
}

// List pages through the top-level comments of a post, or through the
// replies of ParentID, newest first.
func (s *CommentService) List(ctx context.Context, in ListInput) (*Page, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}
	limit := s.limits.DefaultLimit
	if in.Limit != nil {
		limit = *in.Limit
	}
	if limit < 1 || limit > s.limits.MaxLimit {
		return nil, invalid("Limit", "out of range")
	}
	var after *models.Cursor
	if in.Cursor != "" {
		cur, err := s.cursors.Decode(in.Cursor)
		if err != nil {
			return nil, err
		}
		after = &cur
	}
	if in.ParentID != nil && *in.ParentID == "" {
		in.ParentID = nil
	}

	scope := repositories.Scope{PostID: in.PostID, ParentID: in.ParentID}
	page := &Page{Items: []models.CommentView{}}
	err := s.store.Snapshot(ctx, func(tx *repositories.Store) error {
		rows, err := tx.Comments().Page(scope, after, limit+1)
		if err != nil {
			return err
		}
		if len(rows) > limit {
			rows = rows[:limit]
			next := s.cursors.Encode(models.CursorOf(&rows[limit-1]))
			page.NextCursor = &next
		}

		if page.TotalCount, err = tx.Comments().Count(scope); err != nil {
			return err
		}
		if page.Items, err = decorate(tx, in.ViewerID, rows); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// decorate 计数全部在读取时从表里算出来，每页固定三条聚合查询
func decorate(tx *repositories.Store, viewerID uint, rows []models.Comment) ([]models.CommentView, error) {
	views := make([]models.CommentView, len(rows))
	if len(rows) == 0 {
		return views, nil
	}

	ids := make([]string, 0, len(rows))
	topLevel := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
		if !rows[i].IsReply() {
			topLevel = append(topLevel, rows[i].ID)
		}
	}

	agg := tx.Aggregates()
	replies, err := agg.ReplyCounts(topLevel)
	if err != nil {
		return nil, err
	}
	tallies, err := agg.ReactionCounts(ids)
	if err != nil {
		return nil, err
	}
	mine, err := agg.ViewerReactions(viewerID, ids)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		id := rows[i].ID
		views[i] = models.CommentView{
			Comment:      rows[i],
			ReplyCount:   replies[id],
			LikeCount:    tallies[id].Likes,
			DislikeCount: tallies[id].Dislikes,
		}
		if t, ok := mine[id]; ok {
			views[i].ViewerReaction = &t
		}
	}
	return views, nil
}
