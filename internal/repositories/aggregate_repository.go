package repositories

import (
	"inkblog/internal/models"

	"gorm.io/gorm"
)

// Tally is the like and dislike count of one comment.
type Tally struct {
	Likes    int64
	Dislikes int64
}

// AggregateRepository 批量统计：一页评论只发固定数量的 GROUP BY 查询
type AggregateRepository struct {
	db *gorm.DB
}

func (r *AggregateRepository) ReplyCounts(ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ParentID string
		Total    int64
	}
	err := r.db.Model(&models.Comment{}).
		Select("parent_id, COUNT(*) AS total").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ParentID] = row.Total
	}
	return out, nil
}

func (r *AggregateRepository) ReactionCounts(ids []string) (map[string]Tally, error) {
	out := make(map[string]Tally, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		CommentID string
		Likes     int64
		Dislikes  int64
	}
	err := r.db.Model(&models.Reaction{}).
		Select("comment_id, "+
			"SUM(CASE WHEN type = ? THEN 1 ELSE 0 END) AS likes, "+
			"SUM(CASE WHEN type = ? THEN 1 ELSE 0 END) AS dislikes",
			models.ReactionLike, models.ReactionDislike).
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CommentID] = Tally{Likes: row.Likes, Dislikes: row.Dislikes}
	}
	return out, nil
}

// ViewerReactions returns the reaction userID holds on each of ids, if any.
func (r *AggregateRepository) ViewerReactions(userID uint, ids []string) (map[string]models.ReactionType, error) {
	out := make(map[string]models.ReactionType)
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	var rows []models.Reaction
	err := r.db.Select("comment_id", "type").
		Where("user_id = ? AND comment_id IN ?", userID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CommentID] = row.Type
	}
	return out, nil
}
