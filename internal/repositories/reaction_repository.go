package repositories

import (
	"inkblog/internal/models"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository struct {
	db *gorm.DB
}

// Apply writes a reaction of type t unless the user already holds exactly
// that reaction. It reports whether a row was inserted or flipped; false
// means the same reaction was already in place and nothing changed.
func (r *ReactionRepository) Apply(userID uint, commentID string, t models.ReactionType, now time.Time) (bool, error) {
	row := models.Reaction{
		UserID:    userID,
		CommentID: commentID,
		Type:      t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "comment_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"type":       t,
			"updated_at": now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Table: "reactions", Name: "type"}, Value: t},
		}},
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Remove deletes the user's reaction on the comment if it is of type t.
func (r *ReactionRepository) Remove(userID uint, commentID string, t models.ReactionType) (int64, error) {
	res := r.db.Where("user_id = ? AND comment_id = ? AND type = ?", userID, commentID, t).
		Delete(&models.Reaction{})
	return res.RowsAffected, res.Error
}

func (r *ReactionRepository) Find(userID uint, commentID string) (*models.Reaction, error) {
	var out models.Reaction
	if err := r.db.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReactionRepository) DeleteByComments(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Where("comment_id IN ?", ids).Delete(&models.Reaction{})
	return res.RowsAffected, res.Error
}
