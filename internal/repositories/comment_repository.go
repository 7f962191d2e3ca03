package repositories

import (
	"inkblog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope selects a list of comments: the top-level comments of a post when
// ParentID is nil, otherwise the replies under ParentID.
type Scope struct {
	PostID   uint
	ParentID *string
}

type CommentRepository struct {
	db *gorm.DB
}

func (r *CommentRepository) Insert(c *models.Comment) error {
	return r.db.Omit(clause.Associations).Create(c).Error
}

func (r *CommentRepository) FindByID(id string) (*models.Comment, error) {
	var c models.Comment
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOwned loads a comment only if userID authored it.
func (r *CommentRepository) FindOwned(id string, userID uint) (*models.Comment, error) {
	var c models.Comment
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepository) ReplyIDs(parentID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.Comment{}).
		Where("parent_id = ?", parentID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *CommentRepository) DeleteByIDs(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Where("id IN ?", ids).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

func (r *CommentRepository) scoped(scope Scope) *gorm.DB {
	q := r.db.Model(&models.Comment{}).Where("post_id = ?", scope.PostID)
	if scope.ParentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *scope.ParentID)
}

// Page returns up to limit comments of scope in (updated_at DESC, id DESC)
// order, starting strictly after the given cursor when one is set.
func (r *CommentRepository) Page(scope Scope, after *models.Cursor, limit int) ([]models.Comment, error) {
	q := r.scoped(scope)
	if after != nil {
		q = q.Where("(updated_at < ? OR (updated_at = ? AND id < ?))", after.UpdatedAt, after.UpdatedAt, after.ID)
	}
	var out []models.Comment
	err := q.Order("updated_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *CommentRepository) Count(scope Scope) (int64, error) {
	var n int64
	err := r.scoped(scope).Count(&n).Error
	return n, err
}
