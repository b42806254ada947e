package database

import (
	"github.com/memevote/backend/models"
	"gorm.io/gorm"
)

type CommentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) *CommentRepo {
	return &CommentRepo{db}
}

// Add inserts a new comment. The author must already exist.
func (r *CommentRepo) Add(comment *models.Comment) error {
	return r.db.Omit("User").Create(comment).Error
}

// FindByID returns a comment with its author loaded
func (r *CommentRepo) FindByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("User").First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// PageByMeme returns comments on memeID in insertion order, plus the total count.
func (r *CommentRepo) PageByMeme(memeID uint, offset, limit int) ([]models.Comment, int64, error) {
	var total int64
	if err := r.db.Model(&models.Comment{}).Where("meme_id = ?", memeID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := r.db.Preload("User").
		Where("meme_id = ?", memeID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error
	return comments, total, err
}

// RecentByMeme returns every comment on memeID, newest first
func (r *CommentRepo) RecentByMeme(memeID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Preload("User").
		Where("meme_id = ?", memeID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	return comments, err
}
