package storage

import (
	"context"

	"gorm.io/gorm"

	"cineverse/internal/models"
)

// CommentRepository defines the interface for review comment data operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.ReviewComment) error
	// ListByReview returns a review's comments in insertion order.
	ListByReview(ctx context.Context, reviewID uint) ([]models.ReviewComment, error)
}

type gormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GORM-based CommentRepository.
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

// Create creates a new comment record in the database.
func (r *gormCommentRepository) Create(ctx context.Context, comment *models.ReviewComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListByReview retrieves all comments for a review, oldest first.
// 倒序展示是前端的事，存储层保留插入顺序。
func (r *gormCommentRepository) ListByReview(ctx context.Context, reviewID uint) ([]models.ReviewComment, error) {
	var comments []models.ReviewComment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("review_id = ?", reviewID).
		// id 作为次序键，同一时刻写入的评论也保持插入顺序
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}
