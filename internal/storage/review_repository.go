package storage

import (
	"context"

	"gorm.io/gorm"

	"cineverse/internal/models"
)

// ReviewRepository defines the interface for review data operations.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	// ListByAuthor returns the author's reviews newest-first with films preloaded.
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Review, error)
	// ListAll returns every review newest-first with film (incl. categories),
	// author and comments preloaded. Filtering happens in the service layer.
	ListAll(ctx context.Context) ([]models.Review, error)
}

type gormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GORM-based ReviewRepository.
func NewGormReviewRepository(db *gorm.DB) ReviewRepository {
	return &gormReviewRepository{db: db}
}

// Create creates a new review record in the database.
func (r *gormReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// GetByID retrieves a review with its film and author preloaded.
func (r *gormReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Preload("Film").
		Preload("Author").
		First(&review, id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListByAuthor retrieves all reviews by the given author, newest first.
func (r *gormReviewRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Film").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// ListAll retrieves every review for the feed, newest first.
func (r *gormReviewRepository) ListAll(ctx context.Context) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Film").
		Preload("Film.Categories").
		Preload("Author").
		Preload("Comments").
		Preload("Comments.Author").
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}
