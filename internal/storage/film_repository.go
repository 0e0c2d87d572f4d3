package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cineverse/internal/models"
)

// FilmRepository defines the interface for film and category data operations.
type FilmRepository interface {
	Create(ctx context.Context, film *models.Film) error
	GetByID(ctx context.Context, id uint) (*models.Film, error)
	// FindByTitle matches the title case-insensitively.
	// Returns nil, nil when no film with that title exists.
	FindByTitle(ctx context.Context, title string) (*models.Film, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoriesByNames(ctx context.Context, names []string) ([]*models.Category, error)
	AttachCategories(ctx context.Context, film *models.Film, categories []*models.Category) error
}

type gormFilmRepository struct {
	db *gorm.DB
}

// NewGormFilmRepository creates a new GORM-based FilmRepository.
func NewGormFilmRepository(db *gorm.DB) FilmRepository {
	return &gormFilmRepository{db: db}
}

// Create creates a new film record in the database.
func (r *gormFilmRepository) Create(ctx context.Context, film *models.Film) error {
	return r.db.WithContext(ctx).Create(film).Error
}

// GetByID retrieves a film with its categories preloaded.
func (r *gormFilmRepository) GetByID(ctx context.Context, id uint) (*models.Film, error) {
	var film models.Film
	err := r.db.WithContext(ctx).Preload("Categories").First(&film, id).Error
	if err != nil {
		return nil, err
	}
	return &film, nil
}

// FindByTitle retrieves a film by case-insensitive title match.
func (r *gormFilmRepository) FindByTitle(ctx context.Context, title string) (*models.Film, error) {
	var film models.Film
	err := r.db.WithContext(ctx).
		Where("LOWER(title) = LOWER(?)", title).
		First(&film).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 未找到同名电影不是错误，调用方会创建
		}
		return nil, err
	}
	return &film, nil
}

// ListCategories returns all categories ordered by name.
func (r *gormFilmRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

// GetCategoriesByNames retrieves categories whose names appear in the list.
// Unknown names are silently skipped.
func (r *gormFilmRepository) GetCategoriesByNames(ctx context.Context, names []string) ([]*models.Category, error) {
	var categories []*models.Category
	if len(names) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&categories).Error
	return categories, err
}

// AttachCategories links the given categories to the film through the
// film_categories join table.
func (r *gormFilmRepository) AttachCategories(ctx context.Context, film *models.Film, categories []*models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(film).Association("Categories").Append(categories)
}
