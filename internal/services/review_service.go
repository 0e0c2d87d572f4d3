package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"cineverse/internal/models"
	"cineverse/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrInvalidRating  = errors.New("评分必须在 1 到 5 之间")
	ErrEmptyTitle     = errors.New("电影标题不能为空")
	ErrReviewNotFound = errors.New("影评不存在")
)

// CreateReviewInput 是发布影评需要的全部字段。
// Year 为 0 时默认取当前年份，Categories 里未知的分类名会被忽略。
type CreateReviewInput struct {
	Title          string
	Year           int
	Categories     []string
	Scenario       int
	Music          int
	SpecialEffects int
	Opinion        string
}

// FeedFilter describes the in-memory filters applied to the fetched feed.
// Zero values mean "no filter" for the corresponding dimension.
type FeedFilter struct {
	CategoryID        uint
	MinScenario       int
	MinMusic          int
	MinSpecialEffects int
	MinYear           int
	MaxYear           int
}

// ReviewService 定义了影评和 feed 相关服务的接口。
type ReviewService interface {
	// CreateReview 发布一条影评。同名电影 (不区分大小写) 复用，否则隐式创建。
	CreateReview(ctx context.Context, authorID uint, input CreateReviewInput) (*models.Review, error)
	GetReview(ctx context.Context, reviewID uint) (*models.Review, error)
	// ListByAuthor 返回作者的全部影评，按创建时间倒序。可见性由调用方决定。
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Review, error)
	// Feed 一次取回全部影评 (倒序、带电影/作者/评论)，再在内存里过滤。
	Feed(ctx context.Context, filter FeedFilter) ([]models.Review, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type reviewService struct {
	reviewRepo storage.ReviewRepository
	filmRepo   storage.FilmRepository
}

// NewReviewService 创建一个新的 ReviewService 实例。
func NewReviewService(reviewRepo storage.ReviewRepository, filmRepo storage.FilmRepository) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		filmRepo:   filmRepo,
	}
}

// CreateReview validates the ratings, finds or creates the film, and inserts
// the review.
func (s *reviewService) CreateReview(ctx context.Context, authorID uint, input CreateReviewInput) (*models.Review, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	for _, rating := range []int{input.Scenario, input.Music, input.SpecialEffects} {
		if rating < models.RatingMin || rating > models.RatingMax {
			return nil, ErrInvalidRating
		}
	}

	film, err := s.findOrCreateFilm(ctx, title, input.Year, input.Categories)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		FilmID:         film.ID,
		AuthorID:       authorID,
		Scenario:       input.Scenario,
		Music:          input.Music,
		SpecialEffects: input.SpecialEffects,
		Opinion:        input.Opinion,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("创建影评失败: %w", err)
	}
	review.Film = *film

	log.Printf("Review %d created by user %d for film %d (%s)", review.ID, authorID, film.ID, film.Title)
	return review, nil
}

// findOrCreateFilm 按标题复用已有电影，不存在时隐式创建。
func (s *reviewService) findOrCreateFilm(ctx context.Context, title string, year int, categoryNames []string) (*models.Film, error) {
	film, err := s.filmRepo.FindByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("查找电影失败: %w", err)
	}
	if film != nil {
		return film, nil
	}

	if year == 0 {
		year = time.Now().Year()
	}
	film = &models.Film{
		Title:     title,
		Year:      year,
		PosterURL: "https://via.placeholder.com/300x450?text=" + url.QueryEscape(title),
	}
	if err := s.filmRepo.Create(ctx, film); err != nil {
		return nil, fmt.Errorf("创建电影失败: %w", err)
	}

	if len(categoryNames) > 0 {
		categories, err := s.filmRepo.GetCategoriesByNames(ctx, categoryNames)
		if err != nil {
			// 分类是锦上添花，失败不影响电影创建
			log.Printf("Error resolving categories %v for film %d: %v", categoryNames, film.ID, err)
		} else if err := s.filmRepo.AttachCategories(ctx, film, categories); err != nil {
			log.Printf("Error attaching categories to film %d: %v", film.ID, err)
		}
	}

	log.Printf("Film %d (%s, %d) created implicitly", film.ID, film.Title, film.Year)
	return film, nil
}

// GetReview retrieves a single review with film and author.
func (s *reviewService) GetReview(ctx context.Context, reviewID uint) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("获取影评 %d 失败: %w", reviewID, err)
	}
	return review, nil
}

// ListByAuthor 返回作者的影评。
func (s *reviewService) ListByAuthor(ctx context.Context, authorID uint) ([]models.Review, error) {
	reviews, err := s.reviewRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的影评失败: %w", authorID, err)
	}
	return reviews, nil
}

// Feed fetches everything once and filters in memory.
func (s *reviewService) Feed(ctx context.Context, filter FeedFilter) ([]models.Review, error) {
	reviews, err := s.reviewRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取 feed 失败: %w", err)
	}

	filtered := make([]models.Review, 0, len(reviews))
	for i := range reviews {
		if filter.matches(&reviews[i]) {
			filtered = append(filtered, reviews[i])
		}
	}
	return filtered, nil
}

// ListCategories returns the category reference data.
func (s *reviewService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.filmRepo.ListCategories(ctx)
}

// matches reports whether the review passes every active filter dimension.
func (f FeedFilter) matches(review *models.Review) bool {
	if f.MinScenario > 0 && review.Scenario < f.MinScenario {
		return false
	}
	if f.MinMusic > 0 && review.Music < f.MinMusic {
		return false
	}
	if f.MinSpecialEffects > 0 && review.SpecialEffects < f.MinSpecialEffects {
		return false
	}
	if f.MinYear > 0 && review.Film.Year < f.MinYear {
		return false
	}
	if f.MaxYear > 0 && review.Film.Year > f.MaxYear {
		return false
	}
	if f.CategoryID > 0 {
		found := false
		for _, category := range review.Film.Categories {
			if category.ID == f.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
