package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cineverse/internal/models"
	"cineverse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ReviewServiceTestSuite 覆盖影评发布、电影复用和 feed 过滤。
type ReviewServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service ReviewService
	ctx     context.Context
	author  *models.User
}

func (suite *ReviewServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{}, &models.Film{}, &models.Category{},
		&models.Review{}, &models.ReviewComment{},
	))

	suite.db = db
	suite.ctx = context.Background()
	suite.service = NewReviewService(storage.NewGormReviewRepository(db), storage.NewGormFilmRepository(db))

	suite.author = &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		DisplayName:  "alice",
	}
	require.NoError(suite.T(), db.Create(suite.author).Error)
}

func (suite *ReviewServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *ReviewServiceTestSuite) createReview(title string, year, scenario, music, fx int, categories ...string) *models.Review {
	review, err := suite.service.CreateReview(suite.ctx, suite.author.ID, CreateReviewInput{
		Title:          title,
		Year:           year,
		Categories:     categories,
		Scenario:       scenario,
		Music:          music,
		SpecialEffects: fx,
		Opinion:        fmt.Sprintf("关于 %s 的看法", title),
	})
	require.NoError(suite.T(), err)
	return review
}

func (suite *ReviewServiceTestSuite) TestCreateReviewRatingBounds() {
	t := suite.T()
	for _, bad := range [][3]int{{0, 3, 3}, {3, 6, 3}, {3, 3, -1}} {
		_, err := suite.service.CreateReview(suite.ctx, suite.author.ID, CreateReviewInput{
			Title:          "Dune",
			Scenario:       bad[0],
			Music:          bad[1],
			SpecialEffects: bad[2],
		})
		assert.ErrorIs(t, err, ErrInvalidRating)
	}

	// 边界值 1 和 5 都合法
	_, err := suite.service.CreateReview(suite.ctx, suite.author.ID, CreateReviewInput{
		Title: "Dune", Scenario: 1, Music: 5, SpecialEffects: 3,
	})
	assert.NoError(t, err)
}

func (suite *ReviewServiceTestSuite) TestCreateReviewEmptyTitle() {
	t := suite.T()
	_, err := suite.service.CreateReview(suite.ctx, suite.author.ID, CreateReviewInput{
		Title: "   ", Scenario: 3, Music: 3, SpecialEffects: 3,
	})
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func (suite *ReviewServiceTestSuite) TestFilmReusedCaseInsensitively() {
	t := suite.T()
	first := suite.createReview("The Matrix", 1999, 5, 4, 5)
	second := suite.createReview("the matrix", 0, 3, 3, 3)

	assert.Equal(t, first.FilmID, second.FilmID)

	var count int64
	require.NoError(t, suite.db.Model(&models.Film{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func (suite *ReviewServiceTestSuite) TestImplicitFilmDefaults() {
	t := suite.T()
	review := suite.createReview("Oppenheimer", 0, 4, 5, 3)

	var film models.Film
	require.NoError(t, suite.db.First(&film, review.FilmID).Error)
	assert.Equal(t, time.Now().Year(), film.Year)
	assert.Contains(t, film.PosterURL, "via.placeholder.com")
}

func (suite *ReviewServiceTestSuite) TestFilmCategoriesAttached() {
	t := suite.T()
	require.NoError(t, suite.db.Create(&models.Category{Name: "Sci-Fi"}).Error)
	require.NoError(t, suite.db.Create(&models.Category{Name: "Drama"}).Error)

	review := suite.createReview("Interstellar", 2014, 5, 5, 5, "Sci-Fi", "Unknown")

	film, err := storage.NewGormFilmRepository(suite.db).GetByID(suite.ctx, review.FilmID)
	require.NoError(t, err)
	require.Len(t, film.Categories, 1) // 未知分类名被跳过
	assert.Equal(t, "Sci-Fi", film.Categories[0].Name)
}

func (suite *ReviewServiceTestSuite) TestFeedMinRatingFilters() {
	t := suite.T()
	suite.createReview("A", 2020, 5, 2, 2)
	suite.createReview("B", 2020, 2, 5, 2)
	suite.createReview("C", 2020, 4, 4, 4)

	reviews, err := suite.service.Feed(suite.ctx, FeedFilter{MinScenario: 4})
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	reviews, err = suite.service.Feed(suite.ctx, FeedFilter{MinScenario: 4, MinMusic: 4})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "C", reviews[0].Film.Title)
}

func (suite *ReviewServiceTestSuite) TestFeedYearRangeFilter() {
	t := suite.T()
	suite.createReview("Old", 1980, 3, 3, 3)
	suite.createReview("Mid", 2000, 3, 3, 3)
	suite.createReview("New", 2024, 3, 3, 3)

	reviews, err := suite.service.Feed(suite.ctx, FeedFilter{MinYear: 1990, MaxYear: 2010})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Mid", reviews[0].Film.Title)
}

func (suite *ReviewServiceTestSuite) TestFeedCategoryFilter() {
	t := suite.T()
	category := &models.Category{Name: "Horror"}
	require.NoError(t, suite.db.Create(category).Error)

	suite.createReview("Alien", 1979, 5, 4, 5, "Horror")
	suite.createReview("Amelie", 2001, 4, 5, 2)

	reviews, err := suite.service.Feed(suite.ctx, FeedFilter{CategoryID: category.ID})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Alien", reviews[0].Film.Title)
}

func (suite *ReviewServiceTestSuite) TestFeedUnfilteredReturnsAll() {
	t := suite.T()
	suite.createReview("A", 2020, 1, 1, 1)
	suite.createReview("B", 2021, 5, 5, 5)

	reviews, err := suite.service.Feed(suite.ctx, FeedFilter{})
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func (suite *ReviewServiceTestSuite) TestListByAuthor() {
	t := suite.T()
	other := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", DisplayName: "bob"}
	require.NoError(t, suite.db.Create(other).Error)

	suite.createReview("Mine", 2020, 3, 3, 3)
	_, err := suite.service.CreateReview(suite.ctx, other.ID, CreateReviewInput{
		Title: "Theirs", Scenario: 3, Music: 3, SpecialEffects: 3,
	})
	require.NoError(t, err)

	reviews, err := suite.service.ListByAuthor(suite.ctx, suite.author.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Mine", reviews[0].Film.Title)
}

func TestReviewServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceTestSuite))
}
