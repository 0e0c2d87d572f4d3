package services

import (
	"context"
	"fmt"
	"testing"

	"cineverse/internal/config"
	"cineverse/internal/models"
	"cineverse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CommentServiceTestSuite 覆盖影评评论的发布与列表。
type CommentServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service CommentService
	ctx     context.Context
	author  *models.User
	review  *models.Review
}

func (suite *CommentServiceTestSuite) SetupTest() {
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

	userRepo := storage.NewGormUserRepository(db)
	reviewRepo := storage.NewGormReviewRepository(db)
	suite.service = NewCommentService(storage.NewGormCommentRepository(db), reviewRepo, userRepo, nil, config.KafkaConfig{})

	suite.author = &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", DisplayName: "alice"}
	require.NoError(suite.T(), db.Create(suite.author).Error)

	film := &models.Film{Title: "Arrival", Year: 2016}
	require.NoError(suite.T(), db.Create(film).Error)
	suite.review = &models.Review{
		FilmID: film.ID, AuthorID: suite.author.ID,
		Scenario: 5, Music: 4, SpecialEffects: 4,
	}
	require.NoError(suite.T(), db.Create(suite.review).Error)
}

func (suite *CommentServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *CommentServiceTestSuite) TestCreateAndListInInsertionOrder() {
	t := suite.T()
	bob := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", DisplayName: "bob"}
	require.NoError(t, suite.db.Create(bob).Error)

	for i := 1; i <= 3; i++ {
		_, err := suite.service.CreateComment(suite.ctx, bob.ID, suite.review.ID, fmt.Sprintf("第 %d 条", i))
		require.NoError(t, err)
	}

	comments, err := suite.service.ListComments(suite.ctx, suite.review.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, fmt.Sprintf("第 %d 条", i), comments[i-1].Content)
	}
	assert.Equal(t, "bob", comments[0].Author.Username)
}

func (suite *CommentServiceTestSuite) TestEmptyContentRejected() {
	t := suite.T()
	_, err := suite.service.CreateComment(suite.ctx, suite.author.ID, suite.review.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyComment)
}

func (suite *CommentServiceTestSuite) TestCommentOnMissingReview() {
	t := suite.T()
	_, err := suite.service.CreateComment(suite.ctx, suite.author.ID, 9999, "不错")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestCommentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CommentServiceTestSuite))
}
