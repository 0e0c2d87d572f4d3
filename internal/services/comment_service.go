package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"cineverse/internal/config"
	"cineverse/internal/cvtypes"
	"cineverse/internal/kafka"
	"cineverse/internal/models"
	"cineverse/internal/storage"

	"gorm.io/gorm"
)

var ErrEmptyComment = errors.New("评论内容不能为空")

// CommentService 定义了影评评论相关服务的接口。
type CommentService interface {
	// CreateComment 在影评下追加一条评论，并通知影评作者 (自评除外)。
	CreateComment(ctx context.Context, authorID, reviewID uint, content string) (*models.ReviewComment, error)
	// ListComments 按插入顺序返回影评的全部评论。
	ListComments(ctx context.Context, reviewID uint) ([]models.ReviewComment, error)
}

type commentService struct {
	commentRepo storage.CommentRepository
	reviewRepo  storage.ReviewRepository
	userRepo    storage.UserRepository
	producer    kafka.MessageProducer
	kafkaCfg    config.KafkaConfig
}

// NewCommentService 创建一个新的 CommentService 实例。producer 可以为 nil。
func NewCommentService(
	commentRepo storage.CommentRepository,
	reviewRepo storage.ReviewRepository,
	userRepo storage.UserRepository,
	producer kafka.MessageProducer,
	kafkaCfg config.KafkaConfig,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		reviewRepo:  reviewRepo,
		userRepo:    userRepo,
		producer:    producer,
		kafkaCfg:    kafkaCfg,
	}
}

func (s *commentService) CreateComment(ctx context.Context, authorID, reviewID uint, content string) (*models.ReviewComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("获取影评 %d 失败: %w", reviewID, err)
	}

	comment := &models.ReviewComment{
		ReviewID: reviewID,
		AuthorID: authorID,
		Content:  content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("创建评论失败: %w", err)
	}

	// 通知影评作者，自己评论自己的影评不通知
	if review.AuthorID != authorID {
		s.notifyReviewAuthor(ctx, review, authorID, comment.ID)
	}
	return comment, nil
}

func (s *commentService) ListComments(ctx context.Context, reviewID uint) ([]models.ReviewComment, error) {
	comments, err := s.commentRepo.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("获取影评 %d 的评论失败: %w", reviewID, err)
	}
	return comments, nil
}

// notifyReviewAuthor publishes a best-effort notification event. Failures are
// logged and never surfaced to the commenter.
func (s *commentService) notifyReviewAuthor(ctx context.Context, review *models.Review, actorID, commentID uint) {
	if s.producer == nil {
		return
	}

	actorName := ""
	if actor, err := s.userRepo.GetBasicInfoByID(ctx, actorID); err == nil && actor != nil {
		actorName = actor.Username
	}

	event := cvtypes.NotificationEvent{
		Type:        cvtypes.ReviewCommentCreated,
		RecipientID: review.AuthorID,
		ActorID:     actorID,
		ActorName:   actorName,
		SubjectID:   review.ID,
		Timestamp:   time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling comment notification for review %d: %v", review.ID, err)
		return
	}
	key := []byte(strconv.FormatUint(uint64(review.AuthorID), 10))
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.NotificationsTopic, key, payload); err != nil {
		log.Printf("Error publishing comment notification for review %d: %v", review.ID, err)
	}
}
