package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cineverse/internal/models"
)

// FriendshipRepository defines the interface for friendship edge data operations.
// Edges are stored directed (requester/addressee); symmetric reads query both
// columns and leave normalization to the caller.
type FriendshipRepository interface {
	Create(ctx context.Context, edge *models.Friendship) error
	GetByID(ctx context.Context, edgeID uint) (*models.Friendship, error)
	// GetAcceptedEdges returns every accepted edge the profile appears on,
	// regardless of which side it occupies.
	GetAcceptedEdges(ctx context.Context, profileID uint) ([]models.Friendship, error)
	// FindEdgeBetween looks for an edge between the unordered pair in any
	// status, checking both orderings. Returns nil, nil when no edge exists.
	FindEdgeBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error)
	GetPendingForAddressee(ctx context.Context, addresseeID uint) ([]models.Friendship, error)
	UpdateStatus(ctx context.Context, edgeID uint, status models.FriendshipStatus) error
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GormFriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

// Create creates a new friendship edge in the database.
func (r *gormFriendshipRepository) Create(ctx context.Context, edge *models.Friendship) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

// GetByID retrieves a friendship edge by its ID.
func (r *gormFriendshipRepository) GetByID(ctx context.Context, edgeID uint) (*models.Friendship, error) {
	var edge models.Friendship
	err := r.db.WithContext(ctx).First(&edge, edgeID).Error
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// GetAcceptedEdges retrieves all accepted edges touching the given profile.
func (r *gormFriendshipRepository) GetAcceptedEdges(ctx context.Context, profileID uint) ([]models.Friendship, error) {
	var edges []models.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
			profileID, profileID, models.FriendshipStatusAccepted).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// FindEdgeBetween checks both orderings of the pair for an edge in any status.
func (r *gormFriendshipRepository) FindEdgeBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	var edge models.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userID1, userID2, userID2, userID1).
		First(&edge).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 没有边不算错误
		}
		return nil, err
	}
	return &edge, nil
}

// GetPendingForAddressee retrieves all pending edges addressed to the given user.
func (r *gormFriendshipRepository) GetPendingForAddressee(ctx context.Context, addresseeID uint) ([]models.Friendship, error) {
	var edges []models.Friendship
	err := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", addresseeID, models.FriendshipStatusPending).
		Find(&edges).Error
	return edges, err
}

// UpdateStatus updates only the status field of the given edge.
func (r *gormFriendshipRepository) UpdateStatus(ctx context.Context, edgeID uint, status models.FriendshipStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ?", edgeID).
		Update("status", status).Error
}
