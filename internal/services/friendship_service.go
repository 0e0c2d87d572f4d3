package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cineverse/internal/config"
	"cineverse/internal/cvtypes"
	"cineverse/internal/kafka"
	"cineverse/internal/models"
	"cineverse/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrSelfFriendRequest = errors.New("不能添加自己为好友")
	ErrFriendshipExists  = errors.New("你们之间已存在好友关系或待处理的请求")
	ErrAddresseeNotFound = errors.New("接收用户不存在")
	ErrEdgeNotFound      = errors.New("好友请求不存在")
	ErrNotAddressee      = errors.New("您不是此好友请求的接收者")
	ErrEdgeNotPending    = errors.New("该好友请求不是待处理状态")
)

// roundTripTimeout 限制解析好友关系的每一次存储往返。
// 超时走和其他存储错误相同的降级路径。
const roundTripTimeout = 5 * time.Second

// FriendshipService resolves the friend graph: effective friend sets,
// visibility decisions, mutual friends, and the request/respond lifecycle.
type FriendshipService interface {
	// EffectiveFriends returns the symmetric friend set of a profile, derived
	// from accepted edges regardless of which side initiated them.
	// The returned error is a non-fatal warning: on store failure the result
	// is an empty set, and callers rendering lists should log the warning and
	// show the empty set instead of failing the page.
	EffectiveFriends(ctx context.Context, profileID uint) ([]uint, error)
	// MutualFriends returns the intersection of two profiles' effective
	// friend sets, excluding both inputs, resolved to profile cards.
	// The two underlying reads are independent; an edge accepted between them
	// can skew one render. The error is a non-fatal warning as above.
	MutualFriends(ctx context.Context, viewerID, targetID uint) ([]*models.UserBasicInfo, error)
	// CanViewReviews decides whether the viewer may see the target's review
	// list. Public profiles are always visible; private profiles only to
	// their owner — an accepted friend of a private profile is still denied.
	// viewerID 0 means unauthenticated. Name, avatar and bio are not gated.
	CanViewReviews(viewerID uint, target *models.User) bool
	SendFriendRequest(ctx context.Context, requesterID, addresseeID uint) error
	RespondToFriendRequest(ctx context.Context, actorID, edgeID uint, accept bool) error
	ListPendingRequests(ctx context.Context, userID uint) ([]*models.PendingRequestWithRequester, error)
	ListFriends(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
}

type friendshipService struct {
	userRepo       storage.UserRepository
	friendshipRepo storage.FriendshipRepository
	producer       kafka.MessageProducer // 可以为 nil (例如测试里)，事件是尽力而为的
	kafkaCfg       config.KafkaConfig
}

// NewFriendshipService creates a new FriendshipService instance.
func NewFriendshipService(
	userRepo storage.UserRepository,
	friendshipRepo storage.FriendshipRepository,
	producer kafka.MessageProducer,
	kafkaCfg config.KafkaConfig,
) FriendshipService {
	return &friendshipService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		producer:       producer,
		kafkaCfg:       kafkaCfg,
	}
}

// EffectiveFriends fetches every accepted edge touching the profile and
// normalizes each one to the other party's ID.
func (s *friendshipService) EffectiveFriends(ctx context.Context, profileID uint) ([]uint, error) {
	rtCtx, cancel := context.WithTimeout(ctx, roundTripTimeout)
	defer cancel()

	edges, err := s.friendshipRepo.GetAcceptedEdges(rtCtx, profileID)
	if err != nil {
		log.Printf("Warning: fetching accepted edges for profile %d failed, degrading to empty set: %v", profileID, err)
		return []uint{}, fmt.Errorf("获取好友关系失败: %w", err)
	}

	// 边里自己的 ID 可能在任意一列上，先比较再取另一方。
	// 去重是防御性的：一对用户最多一条边，但调用方不该依赖这一点。
	seen := make(map[uint]struct{}, len(edges))
	friendIDs := make([]uint, 0, len(edges))
	for i := range edges {
		otherID := edges[i].OtherSide(profileID)
		if otherID == profileID {
			continue
		}
		if _, dup := seen[otherID]; dup {
			continue
		}
		seen[otherID] = struct{}{}
		friendIDs = append(friendIDs, otherID)
	}
	return friendIDs, nil
}

// CanViewReviews implements the visibility decision.
func (s *friendshipService) CanViewReviews(viewerID uint, target *models.User) bool {
	if target == nil {
		return false
	}
	if !target.IsPrivate {
		return true
	}
	return viewerID != 0 && viewerID == target.ID
}

// MutualFriends computes the intersection of two effective friend sets and
// resolves the result to profile cards.
func (s *friendshipService) MutualFriends(ctx context.Context, viewerID, targetID uint) ([]*models.UserBasicInfo, error) {
	viewerFriends, warn := s.EffectiveFriends(ctx, viewerID)
	if warn != nil {
		return []*models.UserBasicInfo{}, warn
	}

	var sharedIDs []uint
	if viewerID == targetID {
		// 看自己的主页时退化为自己的好友列表 (排除自己)。
		sharedIDs = excludeIDs(viewerFriends, viewerID)
	} else {
		targetFriends, warn := s.EffectiveFriends(ctx, targetID)
		if warn != nil {
			return []*models.UserBasicInfo{}, warn
		}
		sharedIDs = excludeIDs(intersectIDs(viewerFriends, targetFriends), viewerID, targetID)
	}

	if len(sharedIDs) == 0 {
		return []*models.UserBasicInfo{}, nil
	}

	rtCtx, cancel := context.WithTimeout(ctx, roundTripTimeout)
	defer cancel()
	profiles, err := s.userRepo.GetMultipleBasicInfoByIDs(rtCtx, sharedIDs)
	if err != nil {
		log.Printf("Warning: resolving %d mutual friend profiles failed, degrading to empty set: %v", len(sharedIDs), err)
		return []*models.UserBasicInfo{}, fmt.Errorf("获取共同好友信息失败: %w", err)
	}
	return profiles, nil
}

// SendFriendRequest validates and creates a pending edge, then emits a
// best-effort notification event.
func (s *friendshipService) SendFriendRequest(ctx context.Context, requesterID, addresseeID uint) error {
	if requesterID == addresseeID {
		return ErrSelfFriendRequest
	}

	// 1. 检查接收方是否存在
	_, err := s.userRepo.GetByID(ctx, addresseeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAddresseeNotFound
		}
		log.Printf("Error checking addressee user %d: %v", addresseeID, err)
		return fmt.Errorf("检查接收用户时出错: %w", err)
	}

	// 2. 无序对上任何状态的边都阻止新的请求 (两个方向都要查)
	existing, err := s.friendshipRepo.FindEdgeBetween(ctx, requesterID, addresseeID)
	if err != nil {
		log.Printf("Error checking existing edge between %d and %d: %v", requesterID, addresseeID, err)
		return fmt.Errorf("检查现有好友关系时出错: %w", err)
	}
	if existing != nil {
		return ErrFriendshipExists
	}

	// 3. 同步插入 pending 边；失败直接上抛，不重试
	edge := &models.Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      models.FriendshipStatusPending,
	}
	if err := s.friendshipRepo.Create(ctx, edge); err != nil {
		log.Printf("Error creating friendship edge (%d -> %d): %v", requesterID, addresseeID, err)
		return fmt.Errorf("发送好友请求失败: %w", err)
	}

	s.publishNotification(ctx, cvtypes.NotificationEvent{
		Type:        cvtypes.FriendRequestCreated,
		RecipientID: addresseeID,
		ActorID:     requesterID,
		SubjectID:   edge.ID,
		Timestamp:   time.Now(),
	})

	log.Printf("Friend request created: edge %d (%d -> %d)", edge.ID, requesterID, addresseeID)
	return nil
}

// RespondToFriendRequest transitions a pending edge to accepted or declined.
// Only the status field changes, and only the addressee may act.
func (s *friendshipService) RespondToFriendRequest(ctx context.Context, actorID, edgeID uint, accept bool) error {
	edge, err := s.friendshipRepo.GetByID(ctx, edgeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEdgeNotFound
		}
		log.Printf("Error retrieving friendship edge %d: %v", edgeID, err)
		return fmt.Errorf("检索好友请求失败: %w", err)
	}

	if edge.AddresseeID != actorID {
		return ErrNotAddressee
	}
	if edge.Status != models.FriendshipStatusPending {
		return ErrEdgeNotPending
	}

	newStatus := models.FriendshipStatusDeclined
	if accept {
		newStatus = models.FriendshipStatusAccepted
	}
	if err := s.friendshipRepo.UpdateStatus(ctx, edgeID, newStatus); err != nil {
		log.Printf("Error updating friendship edge %d status to %s: %v", edgeID, newStatus, err)
		return fmt.Errorf("更新好友请求状态失败: %w", err)
	}

	if accept {
		s.publishNotification(ctx, cvtypes.NotificationEvent{
			Type:        cvtypes.FriendRequestAccepted,
			RecipientID: edge.RequesterID,
			ActorID:     actorID,
			SubjectID:   edge.ID,
			Timestamp:   time.Now(),
		})
	}

	log.Printf("Friendship edge %d set to %s by user %d", edgeID, newStatus, actorID)
	return nil
}

// ListPendingRequests retrieves all pending requests addressed to the user,
// enriched with requester info.
func (s *friendshipService) ListPendingRequests(ctx context.Context, userID uint) ([]*models.PendingRequestWithRequester, error) {
	pending, err := s.friendshipRepo.GetPendingForAddressee(ctx, userID)
	if err != nil {
		log.Printf("Error fetching pending requests for user %d: %v", userID, err)
		return nil, fmt.Errorf("获取待处理好友请求失败: %w", err)
	}

	result := make([]*models.PendingRequestWithRequester, 0, len(pending))
	for _, edge := range pending {
		requester, err := s.userRepo.GetBasicInfoByID(ctx, edge.RequesterID)
		if err != nil {
			log.Printf("Error fetching requester info for user %d (edge %d): %v", edge.RequesterID, edge.ID, err)
			continue
		}
		result = append(result, &models.PendingRequestWithRequester{
			Friendship: edge,
			Requester:  requester,
		})
	}
	return result, nil
}

// ListFriends resolves the user's effective friend set to profile cards.
// The error is a non-fatal warning like EffectiveFriends'.
func (s *friendshipService) ListFriends(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	friendIDs, warn := s.EffectiveFriends(ctx, userID)
	if warn != nil {
		return []*models.UserBasicInfo{}, warn
	}
	if len(friendIDs) == 0 {
		return []*models.UserBasicInfo{}, nil
	}

	rtCtx, cancel := context.WithTimeout(ctx, roundTripTimeout)
	defer cancel()
	profiles, err := s.userRepo.GetMultipleBasicInfoByIDs(rtCtx, friendIDs)
	if err != nil {
		log.Printf("Warning: resolving friend profiles for user %d failed, degrading to empty set: %v", userID, err)
		return []*models.UserBasicInfo{}, fmt.Errorf("获取好友信息失败: %w", err)
	}
	return profiles, nil
}

// publishNotification 发布通知事件，失败只记日志，不影响主流程。
func (s *friendshipService) publishNotification(ctx context.Context, event cvtypes.NotificationEvent) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling notification event %s: %v", event.Type, err)
		return
	}
	key := []byte(fmt.Sprintf("%d", event.RecipientID))
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.NotificationsTopic, key, payload); err != nil {
		log.Printf("Error producing notification event %s to topic %s: %v", event.Type, s.kafkaCfg.NotificationsTopic, err)
	}
}

// intersectIDs returns the IDs present in both slices.
func intersectIDs(a, b []uint) []uint {
	inB := make(map[uint]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	var shared []uint
	for _, id := range a {
		if _, ok := inB[id]; ok {
			shared = append(shared, id)
		}
	}
	return shared
}

// excludeIDs returns ids without any of the excluded values.
func excludeIDs(ids []uint, excluded ...uint) []uint {
	skip := make(map[uint]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	var out []uint
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
