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

// FriendshipServiceTestSuite 覆盖好友图解析的各个场景。
type FriendshipServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service FriendshipService
	ctx     context.Context
}

// SetupTest rebuilds an in-memory database before each test.
func (suite *FriendshipServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	// :memory: 数据库是按连接存在的，必须固定为单连接
	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(&models.User{}, &models.Friendship{}))

	suite.db = db
	suite.ctx = context.Background()

	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	// 测试里不需要通知事件，producer 为 nil
	suite.service = NewFriendshipService(userRepo, friendshipRepo, nil, config.KafkaConfig{})
}

func (suite *FriendshipServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// createUser inserts a user and returns it.
func (suite *FriendshipServiceTestSuite) createUser(username string, isPrivate bool) *models.User {
	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "x",
		DisplayName:  username,
		IsPrivate:    isPrivate,
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

// createEdge inserts a friendship edge in the given direction and status.
func (suite *FriendshipServiceTestSuite) createEdge(requesterID, addresseeID uint, status models.FriendshipStatus) *models.Friendship {
	edge := &models.Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      status,
	}
	require.NoError(suite.T(), suite.db.Create(edge).Error)
	return edge
}

func (suite *FriendshipServiceTestSuite) TestEffectiveFriendsSymmetry() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusAccepted)

	aliceFriends, warn := suite.service.EffectiveFriends(suite.ctx, alice.ID)
	require.NoError(t, warn)
	bobFriends, warn := suite.service.EffectiveFriends(suite.ctx, bob.ID)
	require.NoError(t, warn)

	// 无论边的方向，双方都应在对方的好友集合里
	assert.Equal(t, []uint{bob.ID}, aliceFriends)
	assert.Equal(t, []uint{alice.ID}, bobFriends)
}

func (suite *FriendshipServiceTestSuite) TestEffectiveFriendsIgnoresNonAccepted() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	carol := suite.createUser("carol", false)
	suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusPending)
	suite.createEdge(carol.ID, alice.ID, models.FriendshipStatusDeclined)

	friends, warn := suite.service.EffectiveFriends(suite.ctx, alice.ID)
	require.NoError(t, warn)
	assert.Empty(t, friends)
}

func (suite *FriendshipServiceTestSuite) TestSendFriendRequestToSelf() {
	t := suite.T()
	alice := suite.createUser("alice", false)

	err := suite.service.SendFriendRequest(suite.ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfFriendRequest)
}

func (suite *FriendshipServiceTestSuite) TestSendFriendRequestAddresseeMissing() {
	t := suite.T()
	alice := suite.createUser("alice", false)

	err := suite.service.SendFriendRequest(suite.ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrAddresseeNotFound)
}

func (suite *FriendshipServiceTestSuite) TestSendFriendRequestDuplicateBlockedBothDirections() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)

	require.NoError(t, suite.service.SendFriendRequest(suite.ctx, alice.ID, bob.ID))

	// 同方向重复
	err := suite.service.SendFriendRequest(suite.ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrFriendshipExists)

	// 反方向也被已有的边阻止
	err = suite.service.SendFriendRequest(suite.ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrFriendshipExists)
}

func (suite *FriendshipServiceTestSuite) TestSendFriendRequestBlockedByDeclinedEdge() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusDeclined)

	// 任何状态的边都算已有关系，包括已拒绝的
	err := suite.service.SendFriendRequest(suite.ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrFriendshipExists)
}

func (suite *FriendshipServiceTestSuite) TestRespondOnlyAddresseeMayAct() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	carol := suite.createUser("carol", false)
	edge := suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusPending)

	// 请求方自己不能接受
	err := suite.service.RespondToFriendRequest(suite.ctx, alice.ID, edge.ID, true)
	assert.ErrorIs(t, err, ErrNotAddressee)

	// 第三方也不能
	err = suite.service.RespondToFriendRequest(suite.ctx, carol.ID, edge.ID, true)
	assert.ErrorIs(t, err, ErrNotAddressee)
}

func (suite *FriendshipServiceTestSuite) TestRespondNonPendingEdge() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	edge := suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusAccepted)

	err := suite.service.RespondToFriendRequest(suite.ctx, bob.ID, edge.ID, true)
	assert.ErrorIs(t, err, ErrEdgeNotPending)
}

func (suite *FriendshipServiceTestSuite) TestRespondMissingEdge() {
	t := suite.T()
	bob := suite.createUser("bob", false)

	err := suite.service.RespondToFriendRequest(suite.ctx, bob.ID, 9999, true)
	assert.ErrorIs(t, err, ErrEdgeNotFound)
}

func (suite *FriendshipServiceTestSuite) TestAcceptCreatesSymmetricFriendship() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	edge := suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusPending)

	require.NoError(t, suite.service.RespondToFriendRequest(suite.ctx, bob.ID, edge.ID, true))

	var updated models.Friendship
	require.NoError(t, suite.db.First(&updated, edge.ID).Error)
	assert.Equal(t, models.FriendshipStatusAccepted, updated.Status)
	// 只有状态变化，方向保持原样
	assert.Equal(t, alice.ID, updated.RequesterID)
	assert.Equal(t, bob.ID, updated.AddresseeID)

	aliceFriends, warn := suite.service.EffectiveFriends(suite.ctx, alice.ID)
	require.NoError(t, warn)
	assert.Contains(t, aliceFriends, bob.ID)
	bobFriends, warn := suite.service.EffectiveFriends(suite.ctx, bob.ID)
	require.NoError(t, warn)
	assert.Contains(t, bobFriends, alice.ID)
}

func (suite *FriendshipServiceTestSuite) TestDeclineLeavesNoFriendship() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	edge := suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusPending)

	require.NoError(t, suite.service.RespondToFriendRequest(suite.ctx, bob.ID, edge.ID, false))

	var updated models.Friendship
	require.NoError(t, suite.db.First(&updated, edge.ID).Error)
	assert.Equal(t, models.FriendshipStatusDeclined, updated.Status)

	friends, warn := suite.service.EffectiveFriends(suite.ctx, alice.ID)
	require.NoError(t, warn)
	assert.Empty(t, friends)
}

func (suite *FriendshipServiceTestSuite) TestCanViewReviewsPublicProfile() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)

	assert.True(t, suite.service.CanViewReviews(bob.ID, alice))
	assert.True(t, suite.service.CanViewReviews(0, alice)) // 匿名访问者
	assert.True(t, suite.service.CanViewReviews(alice.ID, alice))
}

func (suite *FriendshipServiceTestSuite) TestCanViewReviewsPrivateProfile() {
	t := suite.T()
	alice := suite.createUser("alice", true)
	bob := suite.createUser("bob", false)
	suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusAccepted)

	// 私密账号只有本人可见，好友也不行
	assert.True(t, suite.service.CanViewReviews(alice.ID, alice))
	assert.False(t, suite.service.CanViewReviews(bob.ID, alice))
	assert.False(t, suite.service.CanViewReviews(0, alice))
}

func (suite *FriendshipServiceTestSuite) TestMutualFriendsExcludesBothEndpoints() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	carol := suite.createUser("carol", false)
	// 三人两两互为好友
	suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusAccepted)
	suite.createEdge(bob.ID, carol.ID, models.FriendshipStatusAccepted)
	suite.createEdge(carol.ID, alice.ID, models.FriendshipStatusAccepted)

	mutuals, warn := suite.service.MutualFriends(suite.ctx, alice.ID, bob.ID)
	require.NoError(t, warn)
	// alice 和 bob 互为好友，但共同好友里不能出现他们自己
	require.Len(t, mutuals, 1)
	assert.Equal(t, carol.ID, mutuals[0].ID)
	assert.Equal(t, "carol", mutuals[0].Username)

	// 参数顺序对调结果相同
	swapped, warn := suite.service.MutualFriends(suite.ctx, bob.ID, alice.ID)
	require.NoError(t, warn)
	require.Len(t, swapped, 1)
	assert.Equal(t, carol.ID, swapped[0].ID)
}

func (suite *FriendshipServiceTestSuite) TestMutualFriendsNoOverlap() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	carol := suite.createUser("carol", false)
	dave := suite.createUser("dave", false)
	suite.createEdge(alice.ID, carol.ID, models.FriendshipStatusAccepted)
	suite.createEdge(bob.ID, dave.ID, models.FriendshipStatusAccepted)

	mutuals, warn := suite.service.MutualFriends(suite.ctx, alice.ID, bob.ID)
	require.NoError(t, warn)
	assert.Empty(t, mutuals)
}

func (suite *FriendshipServiceTestSuite) TestMutualFriendsWithSelf() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	carol := suite.createUser("carol", false)
	suite.createEdge(alice.ID, bob.ID, models.FriendshipStatusAccepted)
	suite.createEdge(carol.ID, alice.ID, models.FriendshipStatusAccepted)

	// 目标是自己时退化为自己的好友列表
	mutuals, warn := suite.service.MutualFriends(suite.ctx, alice.ID, alice.ID)
	require.NoError(t, warn)
	ids := make([]uint, 0, len(mutuals))
	for _, m := range mutuals {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, ids)
}

func (suite *FriendshipServiceTestSuite) TestListPendingRequestsIncludesRequesterInfo() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	carol := suite.createUser("carol", false)
	dave := suite.createUser("dave", false)
	require.NoError(t, suite.service.SendFriendRequest(suite.ctx, alice.ID, carol.ID))
	require.NoError(t, suite.service.SendFriendRequest(suite.ctx, bob.ID, carol.ID))
	// carol 自己发出的请求不应出现在她的待处理列表里
	require.NoError(t, suite.service.SendFriendRequest(suite.ctx, carol.ID, dave.ID))

	pending, err := suite.service.ListPendingRequests(suite.ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	usernames := []string{pending[0].Requester.Username, pending[1].Requester.Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, usernames)
}

func (suite *FriendshipServiceTestSuite) TestListFriendsResolvesProfiles() {
	t := suite.T()
	alice := suite.createUser("alice", false)
	bob := suite.createUser("bob", false)
	suite.createEdge(bob.ID, alice.ID, models.FriendshipStatusAccepted)

	friends, warn := suite.service.ListFriends(suite.ctx, alice.ID)
	require.NoError(t, warn)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].ID)
	assert.Equal(t, "bob", friends[0].Username)
}

func TestFriendshipServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FriendshipServiceTestSuite))
}
