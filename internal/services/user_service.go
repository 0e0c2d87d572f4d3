package services

import (
	"context"
	"fmt"

	"cineverse/internal/models"
	"cineverse/internal/storage"
)

// ProfileUpdate 描述一次资料更新。指针字段为 nil 表示不修改，
// 这样可以把简介清空、把账号在公开/私密之间切换。
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	IsPrivate   *bool
}

// UserService 定义了用户资料相关服务的接口。
type UserService interface {
	GetUserProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error)
	SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.UserBasicInfo, error)
}

// userService 是 UserService 的实现。
type userService struct {
	userRepo storage.UserRepository
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetUserProfile 获取用户的个人资料。
// 资料卡 (昵称、头像、简介) 不受私密开关影响，影评列表的可见性由调用方
// 通过 FriendshipService.CanViewReviews 决定。
func (s *userService) GetUserProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 失败: %w", userID, err)
	}
	user.PasswordHash = "" // 返回前清理敏感信息
	return user, nil
}

// UpdateUserProfile 更新用户的个人资料。
func (s *userService) UpdateUserProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("更新用户资料失败，用户 %d 未找到: %w", userID, err)
	}

	updated := false
	if update.DisplayName != nil && user.DisplayName != *update.DisplayName {
		user.DisplayName = *update.DisplayName
		updated = true
	}
	if update.Bio != nil && user.Bio != *update.Bio {
		user.Bio = *update.Bio
		updated = true
	}
	if update.AvatarURL != nil && user.AvatarURL != *update.AvatarURL {
		user.AvatarURL = *update.AvatarURL
		updated = true
	}
	if update.IsPrivate != nil && user.IsPrivate != *update.IsPrivate {
		user.IsPrivate = *update.IsPrivate
		updated = true
	}

	if !updated {
		user.PasswordHash = ""
		return user, nil // 没有字段被更新
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户 %d 资料失败: %w", userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// SearchUsers 按昵称/用户名做大小写不敏感的模糊搜索，排除当前用户。
func (s *userService) SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.UserBasicInfo, error) {
	return s.userRepo.SearchUsers(ctx, query, currentUserID)
}
