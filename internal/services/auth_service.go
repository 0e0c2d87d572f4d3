package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cineverse/internal/auth"
	"cineverse/internal/config"
	"cineverse/internal/models"
	"cineverse/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("无效的用户名或密码")
	ErrUserNotFound       = errors.New("用户未找到")
	ErrInvalidEmail       = errors.New("邮箱格式无效")
)

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (token string, user *models.User, err error)
	// UpdateCredentials 更新邮箱和/或密码，空字符串表示不修改。
	UpdateCredentials(ctx context.Context, userID uint, email, password string) error
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo storage.UserRepository
	cfg      config.Config // 包含 AuthConfig
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, cfg config.Config) AuthService {
	return &authService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register 处理用户注册逻辑。
// 用户名由邮箱的本地部分派生；撞名时追加短 uuid 后缀，注册不会因此失败。
func (s *authService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return nil, ErrInvalidEmail
	}

	// 检查邮箱是否已被注册
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("检查邮箱时出错: %w", err)
	}

	username, err := s.deriveUsername(ctx, email[:at])
	if err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	if displayName == "" {
		displayName = username
	}

	newUser := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	return newUser, nil
}

// deriveUsername 从邮箱本地部分生成唯一用户名。
func (s *authService) deriveUsername(ctx context.Context, localPart string) (string, error) {
	username := localPart
	_, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return username, nil
	}
	if err != nil {
		return "", fmt.Errorf("检查用户名时出错: %w", err)
	}
	// 本地部分已被占用，追加后缀
	suffix := uuid.New().String()[:8]
	return username + "-" + suffix, nil
}

// Login 处理用户登录逻辑。
func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (string, *models.User, error) {
	var user *models.User
	var err error

	// 先按用户名找，找不到再按邮箱找
	user, err = s.userRepo.GetByUsername(ctx, usernameOrEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(usernameOrEmail))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrUserNotFound
		} else if err != nil {
			return "", nil, fmt.Errorf("通过邮箱查找用户失败: %w", err)
		}
	} else if err != nil {
		return "", nil, fmt.Errorf("通过用户名查找用户失败: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("生成令牌失败: %w", err)
	}

	return token, user, nil
}

// UpdateCredentials 更新用户的邮箱和/或密码。
func (s *authService) UpdateCredentials(ctx context.Context, userID uint, email, password string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("查找用户失败: %w", err)
	}

	updated := false
	if email != "" {
		email = strings.TrimSpace(strings.ToLower(email))
		if !strings.Contains(email, "@") {
			return ErrInvalidEmail
		}
		if email != user.Email {
			// 新邮箱不能已被他人使用
			if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing.ID != userID {
				return ErrUserAlreadyExists
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("检查邮箱时出错: %w", err)
			}
			user.Email = email
			updated = true
		}
	}
	if password != "" {
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("密码哈希失败: %w", err)
		}
		user.PasswordHash = hashed
		updated = true
	}

	if !updated {
		return nil
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("更新用户凭证失败: %w", err)
	}
	return nil
}
