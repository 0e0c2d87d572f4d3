package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"cineverse/internal/auth"
	"cineverse/internal/middleware"
	"cineverse/internal/models"
	"cineverse/internal/services"
	"cineverse/internal/storage"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// UserHandler 封装了用户资料相关的 HTTP 处理器方法。
type UserHandler struct {
	UserService       services.UserService
	AuthService       services.AuthService
	FriendshipService services.FriendshipService
	ReviewService     services.ReviewService

	// 公开主页允许匿名访问，带 Token 时解析出访问者身份
	jwtKey    string
	blacklist auth.TokenBlacklist
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(
	userService services.UserService,
	authService services.AuthService,
	friendshipService services.FriendshipService,
	reviewService services.ReviewService,
	jwtKey string,
	blacklist auth.TokenBlacklist,
) *UserHandler {
	return &UserHandler{
		UserService:       userService,
		AuthService:       authService,
		FriendshipService: friendshipService,
		ReviewService:     reviewService,
		jwtKey:            jwtKey,
		blacklist:         blacklist,
	}
}

// UpdateProfileRequest 是更新个人资料的请求体。缺省字段不修改。
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	IsPrivate   *bool   `json:"isPrivate,omitempty"`
}

// UpdateCredentialsRequest 是更新登录凭据的请求体。空字段不修改。
type UpdateCredentialsRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// PublicProfileResponse 是用户公开主页的响应结构体。
// 资料卡对所有人可见；影评列表受私密开关控制，锁定时 ReviewsLocked 为 true
// 且 Reviews 为空数组。
type PublicProfileResponse struct {
	User          *models.User            `json:"user"`
	MutualFriends []*models.UserBasicInfo `json:"mutualFriends"`
	Reviews       []models.Review         `json:"reviews"`
	ReviewsLocked bool                    `json:"reviewsLocked"`
}

// GetMyProfile 返回当前登录用户的完整资料。
func (h *UserHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	user, err := h.UserService.GetUserProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, "用户不存在", http.StatusNotFound)
		} else {
			writeJSONError(w, "获取个人资料失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// UpdateMyProfile 更新当前登录用户的资料。
func (h *UserHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.UserService.UpdateUserProfile(r.Context(), userID, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		writeJSONError(w, "更新个人资料失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// UpdateMyCredentials 更新当前登录用户的邮箱或密码。
func (h *UserHandler) UpdateMyCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	var req UpdateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Email == "" && req.Password == "" {
		writeJSONError(w, "没有需要更新的凭据", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.UpdateCredentials(r.Context(), userID, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrUserAlreadyExists):
			writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, services.ErrInvalidEmail):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			writeJSONError(w, "更新凭据失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "凭据已更新"})
}

// SearchUsers 按用户名或昵称搜索其他用户。
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSONResponse(w, http.StatusOK, []models.UserBasicInfo{})
		return
	}

	users, err := h.UserService.SearchUsers(r.Context(), query, userID)
	if err != nil {
		writeJSONError(w, "搜索用户失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, users)
}

// GetUserProfile 返回某个用户的公开主页：资料卡、共同好友和 (可见时的)
// 影评列表。匿名访问者也能看到公开账号的主页。
func (h *UserHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	targetID, err := storage.StrToUint(vars["userID"])
	if err != nil {
		writeJSONError(w, "无效的用户ID", http.StatusBadRequest)
		return
	}

	viewerID := h.optionalViewerID(r)

	target, err := h.UserService.GetUserProfile(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, "用户不存在", http.StatusNotFound)
		} else {
			writeJSONError(w, "获取用户主页失败", http.StatusInternalServerError)
		}
		return
	}
	// 公开资料卡只有昵称、头像和简介，邮箱只在 /users/me 返回
	if viewerID != targetID {
		target.Email = ""
	}

	resp := PublicProfileResponse{
		User:          target,
		MutualFriends: []*models.UserBasicInfo{},
		Reviews:       []models.Review{},
	}

	// 共同好友只对登录用户展示；解析失败时降级为空列表，不影响页面
	if viewerID != 0 && viewerID != targetID {
		mutuals, err := h.FriendshipService.MutualFriends(r.Context(), viewerID, targetID)
		if err != nil {
			log.Printf("Warning: mutual friends for viewer %d / target %d degraded: %v", viewerID, targetID, err)
		}
		if mutuals != nil {
			resp.MutualFriends = mutuals
		}
	}

	if h.FriendshipService.CanViewReviews(viewerID, target) {
		reviews, err := h.ReviewService.ListByAuthor(r.Context(), targetID)
		if err != nil {
			writeJSONError(w, "获取用户影评失败", http.StatusInternalServerError)
			return
		}
		resp.Reviews = reviews
	} else {
		resp.ReviewsLocked = true
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// optionalViewerID extracts the viewer from a Bearer token when one is
// present. Missing or invalid tokens yield 0, the anonymous viewer.
func (h *UserHandler) optionalViewerID(r *http.Request) uint {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0
	}
	claims, err := auth.ValidateToken(r.Context(), parts[1], h.jwtKey, h.blacklist)
	if err != nil {
		return 0
	}
	return claims.UserID
}
