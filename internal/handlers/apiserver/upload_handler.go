package apiserver

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"cineverse/internal/config"
	"cineverse/internal/cvtypes"
	"cineverse/internal/middleware"
	"cineverse/internal/services"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
)

// UploadHandler 封装了头像上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	storageService cvtypes.StorageService
	userService    services.UserService
	cfg            config.StorageConfig
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(storageService cvtypes.StorageService, userService services.UserService, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		userService:    userService,
		cfg:            cfg,
	}
}

// UploadAvatarHandler 处理头像上传，存储成功后更新当前用户的头像地址。
func (h *UploadHandler) UploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	// 限制请求体大小
	maxUploadSize := h.cfg.MaxFileSizeMB << 20 // Convert MB to bytes
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		if err.Error() == "http: request body too large" {
			msg := fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20)
			writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		} else {
			writeJSONError(w, fmt.Sprintf("解析表单失败: %v", err), http.StatusBadRequest)
		}
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			writeJSONError(w, "请求中缺少 'file' 字段", http.StatusBadRequest)
		} else {
			writeJSONError(w, fmt.Sprintf("获取文件失败: %v", err), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	mimeType := handler.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeJSONError(w, "头像必须是图片文件", http.StatusBadRequest)
		return
	}
	log.Printf("收到头像上传: 用户=%d, 名称=%s, 大小=%d, 类型=%s", userID, handler.Filename, handler.Size, mimeType)

	// MaxBytesReader 限制的是整个请求体，这里再确认一次文件本身的大小
	if handler.Size > maxUploadSize {
		msg := fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20)
		writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		return
	}

	fileInfo, err := h.storageService.UploadFile(r.Context(), file, handler.Size, handler.Filename, mimeType)
	if err != nil {
		log.Printf("存储头像失败: %v", err)
		writeJSONError(w, "存储文件失败", http.StatusInternalServerError)
		return
	}

	user, err := h.userService.UpdateUserProfile(r.Context(), userID, services.ProfileUpdate{
		AvatarURL: &fileInfo.URL,
	})
	if err != nil {
		log.Printf("更新用户 %d 头像地址失败: %v", userID, err)
		writeJSONError(w, "更新头像失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}
