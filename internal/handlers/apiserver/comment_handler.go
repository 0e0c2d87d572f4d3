package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"cineverse/internal/middleware"
	"cineverse/internal/models"
	"cineverse/internal/services"
	"cineverse/internal/storage"

	"github.com/gorilla/mux"
)

// CommentHandler 封装了影评评论相关的 HTTP 处理器方法。
type CommentHandler struct {
	CommentService services.CommentService
}

// NewCommentHandler 创建一个新的 CommentHandler 实例。
func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{CommentService: commentService}
}

// CreateCommentRequest 是发布评论的请求体。
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CreateComment 在影评下发布一条评论。
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	authorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	reviewID, err := storage.StrToUint(vars["reviewID"])
	if err != nil {
		writeJSONError(w, "无效的影评ID", http.StatusBadRequest)
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	comment, err := h.CommentService.CreateComment(r.Context(), authorID, reviewID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyComment):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrReviewNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		default:
			writeJSONError(w, "发布评论失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, comment)
}

// ListComments 按插入顺序返回影评的评论。
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reviewID, err := storage.StrToUint(vars["reviewID"])
	if err != nil {
		writeJSONError(w, "无效的影评ID", http.StatusBadRequest)
		return
	}

	comments, err := h.CommentService.ListComments(r.Context(), reviewID)
	if err != nil {
		writeJSONError(w, "获取评论失败", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []models.ReviewComment{}
	}
	writeJSONResponse(w, http.StatusOK, comments)
}
