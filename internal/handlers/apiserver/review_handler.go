package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cineverse/internal/middleware"
	"cineverse/internal/services"
	"cineverse/internal/storage"

	"github.com/gorilla/mux"
)

// ReviewHandler 封装了影评和 feed 相关的 HTTP 处理器方法。
type ReviewHandler struct {
	ReviewService services.ReviewService
}

// NewReviewHandler 创建一个新的 ReviewHandler 实例。
func NewReviewHandler(reviewService services.ReviewService) *ReviewHandler {
	return &ReviewHandler{ReviewService: reviewService}
}

// CreateReviewRequest 是发布影评的请求体。
type CreateReviewRequest struct {
	Title          string   `json:"title"`
	Year           int      `json:"year,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Scenario       int      `json:"scenario"`
	Music          int      `json:"music"`
	SpecialEffects int      `json:"specialEffects"`
	Opinion        string   `json:"opinion,omitempty"`
}

// CreateReview 处理发布影评。电影不存在时会被隐式创建。
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	authorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	review, err := h.ReviewService.CreateReview(r.Context(), authorID, services.CreateReviewInput{
		Title:          req.Title,
		Year:           req.Year,
		Categories:     req.Categories,
		Scenario:       req.Scenario,
		Music:          req.Music,
		SpecialEffects: req.SpecialEffects,
		Opinion:        req.Opinion,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating), errors.Is(err, services.ErrEmptyTitle):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			writeJSONError(w, "发布影评失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, review)
}

// GetReview 返回单条影评 (带电影、作者和评论)。
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reviewID, err := storage.StrToUint(vars["reviewID"])
	if err != nil {
		writeJSONError(w, "无效的影评ID", http.StatusBadRequest)
		return
	}

	review, err := h.ReviewService.GetReview(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, services.ErrReviewNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			writeJSONError(w, "获取影评失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, review)
}

// Feed 返回带过滤条件的影评流。
// 支持的查询参数: category (分类ID)、minScenario、minMusic、minSpecialEffects、
// minYear、maxYear。非法的数字参数一律按未提供处理。
func (h *ReviewHandler) Feed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.FeedFilter{
		MinScenario:       parseIntParam(query.Get("minScenario")),
		MinMusic:          parseIntParam(query.Get("minMusic")),
		MinSpecialEffects: parseIntParam(query.Get("minSpecialEffects")),
		MinYear:           parseIntParam(query.Get("minYear")),
		MaxYear:           parseIntParam(query.Get("maxYear")),
	}
	if categoryID, err := storage.StrToUint(query.Get("category")); err == nil {
		filter.CategoryID = categoryID
	}

	reviews, err := h.ReviewService.Feed(r.Context(), filter)
	if err != nil {
		writeJSONError(w, "获取 feed 失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, reviews)
}

// ListCategories 返回全部电影分类。
func (h *ReviewHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.ReviewService.ListCategories(r.Context())
	if err != nil {
		writeJSONError(w, "获取分类失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, categories)
}

func parseIntParam(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
