package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cineverse/internal/middleware"
	"cineverse/internal/models"
	"cineverse/internal/services"
	"cineverse/internal/storage"

	"github.com/gorilla/mux"
)

// FriendshipHandler 封装了好友关系相关的 HTTP 处理器方法。
type FriendshipHandler struct {
	FriendshipService services.FriendshipService
}

// NewFriendshipHandler 创建一个新的 FriendshipHandler 实例。
func NewFriendshipHandler(friendshipService services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{FriendshipService: friendshipService}
}

// SendFriendRequestRequest 是发送好友请求的请求体。
type SendFriendRequestRequest struct {
	AddresseeID uint `json:"addresseeId"`
}

// RespondFriendRequestRequest 是响应好友请求的请求体。
type RespondFriendRequestRequest struct {
	Accept bool `json:"accept"`
}

// SendFriendRequest 处理发送好友请求。
func (h *FriendshipHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	var req SendFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.AddresseeID == 0 {
		writeJSONError(w, "缺少 addresseeId", http.StatusBadRequest)
		return
	}

	err := h.FriendshipService.SendFriendRequest(r.Context(), requesterID, req.AddresseeID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfFriendRequest):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrFriendshipExists):
			writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, services.ErrAddresseeNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		default:
			writeJSONError(w, "发送好友请求失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]string{"message": "好友请求已发送"})
}

// RespondToFriendRequest 处理接受/拒绝好友请求。只有被请求方可以响应。
func (h *FriendshipHandler) RespondToFriendRequest(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	edgeID, err := storage.StrToUint(vars["requestID"])
	if err != nil {
		writeJSONError(w, "无效的请求ID", http.StatusBadRequest)
		return
	}

	var req RespondFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	err = h.FriendshipService.RespondToFriendRequest(r.Context(), actorID, edgeID, req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEdgeNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotAddressee):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrEdgeNotPending):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, "响应好友请求失败", http.StatusInternalServerError)
		}
		return
	}

	message := "好友请求已拒绝"
	if req.Accept {
		message = "好友请求已接受"
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": message})
}

// ListPendingRequests 返回发给当前用户的待处理好友请求。
func (h *FriendshipHandler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	requests, err := h.FriendshipService.ListPendingRequests(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "获取好友请求失败", http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []*models.PendingRequestWithRequester{}
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListFriends 返回当前用户的好友列表。解析失败时降级为空列表。
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	friends, err := h.FriendshipService.ListFriends(r.Context(), userID)
	if err != nil {
		// 好友列表是页面的一部分，解析失败不应让整页报错
		log.Printf("Warning: friend list for user %d degraded: %v", userID, err)
	}
	if friends == nil {
		friends = []*models.UserBasicInfo{}
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// ListMutualFriends 返回当前用户与目标用户的共同好友。
func (h *FriendshipHandler) ListMutualFriends(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	targetID, err := storage.StrToUint(vars["userID"])
	if err != nil {
		writeJSONError(w, "无效的用户ID", http.StatusBadRequest)
		return
	}

	mutuals, err := h.FriendshipService.MutualFriends(r.Context(), viewerID, targetID)
	if err != nil {
		log.Printf("Warning: mutual friends for viewer %d / target %d degraded: %v", viewerID, targetID, err)
	}
	if mutuals == nil {
		mutuals = []*models.UserBasicInfo{}
	}
	writeJSONResponse(w, http.StatusOK, mutuals)
}
