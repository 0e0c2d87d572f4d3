package notifier

import (
	"fmt"
	"log"
	"net/http"

	"cineverse/internal/auth"
	"cineverse/internal/config"
	ws "cineverse/internal/websocket"
)

// WebSocketHandler 负责处理通知 WebSocket 连接请求。
type WebSocketHandler struct {
	hub *ws.Hub
	cfg config.Config
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。
func NewWebSocketHandler(hub *ws.Hub, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		cfg: cfg,
	}
}

// ServeWS 处理传入的 WebSocket 请求。
// 通知连接必须带令牌，匿名用户没有可推送的内容。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "缺少认证令牌", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, nil)
	if err != nil {
		log.Printf("WebSocket 连接尝试失败：令牌无效: %v", err)
		http.Error(w, fmt.Sprintf("令牌无效: %v", err), http.StatusUnauthorized)
		return
	}
	log.Printf("用户 %s (ID: %d) 尝试连接通知 WebSocket", claims.Username, claims.UserID)

	ws.ServeNotificationConnection(h.hub, claims.UserID, w, r, h.cfg.WebSocket)
}
