package websocket

import (
	"encoding/json"
	"log"

	"cineverse/internal/cvtypes"
)

// Hub maintains the set of active clients and routes notification events to
// the right user connection.
type Hub struct {
	// Registered clients, mapping UserID to Client. One connection per user;
	// a new connection for the same user replaces the old one.
	clients map[uint]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Notification events aimed at a specific user.
	notify chan *cvtypes.NotificationEvent
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uint]*Client),
		notify:     make(chan *cvtypes.NotificationEvent, 256),
	}
}

// DeliverNotification hands an event to the hub for delivery. Non-blocking so
// the Kafka consumer never stalls behind a slow hub.
func (h *Hub) DeliverNotification(event *cvtypes.NotificationEvent) {
	select {
	case h.notify <- event:
	default:
		log.Printf("警告: Hub notify channel is full. Dropping event for recipient %d", event.RecipientID)
	}
}

// Run starts the hub and listens for events on its channels.
func (h *Hub) Run() {
	log.Println("WebSocket Hub Run loop started.")
	for {
		select {
		case client := <-h.register:
			if existingClient, ok := h.clients[client.UserID]; ok {
				log.Printf("警告: 用户 %d 已有连接，关闭旧连接并注册新连接。", client.UserID)
				close(existingClient.send)
			}
			h.clients[client.UserID] = client
			log.Printf("客户端已注册: UserID %d", client.UserID)

		case client := <-h.unregister:
			// Only drop the stored entry when it is this exact connection;
			// a replaced connection must not evict its successor.
			if storedClient, ok := h.clients[client.UserID]; ok && storedClient == client {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("客户端已注销: UserID %d", client.UserID)
			} else {
				log.Printf("尝试注销一个不匹配或已过期的客户端连接: UserID %d", client.UserID)
			}

		case event := <-h.notify:
			client, ok := h.clients[event.RecipientID]
			if !ok {
				// 用户不在线，事件直接丢弃
				continue
			}
			eventBytes, err := json.Marshal(event)
			if err != nil {
				log.Printf("错误: 无法序列化通知事件以发送给 UserID %d: %v", event.RecipientID, err)
				continue
			}
			select {
			case client.send <- eventBytes:
			default:
				// 发送缓冲已满，认为客户端已掉线或过慢
				log.Printf("警告: UserID %d 的发送通道已满或关闭，移除客户端。", event.RecipientID)
				close(client.send)
				delete(h.clients, event.RecipientID)
			}
		}
	}
}
