package cvtypes

import "time"

// NotificationType defines the type of a notification event.
type NotificationType string

const (
	// FriendRequestCreated 有人向你发送了好友请求
	FriendRequestCreated NotificationType = "friend.request.created"
	// FriendRequestAccepted 对方接受了你的好友请求
	FriendRequestAccepted NotificationType = "friend.request.accepted"
	// ReviewCommentCreated 有人评论了你的影评
	ReviewCommentCreated NotificationType = "review.comment.created"
)

// NotificationEvent 是 apiserver 通过 Kafka 发给 notifier 的事件结构，
// notifier 按 RecipientID 推送给对应的 WebSocket 连接。
type NotificationEvent struct {
	Type        NotificationType `json:"type"`
	RecipientID uint             `json:"recipientId"` // 推送目标用户
	ActorID     uint             `json:"actorId"`     // 触发事件的用户
	ActorName   string           `json:"actorName,omitempty"`
	SubjectID   uint             `json:"subjectId,omitempty"` // 关联对象 (边ID、影评ID…)
	Timestamp   time.Time        `json:"timestamp"`
}
