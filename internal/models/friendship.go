package models

// FriendshipStatus 定义好友关系边的状态
type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusDeclined FriendshipStatus = "declined"
)

// Friendship 是两个用户之间的一条有向边：请求方、接收方和当前状态。
// 接受之后语义上是无向的 —— 任何一方的 ID 都可能出现在 requester 或
// addressee 列上，消费方必须先比较自己的 ID 再取另一方，不能假定某一列
// 固定存放"好友"。每个无序对最多存在一条边，由请求时的双向预检查保证。
type Friendship struct {
	BaseModel
	RequesterID uint             `gorm:"not null;index:idx_friendship_pair" json:"requesterId"` // 请求发送者
	AddresseeID uint             `gorm:"not null;index:idx_friendship_pair" json:"addresseeId"` // 请求接收者
	Status      FriendshipStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// OtherSide returns the ID of the party opposite profileID on this edge.
// If profileID is the requester the addressee is returned, and vice versa.
func (f *Friendship) OtherSide(profileID uint) uint {
	if f.RequesterID == profileID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// Involves reports whether profileID appears on either side of the edge.
func (f *Friendship) Involves(profileID uint) bool {
	return f.RequesterID == profileID || f.AddresseeID == profileID
}

// PendingRequestWithRequester is a DTO that includes a pending friendship
// edge along with basic information about the user who sent the request.
// Useful for API responses for listing pending requests.
type PendingRequestWithRequester struct {
	Friendship               // Embed the core edge data
	Requester  *UserBasicInfo `json:"requester"`
}

// TableName 指定 Friendship 模型的表名。
func (Friendship) TableName() string {
	return "friendships"
}
