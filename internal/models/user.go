package models

// User 代表系统中的用户，账号信息和公开资料合并在同一条记录里。
// Username 在注册时由邮箱的本地部分派生。
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"email,omitempty"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	DisplayName  string `gorm:"type:varchar(100)" json:"displayName,omitempty"`
	Bio          string `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL    string `gorm:"type:varchar(255)" json:"avatarUrl,omitempty"`
	IsPrivate    bool   `gorm:"not null;default:false" json:"isPrivate"` // 私密账号只有本人能看到影评列表

	// 关联关系
	Reviews []Review `gorm:"foreignKey:AuthorID" json:"reviews,omitempty"` // 用户发布的影评
}

// UserBasicInfo holds minimal public information about a user.
// Used for friend lists, mutual-friend lists and requester info on
// pending friend requests.
type UserBasicInfo struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}
