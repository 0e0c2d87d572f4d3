package models

// Rating 取值范围为 [1,5]。
const (
	RatingMin = 1
	RatingMax = 5
)

// Review 代表一条影评：三个子评分加一段自由文本。
// 影评创建后不再修改或删除，feed 按 created_at 倒序展示。
type Review struct {
	BaseModel
	FilmID   uint `gorm:"not null;index" json:"filmId"`
	Film     Film `gorm:"foreignKey:FilmID" json:"film,omitempty"`
	AuthorID uint `gorm:"not null;index" json:"authorId"`
	Author   User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Scenario       int    `gorm:"not null" json:"scenario"`       // 剧本评分
	Music          int    `gorm:"not null" json:"music"`          // 配乐评分
	SpecialEffects int    `gorm:"not null" json:"specialEffects"` // 特效评分
	Opinion        string `gorm:"type:text" json:"opinion,omitempty"`

	Comments []ReviewComment `gorm:"foreignKey:ReviewID" json:"comments,omitempty"`
}

// ReviewComment 是影评下的评论，任何已登录用户都可以追加。
// 存储层保留插入顺序，展示顺序由前端决定。
type ReviewComment struct {
	BaseModel
	ReviewID uint   `gorm:"not null;index" json:"reviewId"`
	AuthorID uint   `gorm:"not null;index" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content  string `gorm:"type:text;not null" json:"content"`
}

// TableName 指定 Review 模型的表名。
func (Review) TableName() string {
	return "reviews"
}

// TableName 指定 ReviewComment 模型的表名。
func (ReviewComment) TableName() string {
	return "review_comments"
}
