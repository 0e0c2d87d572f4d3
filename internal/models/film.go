package models

// Film 代表一部电影。第一次有人给一个未知标题写影评时隐式创建，
// 标题匹配不区分大小写，之后不再更新或删除。
type Film struct {
	BaseModel
	Title     string `gorm:"type:varchar(255);not null;index" json:"title"`
	Year      int    `gorm:"not null" json:"year"`
	PosterURL string `gorm:"type:varchar(255)" json:"posterUrl,omitempty"`

	Categories []*Category `gorm:"many2many:film_categories;" json:"categories,omitempty"`
	Reviews    []Review    `gorm:"foreignKey:FilmID" json:"reviews,omitempty"`
}

// Category 是静态参考数据，电影通过 film_categories 连接表关联零个或多个分类。
type Category struct {
	BaseModel
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}

// TableName 指定 Film 模型的表名。
func (Film) TableName() string {
	return "films"
}

// TableName 指定 Category 模型的表名。
func (Category) TableName() string {
	return "categories"
}
