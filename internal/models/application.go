package models

// Application 应用模型，权限体系的顶层命名空间
// 角色、授权记录和资源都归属于唯一的应用
type Application struct {
	BaseModel
	Name string `gorm:"uniqueIndex;size:32;not null" json:"name"`

	// 关联关系
	Roles     []Role     `gorm:"foreignKey:ApplicationID" json:"roles,omitempty"`
	Resources []Resource `gorm:"foreignKey:ApplicationID" json:"resources,omitempty"`
}

// TableName 表名
func (Application) TableName() string {
	return "applications"
}
