package models

// Role 角色模型，按(name, applicationId)唯一
type Role struct {
	BaseModel
	Name          string `gorm:"size:32;not null;uniqueIndex:idx_role_name_app" json:"name"`
	ApplicationID uint   `gorm:"not null;uniqueIndex:idx_role_name_app;index" json:"application_id"`

	// 关联关系
	Application *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
}

// TableName 表名
func (Role) TableName() string {
	return "roles"
}

// RoleInherit 角色继承边：RoleID从AssignorID继承授权
// 计算用户的有效角色时，从直接持有的角色沿该边向外收集全部可达的assignor
type RoleInherit struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	RoleID     uint `gorm:"not null;uniqueIndex:idx_role_assignor;index" json:"role_id"`
	AssignorID uint `gorm:"not null;uniqueIndex:idx_role_assignor;index" json:"assignor_id"`
}

// TableName 表名
func (RoleInherit) TableName() string {
	return "role_inherits"
}

// RoleUserAssignment 角色与用户的授予关系
type RoleUserAssignment struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	RoleID uint `gorm:"not null;uniqueIndex:idx_role_user;index" json:"role_id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_role_user;index" json:"user_id"`
}

// TableName 表名
func (RoleUserAssignment) TableName() string {
	return "role_user_assignments"
}

// RoleGroupAssignment 角色与组的授予关系
type RoleGroupAssignment struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	RoleID  uint `gorm:"not null;uniqueIndex:idx_role_group;index" json:"role_id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_role_group;index" json:"group_id"`
}

// TableName 表名
func (RoleGroupAssignment) TableName() string {
	return "role_group_assignments"
}
