package models

import (
	"gorm.io/datatypes"
)

// Resource 资源模型，id由接入应用提供
// 三张ACL关系表都为空时资源不受ACL限制，特权完全由授权记录决定
type Resource struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	ApplicationID uint           `gorm:"not null;index" json:"application_id"`
	Metadata      datatypes.JSON `gorm:"type:json" json:"metadata"`

	// 关联关系
	UserACLs  []UserACL  `gorm:"foreignKey:ResourceID" json:"user_acls,omitempty"`
	GroupACLs []GroupACL `gorm:"foreignKey:ResourceID" json:"group_acls,omitempty"`
	RoleACLs  []RoleACL  `gorm:"foreignKey:ResourceID" json:"role_acls,omitempty"`
}

// TableName 表名
func (Resource) TableName() string {
	return "resources"
}

// reader对应READ_RESOURCE，author对应DELETE_RESOURCE，
// 没有单独的MODIFY标志，这是沿用的两标志简化模型

// UserACL 资源对用户的访问控制行
type UserACL struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ResourceID uint `gorm:"not null;uniqueIndex:idx_acl_user;index" json:"resource_id"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_acl_user" json:"user_id"`
	Reader     bool `gorm:"default:false" json:"reader"`
	Author     bool `gorm:"default:false" json:"author"`
}

// TableName 表名
func (UserACL) TableName() string {
	return "user_acls"
}

// GroupACL 资源对组的访问控制行
type GroupACL struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ResourceID uint `gorm:"not null;uniqueIndex:idx_acl_group;index" json:"resource_id"`
	GroupID    uint `gorm:"not null;uniqueIndex:idx_acl_group" json:"group_id"`
	Reader     bool `gorm:"default:false" json:"reader"`
	Author     bool `gorm:"default:false" json:"author"`
}

// TableName 表名
func (GroupACL) TableName() string {
	return "group_acls"
}

// RoleACL 资源对角色的访问控制行
type RoleACL struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ResourceID uint `gorm:"not null;uniqueIndex:idx_acl_role;index" json:"resource_id"`
	RoleID     uint `gorm:"not null;uniqueIndex:idx_acl_role" json:"role_id"`
	Reader     bool `gorm:"default:false" json:"reader"`
	Author     bool `gorm:"default:false" json:"author"`
}

// TableName 表名
func (RoleACL) TableName() string {
	return "role_acls"
}
