package models

// Privilege 特权级别，按严重度升序排列
type Privilege string

const (
	PrivilegeNone           Privilege = "NONE"
	PrivilegeReadResource   Privilege = "READ_RESOURCE"
	PrivilegeCreateResource Privilege = "CREATE_RESOURCE"
	PrivilegeModifyResource Privilege = "MODIFY_RESOURCE"
	PrivilegeDeleteResource Privilege = "DELETE_RESOURCE"
)

// privilegeOrder 严重度的固定顺序
var privilegeOrder = []Privilege{
	PrivilegeNone,
	PrivilegeReadResource,
	PrivilegeCreateResource,
	PrivilegeModifyResource,
	PrivilegeDeleteResource,
}

func privilegeIndex(p Privilege) int {
	for i, v := range privilegeOrder {
		if v == p {
			return i
		}
	}
	return -1
}

// Valid 是否为已定义的特权级别
func (p Privilege) Valid() bool {
	return privilegeIndex(p) >= 0
}

// ComparePrivilege 比较两个特权的严重度，返回下标差
func ComparePrivilege(a, b Privilege) int {
	return privilegeIndex(a) - privilegeIndex(b)
}

// ContainsPrivilege 集合中是否存在不低于required的特权
func ContainsPrivilege(privileges []Privilege, required Privilege) bool {
	for _, p := range privileges {
		if ComparePrivilege(p, required) >= 0 {
			return true
		}
	}
	return false
}

// PrivilegeUserAssignment 用户特权授予，应用内按(user, privilege)唯一
type PrivilegeUserAssignment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_priv_user;index" json:"user_id"`
	ApplicationID uint      `gorm:"not null;uniqueIndex:idx_priv_user;index" json:"application_id"`
	Privilege     Privilege `gorm:"size:20;not null;uniqueIndex:idx_priv_user" json:"privilege"`
}

// TableName 表名
func (PrivilegeUserAssignment) TableName() string {
	return "privilege_user_assignments"
}

// PrivilegeGroupAssignment 组特权授予
type PrivilegeGroupAssignment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GroupID       uint      `gorm:"not null;uniqueIndex:idx_priv_group;index" json:"group_id"`
	ApplicationID uint      `gorm:"not null;uniqueIndex:idx_priv_group;index" json:"application_id"`
	Privilege     Privilege `gorm:"size:20;not null;uniqueIndex:idx_priv_group" json:"privilege"`
}

// TableName 表名
func (PrivilegeGroupAssignment) TableName() string {
	return "privilege_group_assignments"
}

// PrivilegeRoleAssignment 角色特权授予，所属应用经角色间接确定
type PrivilegeRoleAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoleID    uint      `gorm:"not null;uniqueIndex:idx_priv_role;index" json:"role_id"`
	Privilege Privilege `gorm:"size:20;not null;uniqueIndex:idx_priv_role" json:"privilege"`
}

// TableName 表名
func (PrivilegeRoleAssignment) TableName() string {
	return "privilege_role_assignments"
}
