package models

// Identity 请求期身份状态，不落库
// 每次认证请求构建一次：组成员沿上级边闭包展开，
// 角色按应用惰性解析（访问到哪个应用才解析哪个应用）
type Identity struct {
	UserID uint            `json:"id"`
	Groups []uint          `json:"group"`
	Roles  map[uint][]uint `json:"role"` // applicationID -> 角色闭包
}

// RolesOf 该应用下已解析的角色集，未解析返回nil
func (i *Identity) RolesOf(applicationID uint) []uint {
	if i.Roles == nil {
		return nil
	}
	return i.Roles[applicationID]
}

// ResourceGrant 资源级特权
type ResourceGrant struct {
	ResourceID uint        `json:"id"`
	Grant      []Privilege `json:"grant"`
}

// PrivilegeState 一次请求最终携带的特权状态
type PrivilegeState struct {
	ApplicationID uint           `json:"application_id"`
	Grant         []Privilege    `json:"grant"`
	Resource      *ResourceGrant `json:"resource,omitempty"`
}

// Subject 请求访问的客体
type Subject struct {
	ApplicationID uint  `json:"application_id"`
	ResourceID    *uint `json:"resource_id,omitempty"`
}
