package models

// Group 组模型
// 名称只在同一个上级组内唯一，完整身份是根到自身的路径（FullName），
// 如 dev/beijing/root，从右往左读，root是顶层
type Group struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:32;not null;index" json:"name"`
}

// TableName 表名
func (Group) TableName() string {
	return "groups"
}

// GroupMember 组的上下级边
// UnitID指向上级组，MemberID指向下级组；根组没有任何以它为member的边
// 表结构允许一个组挂多个上级，但常规创建流程只会产生单上级，
// 多上级按歧义数据处理
type GroupMember struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UnitID   uint `gorm:"not null;uniqueIndex:idx_unit_member;index" json:"unit_id"`
	MemberID uint `gorm:"not null;uniqueIndex:idx_unit_member;index" json:"member_id"`
}

// TableName 表名
func (GroupMember) TableName() string {
	return "group_members"
}

// GroupPath 组全名解析结果，IDs为根到自身路径上的组id
type GroupPath struct {
	FullName string `json:"fullname"`
	IDs      []uint `json:"id"`
}
