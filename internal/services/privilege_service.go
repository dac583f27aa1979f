package services

import (
	"upam/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrivilegeService 特权授予存储
// 同一个特权可以分别授予用户、组、角色三类主体，三类记录各自入表，
// 请求期由解析器合并
type PrivilegeService struct {
	db *gorm.DB
}

func NewPrivilegeService(db *gorm.DB) *PrivilegeService {
	return &PrivilegeService{db: db}
}

// Assignee 受授予主体的id清单，三类各自独立可选
type Assignee struct {
	User  []uint `json:"user,omitempty"`
	Group []uint `json:"group,omitempty"`
	Role  []uint `json:"role,omitempty"`
}

// PrivilegeAssignments 应用下按主体类别的原始授予记录
type PrivilegeAssignments struct {
	User  []models.PrivilegeUserAssignment  `json:"user"`
	Group []models.PrivilegeGroupAssignment `json:"group"`
	Role  []models.PrivilegeRoleAssignment  `json:"role"`
}

// AssignPrivilege 把一批特权授予三类主体
// 逐类做主体×特权的笛卡尔积批量插入，重复记录跳过，返回实际插入的总行数
func (s *PrivilegeService) AssignPrivilege(applicationID uint, assignee Assignee, privileges []models.Privilege) (int64, error) {
	var total int64

	if len(assignee.User) > 0 && len(privileges) > 0 {
		rows := make([]models.PrivilegeUserAssignment, 0, len(assignee.User)*len(privileges))
		for _, id := range assignee.User {
			for _, p := range privileges {
				rows = append(rows, models.PrivilegeUserAssignment{
					UserID:        id,
					ApplicationID: applicationID,
					Privilege:     p,
				})
			}
		}
		result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}

	if len(assignee.Group) > 0 && len(privileges) > 0 {
		rows := make([]models.PrivilegeGroupAssignment, 0, len(assignee.Group)*len(privileges))
		for _, id := range assignee.Group {
			for _, p := range privileges {
				rows = append(rows, models.PrivilegeGroupAssignment{
					GroupID:       id,
					ApplicationID: applicationID,
					Privilege:     p,
				})
			}
		}
		result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}

	if len(assignee.Role) > 0 && len(privileges) > 0 {
		rows := make([]models.PrivilegeRoleAssignment, 0, len(assignee.Role)*len(privileges))
		for _, id := range assignee.Role {
			for _, p := range privileges {
				rows = append(rows, models.PrivilegeRoleAssignment{
					RoleID:    id,
					Privilege: p,
				})
			}
		}
		result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}

	return total, nil
}

// ModifyPrivilege 把受授予主体的特权集调和为newPrivileges
// 不做整体清空：旧有且不在新集合里的删除，新集合里缺的补上，
// 新旧都有的保持不动；整个调和在一个事务内完成
func (s *PrivilegeService) ModifyPrivilege(applicationID uint, assignee Assignee, newPrivileges []models.Privilege) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(assignee.User) > 0 {
			query := tx.Where("user_id IN ? AND application_id = ?", assignee.User, applicationID)
			if len(newPrivileges) > 0 {
				query = query.Where("privilege NOT IN ?", newPrivileges)
			}
			if err := query.Delete(&models.PrivilegeUserAssignment{}).Error; err != nil {
				return err
			}
		}
		if len(assignee.Group) > 0 {
			query := tx.Where("group_id IN ? AND application_id = ?", assignee.Group, applicationID)
			if len(newPrivileges) > 0 {
				query = query.Where("privilege NOT IN ?", newPrivileges)
			}
			if err := query.Delete(&models.PrivilegeGroupAssignment{}).Error; err != nil {
				return err
			}
		}
		if len(assignee.Role) > 0 {
			query := tx.Where("role_id IN ?", assignee.Role).
				Where("EXISTS (SELECT 1 FROM roles r WHERE r.id = privilege_role_assignments.role_id AND r.application_id = ?)", applicationID)
			if len(newPrivileges) > 0 {
				query = query.Where("privilege NOT IN ?", newPrivileges)
			}
			if err := query.Delete(&models.PrivilegeRoleAssignment{}).Error; err != nil {
				return err
			}
		}

		svc := &PrivilegeService{db: tx}
		_, err := svc.AssignPrivilege(applicationID, assignee, newPrivileges)
		return err
	})
}

// ListPrivilegeAssignments 应用下三类主体的全部授予记录，留给解析器合并
func (s *PrivilegeService) ListPrivilegeAssignments(applicationID uint) (*PrivilegeAssignments, error) {
	assignments := &PrivilegeAssignments{}

	if err := s.db.Where("application_id = ?", applicationID).
		Find(&assignments.User).Error; err != nil {
		return nil, err
	}
	if err := s.db.Where("application_id = ?", applicationID).
		Find(&assignments.Group).Error; err != nil {
		return nil, err
	}
	if err := s.db.
		Where("EXISTS (SELECT 1 FROM roles r WHERE r.id = privilege_role_assignments.role_id AND r.application_id = ?)", applicationID).
		Find(&assignments.Role).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}
