package services

import (
	"strings"

	"upam/internal/models"
	"upam/pkg/errors"
	"upam/pkg/hierarchy"
	"upam/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleService 角色存储
// 角色按应用划分，角色间可互相继承：roleId→assignorId表示前者
// 继承后者的授权，有效角色集是沿继承边可达的全部assignor的闭包
type RoleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

// ========== 基础CRUD方法 ==========

// Create 创建角色，(name, applicationId)重复时返回冲突
func (s *RoleService) Create(name string, applicationID uint) (*models.Role, error) {
	if err := hierarchy.VerifyName(name); err != nil {
		return nil, err
	}

	role := &models.Role{Name: name, ApplicationID: applicationID}
	if err := s.db.Create(role).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.ErrConflict
		}
		return nil, err
	}
	return role, nil
}

// CreateMany 批量创建角色，整体在一个事务内
func (s *RoleService) CreateMany(roles []models.Role) (int64, error) {
	for _, role := range roles {
		if err := hierarchy.VerifyName(role.Name); err != nil {
			return 0, err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&roles).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.ErrConflict
		}
		return 0, err
	}
	return int64(len(roles)), nil
}

// GetByID 按id获取角色
func (s *RoleService) GetByID(id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// ListRoles 分页列出应用下的角色
func (s *RoleService) ListRoles(applicationID uint, cursor *pagination.CursorParams) ([]models.Role, error) {
	query := s.db.Model(&models.Role{}).Where("application_id = ?", applicationID).Order("id asc")
	if cursor.Start > 0 {
		query = query.Where("id >= ?", cursor.Start)
	} else if cursor.Skip > 0 {
		query = query.Offset(cursor.Skip)
	}

	var roles []models.Role
	err := query.Limit(cursor.Count).Find(&roles).Error
	return roles, err
}

// Delete 删除角色，同时摘除它的授予关系、特权记录和继承边
func (s *RoleService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrNotFound
			}
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.RoleUserAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.RoleGroupAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.PrivilegeRoleAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ? OR assignor_id = ?", id, id).Delete(&models.RoleInherit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.RoleACL{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, id).Error
	})
}

// ========== 继承 ==========

// InheritTo 让一批角色继承目标角色的授权
// 已经有继承边的角色跳过，重复调用无副作用
func (s *RoleService) InheritTo(roleNames []string, inheritToName string, applicationID uint) error {
	var target models.Role
	err := s.db.Where("name = ? AND application_id = ?", inheritToName, applicationID).
		First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrNotFound
		}
		return err
	}

	var roles []models.Role
	err = s.db.Where("name IN ? AND application_id = ?", roleNames, applicationID).
		Where("NOT EXISTS (SELECT 1 FROM role_inherits ri WHERE ri.role_id = roles.id AND ri.assignor_id = ?)", target.ID).
		Find(&roles).Error
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}

	edges := make([]models.RoleInherit, 0, len(roles))
	for _, role := range roles {
		edges = append(edges, models.RoleInherit{RoleID: role.ID, AssignorID: target.ID})
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error
}

// listRolesInherited 从种子角色沿继承边向外收集闭包
// 按层推进，每层对整个前沿发一次批量查询；已发现的id不再进队，
// 环状继承只会各出现一次，不会死循环
func (s *RoleService) listRolesInherited(applicationID uint, seeds []uint) ([]uint, error) {
	discovered := make(map[uint]bool, len(seeds))
	roles := make([]uint, 0, len(seeds))
	frontier := make([]uint, 0, len(seeds))
	for _, id := range seeds {
		if !discovered[id] {
			discovered[id] = true
			roles = append(roles, id)
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		var edges []models.RoleInherit
		err := s.db.
			Where("role_id IN ?", frontier).
			Where("EXISTS (SELECT 1 FROM roles r WHERE r.id = role_inherits.assignor_id AND r.application_id = ?)", applicationID).
			Find(&edges).Error
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, e := range edges {
			if discovered[e.AssignorID] {
				continue
			}
			discovered[e.AssignorID] = true
			frontier = append(frontier, e.AssignorID)
			roles = append(roles, e.AssignorID)
		}
	}
	return roles, nil
}

// ListRolesOfUser 用户在应用下直接持有的角色加继承闭包
func (s *RoleService) ListRolesOfUser(applicationID, userID uint) ([]uint, error) {
	var roles []models.Role
	err := s.db.Model(&models.Role{}).
		Where("application_id = ?", applicationID).
		Where("EXISTS (SELECT 1 FROM role_user_assignments rua WHERE rua.role_id = roles.id AND rua.user_id = ?)", userID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return s.listRolesInherited(applicationID, roleIDs(roles))
}

// ListRolesOfGroup 组直接持有的角色加继承闭包
func (s *RoleService) ListRolesOfGroup(applicationID, groupID uint) ([]uint, error) {
	return s.ListRolesOfGroups(applicationID, []uint{groupID})
}

// ListRolesOfGroups 一批组持有的角色加继承闭包
func (s *RoleService) ListRolesOfGroups(applicationID uint, groupIDs []uint) ([]uint, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var roles []models.Role
	err := s.db.Model(&models.Role{}).
		Where("application_id = ?", applicationID).
		Where("EXISTS (SELECT 1 FROM role_group_assignments rga WHERE rga.role_id = roles.id AND rga.group_id IN ?)", groupIDs).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return s.listRolesInherited(applicationID, roleIDs(roles))
}

// ListRoleInherited 单个角色的继承闭包
func (s *RoleService) ListRoleInherited(applicationID, roleID uint) ([]uint, error) {
	return s.listRolesInherited(applicationID, []uint{roleID})
}

// ========== 授予与回收 ==========

// AssignUser 把角色批量授予用户，重复授予跳过
func (s *RoleService) AssignUser(roleID uint, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	rows := make([]models.RoleUserAssignment, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.RoleUserAssignment{RoleID: roleID, UserID: userID})
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return result.RowsAffected, result.Error
}

// AssignGroup 把角色批量授予组，重复授予跳过
func (s *RoleService) AssignGroup(roleID uint, groupIDs []uint) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	rows := make([]models.RoleGroupAssignment, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		rows = append(rows, models.RoleGroupAssignment{RoleID: roleID, GroupID: groupID})
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return result.RowsAffected, result.Error
}

// RevokeUser 回收用户的角色
func (s *RoleService) RevokeUser(roleID uint, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := s.db.Where("role_id = ? AND user_id IN ?", roleID, userIDs).
		Delete(&models.RoleUserAssignment{})
	return result.RowsAffected, result.Error
}

// RevokeGroup 回收组的角色
func (s *RoleService) RevokeGroup(roleID uint, groupIDs []uint) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	result := s.db.Where("role_id = ? AND group_id IN ?", roleID, groupIDs).
		Delete(&models.RoleGroupAssignment{})
	return result.RowsAffected, result.Error
}

func roleIDs(roles []models.Role) []uint {
	ids := make([]uint, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	return ids
}

// isUniqueViolation 识别存储层的唯一约束冲突
// postgres报23505，sqlite报UNIQUE constraint failed，按报文匹配
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "23505") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "UNIQUE constraint failed")
}
