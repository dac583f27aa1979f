package services

import (
	"upam/internal/models"
	apperrors "upam/pkg/errors"
	"upam/pkg/hierarchy"
	"upam/pkg/pagination"

	"gorm.io/gorm"
)

// ApplicationService 应用服务
type ApplicationService struct {
	db *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

// Create 创建应用，名称全局唯一
func (s *ApplicationService) Create(name string) (*models.Application, error) {
	if err := hierarchy.VerifyName(name); err != nil {
		return nil, err
	}

	application := &models.Application{Name: name}
	if err := s.db.Create(application).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}
	return application, nil
}

// GetByID 按主键查询应用
func (s *ApplicationService) GetByID(id uint) (*models.Application, error) {
	var application models.Application
	if err := s.db.First(&application, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &application, nil
}

// GetByName 按名称查询应用
func (s *ApplicationService) GetByName(name string) (*models.Application, error) {
	var application models.Application
	if err := s.db.Where("name = ?", name).First(&application).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &application, nil
}

// List 分页列出全部应用
func (s *ApplicationService) List(params *pagination.PageParams) ([]models.Application, *pagination.PageInfo, error) {
	var total int64
	if err := s.db.Model(&models.Application{}).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var applications []models.Application
	err := s.db.Order("id ASC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&applications).Error
	if err != nil {
		return nil, nil, err
	}
	return applications, pagination.NewPageInfo(params.Page, params.PageSize, total), nil
}

// Delete 删除应用并连带清理其下的角色、授予记录和资源
func (s *ApplicationService) Delete(id uint) error {
	var application models.Application
	if err := s.db.First(&application, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrNotFound
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var roleIDs []uint
		if err := tx.Model(&models.Role{}).Where("application_id = ?", id).Pluck("id", &roleIDs).Error; err != nil {
			return err
		}
		if len(roleIDs) > 0 {
			tables := []interface{}{
				&models.RoleUserAssignment{},
				&models.RoleGroupAssignment{},
				&models.PrivilegeRoleAssignment{},
			}
			for _, table := range tables {
				if err := tx.Where("role_id IN ?", roleIDs).Delete(table).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("role_id IN ? OR assignor_id IN ?", roleIDs, roleIDs).Delete(&models.RoleInherit{}).Error; err != nil {
				return err
			}
			if err := tx.Where("role_id IN ?", roleIDs).Delete(&models.RoleACL{}).Error; err != nil {
				return err
			}
			if err := tx.Where("application_id = ?", id).Delete(&models.Role{}).Error; err != nil {
				return err
			}
		}

		var resourceIDs []uint
		if err := tx.Model(&models.Resource{}).Where("application_id = ?", id).Pluck("id", &resourceIDs).Error; err != nil {
			return err
		}
		if len(resourceIDs) > 0 {
			tables := []interface{}{
				&models.UserACL{},
				&models.GroupACL{},
				&models.RoleACL{},
			}
			for _, table := range tables {
				if err := tx.Where("resource_id IN ?", resourceIDs).Delete(table).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("application_id = ?", id).Delete(&models.Resource{}).Error; err != nil {
				return err
			}
		}

		assignments := []interface{}{
			&models.PrivilegeUserAssignment{},
			&models.PrivilegeGroupAssignment{},
		}
		for _, table := range assignments {
			if err := tx.Where("application_id = ?", id).Delete(table).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.Application{}, id).Error
	})
}
