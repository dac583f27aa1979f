package services

import (
	"upam/internal/models"
	"upam/pkg/errors"
	"upam/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResourceService 资源与ACL存储
// 每个资源可带用户/组/角色三类ACL行，reader对应读、author对应删；
// 三类ACL全空的资源不做ACL过滤，特权完全由授权记录决定
type ResourceService struct {
	db *gorm.DB
}

func NewResourceService(db *gorm.DB) *ResourceService {
	return &ResourceService{db: db}
}

// AccessLists 某一类主体的读者/作者id清单
type AccessLists struct {
	Readers []uint `json:"readers,omitempty"`
	Authors []uint `json:"authors,omitempty"`
}

// ACLInput 资源三类ACL的输入
type ACLInput struct {
	Users  AccessLists `json:"users"`
	Groups AccessLists `json:"groups"`
	Roles  AccessLists `json:"roles"`
}

// aclFlags 把读者/作者两份清单并成id到标志位的映射
// 同时出现在两份清单里的id两个标志都置真
func aclFlags(access AccessLists) map[uint]struct{ reader, author bool } {
	flags := make(map[uint]struct{ reader, author bool })
	for _, id := range access.Readers {
		f := flags[id]
		f.reader = true
		flags[id] = f
	}
	for _, id := range access.Authors {
		f := flags[id]
		f.author = true
		flags[id] = f
	}
	return flags
}

// createACLRows 按输入写入三类ACL行
func createACLRows(tx *gorm.DB, resourceID uint, access ACLInput) error {
	if user := aclFlags(access.Users); len(user) > 0 {
		rows := make([]models.UserACL, 0, len(user))
		for id, f := range user {
			rows = append(rows, models.UserACL{
				ResourceID: resourceID, UserID: id, Reader: f.reader, Author: f.author,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	if group := aclFlags(access.Groups); len(group) > 0 {
		rows := make([]models.GroupACL, 0, len(group))
		for id, f := range group {
			rows = append(rows, models.GroupACL{
				ResourceID: resourceID, GroupID: id, Reader: f.reader, Author: f.author,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	if role := aclFlags(access.Roles); len(role) > 0 {
		rows := make([]models.RoleACL, 0, len(role))
		for id, f := range role {
			rows = append(rows, models.RoleACL{
				ResourceID: resourceID, RoleID: id, Reader: f.reader, Author: f.author,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateResource 创建资源并写入初始ACL，资源行和ACL行在一个事务内
func (s *ResourceService) CreateResource(id, applicationID uint, access ACLInput) (*models.Resource, error) {
	resource := &models.Resource{ID: id, ApplicationID: applicationID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(resource).Error; err != nil {
			return err
		}
		return createACLRows(tx, resource.ID, access)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.ErrConflict
		}
		return nil, err
	}
	return s.FindResourceACL(resource.ID)
}

// UpdateResourceACL 整体覆盖资源的ACL：先删光再写入新集合
// 与特权调和不同，这里有意保持简单的全量覆盖语义
func (s *ResourceService) UpdateResourceACL(resourceID uint, access ACLInput) error {
	var resource models.Resource
	if err := s.db.First(&resource, resourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrNotFound
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.UserACL{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.GroupACL{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.RoleACL{}).Error; err != nil {
			return err
		}
		return createACLRows(tx, resourceID, access)
	})
}

// FindResourceACL 资源连同三类ACL行
func (s *ResourceService) FindResourceACL(id uint) (*models.Resource, error) {
	var resource models.Resource
	err := s.db.
		Preload("UserACLs").
		Preload("GroupACLs").
		Preload("RoleACLs").
		First(&resource, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return &resource, nil
}

// FindAllResources 列出应用下的资源
// identity非空时只保留该身份（本人、所属组、持有角色）出现在ACL里的资源
func (s *ResourceService) FindAllResources(applicationID uint, identity *models.Identity, cursor *pagination.CursorParams, desc bool) ([]models.Resource, error) {
	order := "id asc"
	if desc {
		order = "id desc"
	}
	query := s.db.Model(&models.Resource{}).
		Where("application_id = ?", applicationID).
		Order(order)

	if identity != nil {
		roles := identity.RolesOf(applicationID)
		query = query.Where(
			s.db.Where("EXISTS (SELECT 1 FROM user_acls ua WHERE ua.resource_id = resources.id AND ua.user_id = ?)", identity.UserID).
				Or("EXISTS (SELECT 1 FROM group_acls ga WHERE ga.resource_id = resources.id AND ga.group_id IN ?)", emptyAsZero(identity.Groups)).
				Or("EXISTS (SELECT 1 FROM role_acls ra WHERE ra.resource_id = resources.id AND ra.role_id IN ?)", emptyAsZero(roles)),
		)
	}
	if cursor.Start > 0 {
		query = query.Where("id >= ?", cursor.Start)
	} else if cursor.Skip > 0 {
		query = query.Offset(cursor.Skip)
	}

	var resources []models.Resource
	err := query.Limit(cursor.Count).Find(&resources).Error
	return resources, err
}

// RemoveResource 删除资源及其ACL行
// identity非空时只有author（按用户、组、角色任一匹配）才允许删除，
// 返回是否真的发生了删除；未授权和本就不存在都返回false，
// 区分两者需要调用方补一次存在性检查
func (s *ResourceService) RemoveResource(id uint, identity *models.Identity) (bool, error) {
	var resource models.Resource
	if err := s.db.First(&resource, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if identity != nil {
		roles := identity.RolesOf(resource.ApplicationID)
		var count int64
		err := s.db.Model(&models.Resource{}).
			Where("resources.id = ?", id).
			Where(
				s.db.Where("EXISTS (SELECT 1 FROM user_acls ua WHERE ua.resource_id = resources.id AND ua.user_id = ? AND ua.author)", identity.UserID).
					Or("EXISTS (SELECT 1 FROM group_acls ga WHERE ga.resource_id = resources.id AND ga.group_id IN ? AND ga.author)", emptyAsZero(identity.Groups)).
					Or("EXISTS (SELECT 1 FROM role_acls ra WHERE ra.resource_id = resources.id AND ra.role_id IN ? AND ra.author)", emptyAsZero(roles)),
			).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, nil
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", id).Delete(&models.UserACL{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", id).Delete(&models.GroupACL{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", id).Delete(&models.RoleACL{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Resource{}, id).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// emptyAsZero IN空列表在SQL里不合法，用不存在的id 0占位
func emptyAsZero(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{0}
	}
	return ids
}
