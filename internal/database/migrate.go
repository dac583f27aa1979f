package database

import (
	"upam/internal/models"
	"upam/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := MigrateDB(DB)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}

// MigrateDB 在指定连接上建表
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Application{},
		&models.User{},
		&models.UserGroup{},
		&models.Group{},
		&models.GroupMember{},
		&models.Role{},
		&models.RoleInherit{},
		&models.RoleUserAssignment{},
		&models.RoleGroupAssignment{},
		&models.PrivilegeUserAssignment{},
		&models.PrivilegeGroupAssignment{},
		&models.PrivilegeRoleAssignment{},
		&models.Resource{},
		&models.UserACL{},
		&models.GroupACL{},
		&models.RoleACL{},
	)
}
