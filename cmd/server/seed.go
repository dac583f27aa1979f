package main

import (
	"fmt"

	"upam/internal/database"
	"upam/internal/models"
	"upam/pkg/logger"

	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	db := database.GetDB()

	// 1. 创建默认应用
	if err := createDefaultApplication(db); err != nil {
		return fmt.Errorf("创建默认应用失败: %v", err)
	}

	// 2. 创建默认管理员用户
	if err := createDefaultAdmin(db); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDefaultApplication 创建默认应用
func createDefaultApplication(db *gorm.DB) error {
	var count int64
	db.Model(&models.Application{}).Where("name = ?", "default").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("默认应用已存在，跳过创建")
		return nil
	}

	application := &models.Application{Name: "default"}
	if err := db.Create(application).Error; err != nil {
		return err
	}

	logger.GetLogger().Info("默认应用创建成功")
	return nil
}

// createDefaultAdmin 创建默认管理员用户
func createDefaultAdmin(db *gorm.DB) error {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("管理员用户已存在，跳过创建")
		return nil
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@localhost",
		Name:     "系统管理员",
		Status:   models.UserStatusActive,
		IsAdmin:  true,
	}
	if err := admin.SetPassword("Admin@123"); err != nil {
		return err
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	logger.GetLogger().Warn("管理员用户创建成功，默认密码为 Admin@123，请尽快修改")
	return nil
}
