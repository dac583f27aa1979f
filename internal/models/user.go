package models

import (
	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
type User struct {
	BaseModel
	Username     string `json:"username" gorm:"unique;not null;size:50;index"`
	Email        string `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`
	Name         string `json:"name" gorm:"size:100"`
	Status       string `json:"status" gorm:"default:'active';size:20"`
	IsAdmin      bool   `json:"is_admin" gorm:"default:false"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// UserGroup 用户与组的直接成员关系
type UserGroup struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_user_group" json:"user_id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_user_group;index" json:"group_id"`
}

// TableName 表名
func (UserGroup) TableName() string {
	return "user_groups"
}

// SetPassword 设置密码 - 数据操作方法
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码 - 数据操作方法
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
