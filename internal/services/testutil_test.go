package services

import (
	"testing"

	"upam/internal/database"
	"upam/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 每个测试一份独立的内存库
// 单连接保证内存库在测试期间不被回收，同时让并发写入串行化
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.MigrateDB(db))
	return db
}

// mustApplication 建一个应用作为测试夹具
func mustApplication(t *testing.T, db *gorm.DB, name string) *models.Application {
	t.Helper()
	app := &models.Application{Name: name}
	require.NoError(t, db.Create(app).Error)
	return app
}

// mustUser 建一个用户作为测试夹具
func mustUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("secret123"))
	require.NoError(t, db.Create(user).Error)
	return user
}
