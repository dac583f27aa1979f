package services

import (
	"context"
	"fmt"
	"time"

	"upam/internal/models"
	"upam/pkg/cache"
	apperrors "upam/pkg/errors"
	"upam/pkg/hierarchy"
	"upam/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 改密验证码的缓存键前缀和有效期
const (
	passwordChallengePrefix = "pwdchange"
	passwordChallengeTTL    = 10 * time.Minute
)

// UserService 用户服务
type UserService struct {
	db     *gorm.DB
	cache  *cache.Cache
	groups *GroupService
}

func NewUserService(db *gorm.DB, c *cache.Cache) *UserService {
	return &UserService{
		db:     db,
		cache:  c,
		groups: NewGroupService(db),
	}
}

// Create 创建用户，可同时按全名挂入若干组（组不存在则创建）
func (s *UserService) Create(username, email, password string, groupNames []string) (*models.User, error) {
	if err := hierarchy.VerifyName(username); err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Status:   models.UserStatusActive,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}

	for _, fullName := range groupNames {
		group, err := s.groups.Create(fullName, nil)
		if err != nil {
			return nil, err
		}
		if _, err := s.groups.AppendUser([]uint{user.ID}, group.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// GetByID 按主键查询用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 按用户名查询用户
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List 分页列出用户
func (s *UserService) List(params *pagination.PageParams) ([]models.User, *pagination.PageInfo, error) {
	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var users []models.User
	err := s.db.Order("id ASC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&users).Error
	if err != nil {
		return nil, nil, err
	}
	return users, pagination.NewPageInfo(params.Page, params.PageSize, total), nil
}

// Login 校验用户名密码，通过时返回用户
func (s *UserService) Login(username, password string) (*models.User, error) {
	user, err := s.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, fmt.Errorf("用户已停用")
	}
	if !user.CheckPassword(password) {
		return nil, fmt.Errorf("用户名或密码错误")
	}
	return user, nil
}

// RequestPasswordChange 发起改密流程，签发一次性验证码
func (s *UserService) RequestPasswordChange(ctx context.Context, userID uint) (string, error) {
	if _, err := s.GetByID(userID); err != nil {
		return "", err
	}
	code := uuid.NewString()
	key := fmt.Sprintf("%s:%d", passwordChallengePrefix, userID)
	if err := s.cache.Set(ctx, key, code, passwordChallengeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// ChangePassword 凭验证码改密，验证码用后即焚
func (s *UserService) ChangePassword(ctx context.Context, userID uint, code, newPassword string) error {
	key := fmt.Sprintf("%s:%d", passwordChallengePrefix, userID)
	expected, err := s.cache.Get(ctx, key)
	if err != nil {
		if err == cache.ErrCacheMiss {
			return fmt.Errorf("验证码不存在或已过期")
		}
		return err
	}
	if expected != code {
		return fmt.Errorf("验证码错误")
	}

	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return err
	}
	return s.cache.Delete(ctx, key)
}

// SetStatus 启停用户
func (s *UserService) SetStatus(id uint, status string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
