package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	ListByIDs(ids []uint) ([]models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	List(filter UserListFilter) ([]models.User, int64, error)
	ListActiveIDsByRole(role string) ([]uint, error)
	BatchUpdateStatus(userIDs []uint, status string) error
	AddGreenCredits(userID uint, delta int64) error
	IncrementStreaks(userIDs []uint) error
	ResetStreaks(userIDs []uint) error
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByEmail 根据邮箱获取用户
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListByIDs 批量获取用户
func (r *GormUserRepository) ListByIDs(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// List 用户列表
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("email LIKE ? OR display_name LIKE ? OR organization LIKE ?", like, like, like)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Hostel != "" {
		query = query.Where("hostel = ?", filter.Hostel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var users []models.User
	if err := query.Order("id DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListActiveIDsByRole 获取指定角色的活跃用户 ID 列表
func (r *GormUserRepository) ListActiveIDsByRole(role string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).
		Where("role = ? AND status = ?", role, constants.UserStatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// BatchUpdateStatus 批量更新用户状态
func (r *GormUserRepository) BatchUpdateStatus(userIDs []uint, status string) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if strings.ToLower(strings.TrimSpace(status)) == constants.UserStatusDisabled {
		updates["token_invalid_before"] = now
		updates["token_version"] = gorm.Expr("token_version + 1")
	}
	return r.db.Model(&models.User{}).Where("id IN ?", userIDs).Updates(updates).Error
}

// AddGreenCredits 原子增加绿色积分
func (r *GormUserRepository) AddGreenCredits(userID uint, delta int64) error {
	if userID == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("green_credits", gorm.Expr("green_credits + ?", delta)).Error
}

// IncrementStreaks 批量递增连续出席天数
func (r *GormUserRepository) IncrementStreaks(userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id IN ?", userIDs).
		Update("streak", gorm.Expr("streak + 1")).Error
}

// ResetStreaks 批量清零连续出席天数
func (r *GormUserRepository) ResetStreaks(userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id IN ?", userIDs).
		Update("streak", 0).Error
}
