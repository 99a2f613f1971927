package repository

import (
	"errors"

	"github.com/greenmess-next/internal/models"

	"gorm.io/gorm"
)

// RewardRepository 积分流水数据访问接口
type RewardRepository interface {
	Create(txn *models.RewardTransaction) error
	GetByTypeAndRef(userID uint, txnType string, refID uint) (*models.RewardTransaction, error)
	List(filter RewardListFilter) ([]models.RewardTransaction, int64, error)
	SumByUser(userID uint) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormRewardRepository
}

// GormRewardRepository GORM 实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建积分流水仓库
func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardRepository) WithTx(tx *gorm.DB) *GormRewardRepository {
	if tx == nil {
		return r
	}
	return &GormRewardRepository{db: tx}
}

// Transaction 执行事务
func (r *GormRewardRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 写入一条积分流水
func (r *GormRewardRepository) Create(txn *models.RewardTransaction) error {
	return r.db.Create(txn).Error
}

// GetByTypeAndRef 按类型与关联单据查询流水，用于发放幂等判断。
func (r *GormRewardRepository) GetByTypeAndRef(userID uint, txnType string, refID uint) (*models.RewardTransaction, error) {
	if userID == 0 || refID == 0 {
		return nil, nil
	}
	var txn models.RewardTransaction
	err := r.db.Where("user_id = ? AND type = ? AND ref_id = ?", userID, txnType, refID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// List 积分流水列表
func (r *GormRewardRepository) List(filter RewardListFilter) ([]models.RewardTransaction, int64, error) {
	query := r.db.Model(&models.RewardTransaction{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.RewardTransaction
	if err := query.Order("created_at DESC, id DESC").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// SumByUser 汇总用户累计积分变动
func (r *GormRewardRepository) SumByUser(userID uint) (int64, error) {
	var sum int64
	err := r.db.Model(&models.RewardTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
