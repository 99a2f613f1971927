package repository

import (
	"errors"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"

	"gorm.io/gorm"
)

// SurplusRepository 余量记录数据访问接口
type SurplusRepository interface {
	Create(record *models.SurplusRecord) error
	GetByID(id uint) (*models.SurplusRecord, error)
	ListAvailable(filter SurplusListFilter, now time.Time) ([]models.SurplusRecord, int64, error)
	ListByClaimant(filter ClaimListFilter) ([]models.SurplusRecord, int64, error)
	ListAdmin(filter SurplusListFilter) ([]models.SurplusRecord, int64, error)
	Claim(id uint, claimedBy uint, now time.Time) (int64, error)
	MarkCollected(id uint, claimedBy uint, now time.Time, notes string) (int64, error)
	ExpireAvailable(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormSurplusRepository
}

// GormSurplusRepository GORM 实现
type GormSurplusRepository struct {
	db *gorm.DB
}

// NewSurplusRepository 创建余量记录仓库
func NewSurplusRepository(db *gorm.DB) *GormSurplusRepository {
	return &GormSurplusRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSurplusRepository) WithTx(tx *gorm.DB) *GormSurplusRepository {
	if tx == nil {
		return r
	}
	return &GormSurplusRepository{db: tx}
}

// Create 创建余量记录
func (r *GormSurplusRepository) Create(record *models.SurplusRecord) error {
	return r.db.Create(record).Error
}

// GetByID 根据 ID 获取余量记录
func (r *GormSurplusRepository) GetByID(id uint) (*models.SurplusRecord, error) {
	var record models.SurplusRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListAvailable 获取可认领的余量记录列表
// 读取时按 expiry_at 二次过滤，避免依赖过期清扫的执行时点。
func (r *GormSurplusRepository) ListAvailable(filter SurplusListFilter, now time.Time) ([]models.SurplusRecord, int64, error) {
	query := r.db.Model(&models.SurplusRecord{}).
		Where("status = ? AND expiry_at > ?", constants.SurplusStatusAvailable, now)
	if filter.MealCategory != "" {
		query = query.Where("meal_category = ?", filter.MealCategory)
	}
	if filter.SourceLocation != "" {
		query = query.Where("source_location = ?", filter.SourceLocation)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.SurplusRecord
	if err := query.Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListByClaimant 获取认领方的余量记录列表
func (r *GormSurplusRepository) ListByClaimant(filter ClaimListFilter) ([]models.SurplusRecord, int64, error) {
	if filter.ClaimedBy == 0 {
		return nil, 0, errors.New("invalid claimant id")
	}
	query := r.db.Model(&models.SurplusRecord{}).Where("claimed_by = ?", filter.ClaimedBy)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.SurplusRecord
	if err := query.Order("claimed_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAdmin 管理端获取余量记录列表
func (r *GormSurplusRepository) ListAdmin(filter SurplusListFilter) ([]models.SurplusRecord, int64, error) {
	query := r.db.Model(&models.SurplusRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MealCategory != "" {
		query = query.Where("meal_category = ?", filter.MealCategory)
	}
	if filter.SourceLocation != "" {
		query = query.Where("source_location = ?", filter.SourceLocation)
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

	var records []models.SurplusRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Claim 认领余量记录
// 单条条件更新：仅当记录仍为 available 且未过期时成功，
// 受影响行数为 0 表示竞争失败或已过期，由调用方回读判定原因。
func (r *GormSurplusRepository) Claim(id uint, claimedBy uint, now time.Time) (int64, error) {
	if id == 0 || claimedBy == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.SurplusRecord{}).
		Where("id = ? AND status = ? AND expiry_at > ?", id, constants.SurplusStatusAvailable, now).
		Updates(map[string]interface{}{
			"status":     constants.SurplusStatusClaimed,
			"claimed_by": claimedBy,
			"claimed_at": now,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// MarkCollected 确认领取完成
// 仅当记录处于 claimed 状态且认领方匹配时成功。
func (r *GormSurplusRepository) MarkCollected(id uint, claimedBy uint, now time.Time, notes string) (int64, error) {
	if id == 0 || claimedBy == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"status":       constants.SurplusStatusCollected,
		"collected_at": now,
		"updated_at":   now,
	}
	if notes != "" {
		updates["notes"] = notes
	}
	result := r.db.Model(&models.SurplusRecord{}).
		Where("id = ? AND status = ? AND claimed_by = ?", id, constants.SurplusStatusClaimed, claimedBy).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ExpireAvailable 批量过期清扫
// 仅处理 available 记录，claimed 记录不参与过期；
// 与 Claim 使用同一条件更新原语，单条记录上二者只会有一方生效。
func (r *GormSurplusRepository) ExpireAvailable(now time.Time) (int64, error) {
	result := r.db.Model(&models.SurplusRecord{}).
		Where("status = ? AND expiry_at < ?", constants.SurplusStatusAvailable, now).
		Updates(map[string]interface{}{
			"status":     constants.SurplusStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
