package repository

import (
	"errors"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"

	"gorm.io/gorm"
)

// BookingRepository 餐食预约数据访问接口
type BookingRepository interface {
	Create(booking *models.MealBooking) error
	GetByID(id uint) (*models.MealBooking, error)
	GetByUserAndMeal(userID uint, mealCategory string, mealAt time.Time) (*models.MealBooking, error)
	List(filter BookingListFilter) ([]models.MealBooking, int64, error)
	MarkAttended(id uint, userID uint, now time.Time) (int64, error)
	MarkNoShows(deadline time.Time) (int64, error)
	ListAttendedUserIDs(from, to time.Time) ([]uint, error)
	ListMissedUserIDs(from, to time.Time) ([]uint, error)
}

// GormBookingRepository GORM 实现
type GormBookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository 创建餐食预约仓库
func NewBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Create 创建预约
func (r *GormBookingRepository) Create(booking *models.MealBooking) error {
	return r.db.Create(booking).Error
}

// GetByID 根据 ID 获取预约
func (r *GormBookingRepository) GetByID(id uint) (*models.MealBooking, error) {
	var booking models.MealBooking
	if err := r.db.First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// GetByUserAndMeal 查询用户某一餐的预约
func (r *GormBookingRepository) GetByUserAndMeal(userID uint, mealCategory string, mealAt time.Time) (*models.MealBooking, error) {
	if userID == 0 {
		return nil, errors.New("invalid user id")
	}
	var booking models.MealBooking
	err := r.db.Where("user_id = ? AND meal_category = ? AND meal_at = ?", userID, mealCategory, mealAt).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// List 预约列表
func (r *GormBookingRepository) List(filter BookingListFilter) ([]models.MealBooking, int64, error) {
	query := r.db.Model(&models.MealBooking{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.MealCategory != "" {
		query = query.Where("meal_category = ?", filter.MealCategory)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MealFrom != nil {
		query = query.Where("meal_at >= ?", *filter.MealFrom)
	}
	if filter.MealTo != nil {
		query = query.Where("meal_at <= ?", *filter.MealTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var bookings []models.MealBooking
	if err := query.Order("meal_at DESC, id DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// MarkAttended 出席确认
// 条件更新：仅当预约仍为 booked 且归属该用户时成功。
func (r *GormBookingRepository) MarkAttended(id uint, userID uint, now time.Time) (int64, error) {
	if id == 0 || userID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.MealBooking{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, constants.BookingStatusBooked).
		Updates(map[string]interface{}{
			"status":      constants.BookingStatusAttended,
			"attended_at": now,
			"updated_at":  now,
		})
	return result.RowsAffected, result.Error
}

// MarkNoShows 批量标记未出席
// 仅处理用餐时间早于 deadline 且仍为 booked 的预约。
func (r *GormBookingRepository) MarkNoShows(deadline time.Time) (int64, error) {
	result := r.db.Model(&models.MealBooking{}).
		Where("status = ? AND meal_at < ?", constants.BookingStatusBooked, deadline).
		Updates(map[string]interface{}{
			"status":     constants.BookingStatusNoShow,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ListAttendedUserIDs 查询时间段内有出席记录的用户
func (r *GormBookingRepository) ListAttendedUserIDs(from, to time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.MealBooking{}).
		Distinct("user_id").
		Where("status = ? AND meal_at >= ? AND meal_at <= ?", constants.BookingStatusAttended, from, to).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListMissedUserIDs 查询时间段内有未出席预约的用户
func (r *GormBookingRepository) ListMissedUserIDs(from, to time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.MealBooking{}).
		Distinct("user_id").
		Where("status = ? AND meal_at >= ? AND meal_at <= ?", constants.BookingStatusNoShow, from, to).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
