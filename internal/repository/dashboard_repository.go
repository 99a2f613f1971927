package repository

import (
	"fmt"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetSurplusTrends(startAt, endAt time.Time) ([]DashboardSurplusTrendRow, error)
	GetTopLocations(startAt, endAt time.Time, limit int) ([]DashboardLocationRankingRow, error)
	GetTopClaimants(startAt, endAt time.Time, limit int) ([]DashboardClaimantRankingRow, error)
	GetBookingStats(startAt, endAt time.Time) (DashboardBookingStatsRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	RecordsTotal      int64
	AvailableRecords  int64
	ClaimedRecords    int64
	CollectedRecords  int64
	ExpiredRecords    int64
	CollectedQuantity float64
	ExpiredQuantity   float64
	NewUsers          int64
	ActiveNGOs        int64
	CreditsIssued     int64
}

// DashboardSurplusTrendRow 余量记录趋势统计
type DashboardSurplusTrendRow struct {
	Day             string
	RecordsTotal    int64
	RecordsClaimed  int64
	RecordsExpired  int64
	QuantityCovered float64
}

// DashboardLocationRankingRow 来源地点排行原始行
type DashboardLocationRankingRow struct {
	SourceLocation string
	RecordsTotal   int64
	Collected      int64
	Expired        int64
	TotalQuantity  float64
}

// DashboardClaimantRankingRow 认领方排行原始行
type DashboardClaimantRankingRow struct {
	ClaimedBy     uint
	DisplayName   string
	Organization  string
	ClaimedCount  int64
	CollectedQty  float64
	CollectedDone int64
}

// DashboardBookingStatsRow 餐食预约统计
type DashboardBookingStatsRow struct {
	BookingsTotal int64
	Attended      int64
	NoShows       int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	recordBase := func() *gorm.DB {
		return r.db.Model(&models.SurplusRecord{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := recordBase().Count(&result.RecordsTotal).Error; err != nil {
		return result, err
	}
	if err := recordBase().Where("status = ?", constants.SurplusStatusAvailable).Count(&result.AvailableRecords).Error; err != nil {
		return result, err
	}
	if err := recordBase().Where("status = ?", constants.SurplusStatusClaimed).Count(&result.ClaimedRecords).Error; err != nil {
		return result, err
	}
	if err := recordBase().Where("status = ?", constants.SurplusStatusCollected).Count(&result.CollectedRecords).Error; err != nil {
		return result, err
	}
	if err := recordBase().Where("status = ?", constants.SurplusStatusExpired).Count(&result.ExpiredRecords).Error; err != nil {
		return result, err
	}

	if err := recordBase().Where("status = ?", constants.SurplusStatusCollected).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&result.CollectedQuantity).Error; err != nil {
		return result, err
	}
	if err := recordBase().Where("status = ?", constants.SurplusStatusExpired).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&result.ExpiredQuantity).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewUsers).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.User{}).
		Where("role = ? AND status = ?", constants.UserRoleNGO, constants.UserStatusActive).
		Count(&result.ActiveNGOs).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.RewardTransaction{}).
		Where("created_at >= ? AND created_at < ? AND amount > 0", startAt, endAt).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.CreditsIssued).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetSurplusTrends 获取余量记录趋势
func (r *GormDashboardRepository) GetSurplusTrends(startAt, endAt time.Time) ([]DashboardSurplusTrendRow, error) {
	type totalRow struct {
		Day      string
		Total    int64
		Quantity float64
	}
	type statusRow struct {
		Day   string
		Total int64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"

	var totals []totalRow
	if err := r.db.Model(&models.SurplusRecord{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total, COALESCE(SUM(quantity), 0) as quantity", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var claimed []statusRow
	if err := r.db.Model(&models.SurplusRecord{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ? AND status IN ?", startAt, endAt,
			[]string{constants.SurplusStatusClaimed, constants.SurplusStatusCollected}).
		Group(dayExpr).
		Order("day asc").
		Scan(&claimed).Error; err != nil {
		return nil, err
	}

	var expired []statusRow
	if err := r.db.Model(&models.SurplusRecord{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ? AND status = ?", startAt, endAt, constants.SurplusStatusExpired).
		Group(dayExpr).
		Order("day asc").
		Scan(&expired).Error; err != nil {
		return nil, err
	}

	claimedMap := make(map[string]int64, len(claimed))
	for _, item := range claimed {
		claimedMap[item.Day] = item.Total
	}
	expiredMap := make(map[string]int64, len(expired))
	for _, item := range expired {
		expiredMap[item.Day] = item.Total
	}

	result := make([]DashboardSurplusTrendRow, 0, len(totals))
	for _, item := range totals {
		result = append(result, DashboardSurplusTrendRow{
			Day:             item.Day,
			RecordsTotal:    item.Total,
			RecordsClaimed:  claimedMap[item.Day],
			RecordsExpired:  expiredMap[item.Day],
			QuantityCovered: item.Quantity,
		})
	}
	return result, nil
}

// GetTopLocations 获取来源地点排行榜
func (r *GormDashboardRepository) GetTopLocations(startAt, endAt time.Time, limit int) ([]DashboardLocationRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardLocationRankingRow, 0)
	if err := r.db.Model(&models.SurplusRecord{}).
		Select(`
			source_location,
			COUNT(*) as records_total,
			SUM(CASE WHEN status = 'collected' THEN 1 ELSE 0 END) as collected,
			SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END) as expired,
			COALESCE(SUM(quantity), 0) as total_quantity
		`).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group("source_location").
		Order("records_total DESC, total_quantity DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopClaimants 获取认领方排行榜
func (r *GormDashboardRepository) GetTopClaimants(startAt, endAt time.Time, limit int) ([]DashboardClaimantRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardClaimantRankingRow, 0)
	if err := r.db.Model(&models.SurplusRecord{}).
		Select(`
			surplus_records.claimed_by as claimed_by,
			COALESCE(users.display_name, '') as display_name,
			COALESCE(users.organization, '') as organization,
			COUNT(*) as claimed_count,
			SUM(CASE WHEN surplus_records.status = 'collected' THEN 1 ELSE 0 END) as collected_done,
			COALESCE(SUM(CASE WHEN surplus_records.status = 'collected' THEN surplus_records.quantity ELSE 0 END), 0) as collected_qty
		`).
		Joins("LEFT JOIN users ON users.id = surplus_records.claimed_by").
		Where("surplus_records.claimed_at >= ? AND surplus_records.claimed_at < ? AND surplus_records.claimed_by IS NOT NULL", startAt, endAt).
		Group("surplus_records.claimed_by, users.display_name, users.organization").
		Order("collected_qty DESC, claimed_count DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetBookingStats 获取餐食预约统计
func (r *GormDashboardRepository) GetBookingStats(startAt, endAt time.Time) (DashboardBookingStatsRow, error) {
	result := DashboardBookingStatsRow{}

	bookingBase := func() *gorm.DB {
		return r.db.Model(&models.MealBooking{}).
			Where("meal_at >= ? AND meal_at < ?", startAt, endAt)
	}

	if err := bookingBase().Count(&result.BookingsTotal).Error; err != nil {
		return result, err
	}
	if err := bookingBase().Where("status = ?", constants.BookingStatusAttended).Count(&result.Attended).Error; err != nil {
		return result, err
	}
	if err := bookingBase().Where("status = ?", constants.BookingStatusNoShow).Count(&result.NoShows).Error; err != nil {
		return result, err
	}

	return result, nil
}
