package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenmess-next/internal/cache"
	"github.com/greenmess-next/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
)

// DashboardService 仪表盘服务
// 说明：聚合管理端首页的减废核心数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string       `json:"range"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	Timezone string       `json:"timezone"`
	KPI      DashboardKPI `json:"kpi"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	RecordsTotal      int64  `json:"records_total"`
	AvailableRecords  int64  `json:"available_records"`
	ClaimedRecords    int64  `json:"claimed_records"`
	CollectedRecords  int64  `json:"collected_records"`
	ExpiredRecords    int64  `json:"expired_records"`
	CollectedQuantity string `json:"collected_quantity"`
	ExpiredQuantity   string `json:"expired_quantity"`
	RescueRate        string `json:"rescue_rate"`
	NewUsers          int64  `json:"new_users"`
	ActiveNGOs        int64  `json:"active_ngos"`
	CreditsIssued     int64  `json:"credits_issued"`
	BookingsTotal     int64  `json:"bookings_total"`
	BookingsAttended  int64  `json:"bookings_attended"`
	BookingsNoShow    int64  `json:"bookings_no_show"`
	AttendanceRate    string `json:"attendance_rate"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date            string `json:"date"`
	RecordsTotal    int64  `json:"records_total"`
	RecordsClaimed  int64  `json:"records_claimed"`
	RecordsExpired  int64  `json:"records_expired"`
	QuantityCovered string `json:"quantity_covered"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range        string                     `json:"range"`
	From         string                     `json:"from"`
	To           string                     `json:"to"`
	Timezone     string                     `json:"timezone"`
	TopLocations []DashboardLocationRanking `json:"top_locations"`
	TopClaimants []DashboardClaimantRanking `json:"top_claimants"`
}

// DashboardLocationRanking 来源地点排行项
type DashboardLocationRanking struct {
	SourceLocation string `json:"source_location"`
	RecordsTotal   int64  `json:"records_total"`
	Collected      int64  `json:"collected"`
	Expired        int64  `json:"expired"`
	TotalQuantity  string `json:"total_quantity"`
}

// DashboardClaimantRanking 认领方排行项
type DashboardClaimantRanking struct {
	UserID            uint   `json:"user_id"`
	DisplayName       string `json:"display_name"`
	Organization      string `json:"organization"`
	ClaimedCount      int64  `json:"claimed_count"`
	CollectedCount    int64  `json:"collected_count"`
	CollectedQuantity string `json:"collected_quantity"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	bookingStats, err := s.repo.GetBookingStats(window.startAt, window.endAt)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	rescueRate := 0.0
	settled := overview.CollectedRecords + overview.ExpiredRecords
	if settled > 0 {
		rescueRate = float64(overview.CollectedRecords) / float64(settled) * 100
	}
	attendanceRate := 0.0
	if bookingStats.BookingsTotal > 0 {
		attendanceRate = float64(bookingStats.Attended) / float64(bookingStats.BookingsTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			RecordsTotal:      overview.RecordsTotal,
			AvailableRecords:  overview.AvailableRecords,
			ClaimedRecords:    overview.ClaimedRecords,
			CollectedRecords:  overview.CollectedRecords,
			ExpiredRecords:    overview.ExpiredRecords,
			CollectedQuantity: formatQuantityValue(overview.CollectedQuantity),
			ExpiredQuantity:   formatQuantityValue(overview.ExpiredQuantity),
			RescueRate:        formatPercentValue(rescueRate),
			NewUsers:          overview.NewUsers,
			ActiveNGOs:        overview.ActiveNGOs,
			CreditsIssued:     overview.CreditsIssued,
			BookingsTotal:     bookingStats.BookingsTotal,
			BookingsAttended:  bookingStats.Attended,
			BookingsNoShow:    bookingStats.NoShows,
			AttendanceRate:    formatPercentValue(attendanceRate),
		},
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取仪表盘趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetSurplusTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	rowMap := make(map[string]repository.DashboardSurplusTrendRow, len(rows))
	for _, item := range rows {
		rowMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		item := rowMap[day]
		points = append(points, DashboardTrendPoint{
			Date:            day,
			RecordsTotal:    item.RecordsTotal,
			RecordsClaimed:  item.RecordsClaimed,
			RecordsExpired:  item.RecordsExpired,
			QuantityCovered: formatQuantityValue(item.QuantityCovered),
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取仪表盘排行榜
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput, limit int) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s:%d", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone, limit)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	locationRows, err := s.repo.GetTopLocations(window.startAt, window.endAt, limit)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	claimantRows, err := s.repo.GetTopClaimants(window.startAt, window.endAt, limit)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	topLocations := make([]DashboardLocationRanking, 0, len(locationRows))
	for _, row := range locationRows {
		topLocations = append(topLocations, DashboardLocationRanking{
			SourceLocation: row.SourceLocation,
			RecordsTotal:   row.RecordsTotal,
			Collected:      row.Collected,
			Expired:        row.Expired,
			TotalQuantity:  formatQuantityValue(row.TotalQuantity),
		})
	}
	topClaimants := make([]DashboardClaimantRanking, 0, len(claimantRows))
	for _, row := range claimantRows {
		topClaimants = append(topClaimants, DashboardClaimantRanking{
			UserID:            row.ClaimedBy,
			DisplayName:       row.DisplayName,
			Organization:      row.Organization,
			ClaimedCount:      row.ClaimedCount,
			CollectedCount:    row.CollectedDone,
			CollectedQuantity: formatQuantityValue(row.CollectedQty),
		})
	}

	response := &DashboardRankingsResponse{
		Range:        window.rangeKey,
		From:         window.startAt.Format(time.RFC3339),
		To:           window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:     window.timezone,
		TopLocations: topLocations,
		TopClaimants: topClaimants,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatQuantityValue(value float64) string {
	return fmt.Sprintf("%.3f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
