package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupDashboardRepositoryTest(t *testing.T) (*GormDashboardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.SurplusRecord{}, &models.MealBooking{}, &models.RewardTransaction{}); err != nil {
		t.Fatalf("migrate dashboard models failed: %v", err)
	}
	return NewDashboardRepository(db), db
}

func seedDashboardSurplus(t *testing.T, db *gorm.DB, status string, location string, quantity float64, createdAt time.Time, claimedBy *uint) {
	t.Helper()
	record := models.SurplusRecord{
		MealCategory:   constants.MealCategoryLunch,
		SourceLocation: location,
		Quantity:       models.NewQuantityFromFloat(quantity),
		Unit:           constants.SurplusUnitKG,
		ExpiryAt:       createdAt.Add(4 * time.Hour),
		Status:         status,
		ReportedBy:     1,
		ClaimedBy:      claimedBy,
	}
	if claimedBy != nil {
		claimedAt := createdAt.Add(30 * time.Minute)
		record.ClaimedAt = &claimedAt
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed surplus record failed: %v", err)
	}
	// AutoMigrate 时间戳由 GORM 填充，这里回写统计所需的创建时间
	if err := db.Model(&models.SurplusRecord{}).Where("id = ?", record.ID).
		Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate surplus record failed: %v", err)
	}
}

func TestGetOverviewAggregatesWindow(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()
	startAt := now.Add(-24 * time.Hour)
	endAt := now.Add(time.Hour)

	ngo := models.User{
		ID:           2,
		Email:        "overview_ngo@example.com",
		PasswordHash: "hash",
		Role:         constants.UserRoleNGO,
		Organization: "FoodBridge Foundation",
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&ngo).Error; err != nil {
		t.Fatalf("seed ngo failed: %v", err)
	}

	claimant := ngo.ID
	seedDashboardSurplus(t, db, constants.SurplusStatusCollected, "North Mess", 10, now.Add(-2*time.Hour), &claimant)
	seedDashboardSurplus(t, db, constants.SurplusStatusExpired, "North Mess", 4, now.Add(-3*time.Hour), nil)
	seedDashboardSurplus(t, db, constants.SurplusStatusAvailable, "South Mess", 6, now.Add(-time.Hour), nil)
	// 窗口之外的记录不应计入
	seedDashboardSurplus(t, db, constants.SurplusStatusCollected, "South Mess", 99, now.Add(-72*time.Hour), &claimant)

	txns := []models.RewardTransaction{
		{UserID: 2, Type: constants.RewardTxnTypeCollection, Amount: 20, Balance: 20, RefID: 1, CreatedAt: now.Add(-time.Hour)},
		{UserID: 2, Type: constants.RewardTxnTypeAdminAdjust, Amount: -5, Balance: 15, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range txns {
		if err := db.Create(&txns[i]).Error; err != nil {
			t.Fatalf("seed reward transaction failed: %v", err)
		}
	}

	overview, err := repo.GetOverview(startAt, endAt)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if overview.RecordsTotal != 3 {
		t.Fatalf("expected 3 records in window, got %d", overview.RecordsTotal)
	}
	if overview.CollectedRecords != 1 || overview.ExpiredRecords != 1 || overview.AvailableRecords != 1 {
		t.Fatalf("unexpected status counts: %+v", overview)
	}
	if overview.CollectedQuantity != 10 {
		t.Fatalf("expected collected quantity 10, got %v", overview.CollectedQuantity)
	}
	if overview.ExpiredQuantity != 4 {
		t.Fatalf("expected expired quantity 4, got %v", overview.ExpiredQuantity)
	}
	if overview.ActiveNGOs != 1 {
		t.Fatalf("expected 1 active ngo, got %d", overview.ActiveNGOs)
	}
	// 只统计正向发放
	if overview.CreditsIssued != 20 {
		t.Fatalf("expected credits issued 20, got %d", overview.CreditsIssued)
	}
}

func TestGetSurplusTrendsGroupsByDay(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	dayOne := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	dayTwo := dayOne.AddDate(0, 0, 1)

	claimant := uint(7)
	seedDashboardSurplus(t, db, constants.SurplusStatusCollected, "North Mess", 5, dayOne, &claimant)
	seedDashboardSurplus(t, db, constants.SurplusStatusExpired, "North Mess", 2, dayOne, nil)
	seedDashboardSurplus(t, db, constants.SurplusStatusAvailable, "South Mess", 3, dayTwo, nil)

	rows, err := repo.GetSurplusTrends(dayOne.Add(-time.Hour), dayTwo.Add(time.Hour))
	if err != nil {
		t.Fatalf("get trends failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 trend rows, got %d", len(rows))
	}
	first := rows[0]
	if first.Day != "2026-08-20" {
		t.Fatalf("unexpected first day: %s", first.Day)
	}
	if first.RecordsTotal != 2 || first.RecordsClaimed != 1 || first.RecordsExpired != 1 {
		t.Fatalf("unexpected first day stats: %+v", first)
	}
	if rows[1].RecordsTotal != 1 || rows[1].RecordsClaimed != 0 {
		t.Fatalf("unexpected second day stats: %+v", rows[1])
	}
}

func TestGetTopClaimantsJoinsUserInfo(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	users := []models.User{
		{ID: 10, Email: "rank_a@example.com", PasswordHash: "hash", DisplayName: "FoodBridge", Role: constants.UserRoleNGO, Organization: "FoodBridge Foundation", Status: constants.UserStatusActive},
		{ID: 11, Email: "rank_b@example.com", PasswordHash: "hash", DisplayName: "Meals For All", Role: constants.UserRoleNGO, Organization: "Meals For All Trust", Status: constants.UserStatusActive},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("seed user failed: %v", err)
		}
	}

	heavy := users[0].ID
	light := users[1].ID
	seedDashboardSurplus(t, db, constants.SurplusStatusCollected, "North Mess", 20, now.Add(-2*time.Hour), &heavy)
	seedDashboardSurplus(t, db, constants.SurplusStatusCollected, "North Mess", 8, now.Add(-3*time.Hour), &heavy)
	seedDashboardSurplus(t, db, constants.SurplusStatusClaimed, "South Mess", 5, now.Add(-time.Hour), &light)

	rows, err := repo.GetTopClaimants(now.Add(-24*time.Hour), now.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("get top claimants failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 claimants, got %d", len(rows))
	}
	if rows[0].ClaimedBy != heavy {
		t.Fatalf("expected heaviest claimant first, got %d", rows[0].ClaimedBy)
	}
	if rows[0].Organization != "FoodBridge Foundation" {
		t.Fatalf("expected organization joined, got %q", rows[0].Organization)
	}
	if rows[0].ClaimedCount != 2 || rows[0].CollectedDone != 2 {
		t.Fatalf("unexpected top claimant stats: %+v", rows[0])
	}
	if rows[1].CollectedDone != 0 {
		t.Fatalf("claimed-only records must not count as collected: %+v", rows[1])
	}
}

func TestGetTopLocationsOrdersByVolume(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	seedDashboardSurplus(t, db, constants.SurplusStatusCollected, "North Mess", 10, now.Add(-2*time.Hour), nil)
	seedDashboardSurplus(t, db, constants.SurplusStatusExpired, "North Mess", 5, now.Add(-2*time.Hour), nil)
	seedDashboardSurplus(t, db, constants.SurplusStatusAvailable, "South Mess", 3, now.Add(-time.Hour), nil)

	rows, err := repo.GetTopLocations(now.Add(-24*time.Hour), now.Add(time.Hour), 1)
	if err != nil {
		t.Fatalf("get top locations failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected limit to apply, got %d rows", len(rows))
	}
	if rows[0].SourceLocation != "North Mess" || rows[0].RecordsTotal != 2 {
		t.Fatalf("unexpected top location: %+v", rows[0])
	}
	if rows[0].Collected != 1 || rows[0].Expired != 1 {
		t.Fatalf("unexpected location status breakdown: %+v", rows[0])
	}
}

func TestGetBookingStatsCountsWindow(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	bookings := []models.MealBooking{
		{UserID: 1, MealCategory: constants.MealCategoryLunch, MealAt: now.Add(-2 * time.Hour), Status: constants.BookingStatusAttended},
		{UserID: 1, MealCategory: constants.MealCategoryDinner, MealAt: now.Add(-time.Hour), Status: constants.BookingStatusNoShow},
		{UserID: 2, MealCategory: constants.MealCategoryLunch, MealAt: now.Add(time.Hour), Status: constants.BookingStatusBooked},
		{UserID: 2, MealCategory: constants.MealCategoryLunch, MealAt: now.Add(-48 * time.Hour), Status: constants.BookingStatusAttended},
	}
	for i := range bookings {
		if err := db.Create(&bookings[i]).Error; err != nil {
			t.Fatalf("seed booking failed: %v", err)
		}
	}

	stats, err := repo.GetBookingStats(now.Add(-24*time.Hour), now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("get booking stats failed: %v", err)
	}
	if stats.BookingsTotal != 3 {
		t.Fatalf("expected 3 bookings in window, got %d", stats.BookingsTotal)
	}
	if stats.Attended != 1 || stats.NoShows != 1 {
		t.Fatalf("unexpected booking breakdown: %+v", stats)
	}
}
