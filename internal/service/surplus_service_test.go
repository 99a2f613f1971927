package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSurplusServiceTest(t *testing.T) (*SurplusService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:surplus_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.SurplusRecord{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	surplusRepo := repository.NewSurplusRepository(db)
	return NewSurplusService(surplusRepo, nil, 12, 20), db
}

func logTestSurplus(t *testing.T, svc *SurplusService, reportedBy uint) *models.SurplusRecord {
	t.Helper()
	record, err := svc.LogSurplus(LogSurplusInput{
		ReportedBy:     reportedBy,
		SourceLocation: "North Mess",
		MealCategory:   constants.MealCategoryLunch,
		Quantity:       decimal.NewFromFloat(12.5),
		Unit:           constants.SurplusUnitKG,
		FoodItems: []models.FoodItem{
			{Name: "Vegetable Pulao", Quantity: 8, Vegetarian: true},
		},
		ExpiryAt: time.Now().Add(4 * time.Hour),
	})
	if err != nil {
		t.Fatalf("log surplus failed: %v", err)
	}
	return record
}

func TestLogSurplusCollectsAllInvalidFields(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)

	_, err := svc.LogSurplus(LogSurplusInput{
		ReportedBy:     1,
		SourceLocation: "  ",
		MealCategory:   "brunch",
		Quantity:       decimal.Zero,
		Unit:           "barrels",
		ExpiryAt:       time.Now().Add(-time.Hour),
		Quality:        "stale",
		FoodItems:      []models.FoodItem{{Name: "", Quantity: 0}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	got := ValidationFields(err)
	want := []string{"source_location", "meal_category", "quantity", "unit", "expiry_at", "quality", "food_items"}
	if len(got) != len(want) {
		t.Fatalf("expected %d invalid fields, got %v", len(want), got)
	}
	for i, field := range want {
		if got[i] != field {
			t.Fatalf("expected field %q at position %d, got %v", field, i, got)
		}
	}
}

func TestLogSurplusRejectsExpiryBeyondHorizon(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)

	_, err := svc.LogSurplus(LogSurplusInput{
		ReportedBy:     1,
		SourceLocation: "North Mess",
		MealCategory:   constants.MealCategoryDinner,
		Quantity:       decimal.NewFromInt(5),
		ExpiryAt:       time.Now().Add(48 * time.Hour),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := ValidationFields(err)
	if len(fields) != 1 || fields[0] != "expiry_at" {
		t.Fatalf("expected only expiry_at to be invalid, got %v", fields)
	}
}

func TestLogSurplusAppliesDefaults(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)

	record, err := svc.LogSurplus(LogSurplusInput{
		ReportedBy:     7,
		SourceLocation: " South Mess ",
		MealCategory:   " Dinner ",
		Quantity:       decimal.NewFromInt(10),
		ExpiryAt:       time.Now().Add(2 * time.Hour),
		Notes:          "  leftover rotis  ",
	})
	if err != nil {
		t.Fatalf("log surplus failed: %v", err)
	}
	if record.Status != constants.SurplusStatusAvailable {
		t.Fatalf("expected status available, got %s", record.Status)
	}
	if record.Unit != constants.SurplusUnitKG {
		t.Fatalf("expected default unit kg, got %s", record.Unit)
	}
	if record.Quality != constants.SurplusQualityGood {
		t.Fatalf("expected default quality good, got %s", record.Quality)
	}
	if record.SourceLocation != "South Mess" {
		t.Fatalf("expected trimmed source location, got %q", record.SourceLocation)
	}
	if record.MealCategory != constants.MealCategoryDinner {
		t.Fatalf("expected normalized meal category, got %q", record.MealCategory)
	}
	if record.Notes != "leftover rotis" {
		t.Fatalf("expected trimmed notes, got %q", record.Notes)
	}
}

func TestClaimAndCollectLifecycle(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)
	record := logTestSurplus(t, svc, 1)

	claimed, err := svc.Claim(record.ID, 20)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed.Status != constants.SurplusStatusClaimed {
		t.Fatalf("expected status claimed, got %s", claimed.Status)
	}
	if claimed.ClaimedBy == nil || *claimed.ClaimedBy != 20 {
		t.Fatalf("expected claimed_by 20, got %v", claimed.ClaimedBy)
	}
	if claimed.ClaimedAt == nil {
		t.Fatal("expected claimed_at to be set")
	}

	if _, err := svc.Claim(record.ID, 21); !errors.Is(err, ErrSurplusAlreadyClaimed) {
		t.Fatalf("expected already claimed error, got %v", err)
	}

	if _, err := svc.ConfirmCollection(record.ID, 21, ""); !errors.Is(err, ErrSurplusForbidden) {
		t.Fatalf("expected forbidden for non-claimant, got %v", err)
	}

	collected, err := svc.ConfirmCollection(record.ID, 20, "handed over at gate 2")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if collected.Status != constants.SurplusStatusCollected {
		t.Fatalf("expected status collected, got %s", collected.Status)
	}
	if collected.CollectedAt == nil {
		t.Fatal("expected collected_at to be set")
	}
	if collected.Notes != "Collection: handed over at gate 2" {
		t.Fatalf("unexpected notes: %q", collected.Notes)
	}

	if _, err := svc.ConfirmCollection(record.ID, 20, ""); !errors.Is(err, ErrSurplusAlreadyCollected) {
		t.Fatalf("expected already collected error, got %v", err)
	}
	if _, err := svc.Claim(record.ID, 22); !errors.Is(err, ErrSurplusAlreadyCollected) {
		t.Fatalf("expected already collected on claim, got %v", err)
	}
}

func TestCollectionNotesAppendToExisting(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)

	record, err := svc.LogSurplus(LogSurplusInput{
		ReportedBy:     1,
		SourceLocation: "North Mess",
		MealCategory:   constants.MealCategoryLunch,
		Quantity:       decimal.NewFromInt(3),
		ExpiryAt:       time.Now().Add(time.Hour),
		Notes:          "contains peanuts",
	})
	if err != nil {
		t.Fatalf("log surplus failed: %v", err)
	}
	if _, err := svc.Claim(record.ID, 5); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	collected, err := svc.ConfirmCollection(record.ID, 5, "picked up by van")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if collected.Notes != "contains peanuts\nCollection: picked up by van" {
		t.Fatalf("unexpected merged notes: %q", collected.Notes)
	}
}

func TestCollectBeforeClaimFails(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)
	record := logTestSurplus(t, svc, 1)

	if _, err := svc.ConfirmCollection(record.ID, 5, ""); !errors.Is(err, ErrSurplusNotClaimed) {
		t.Fatalf("expected not claimed error, got %v", err)
	}
}

func TestClaimExpiredRecordFails(t *testing.T) {
	svc, db := setupSurplusServiceTest(t)
	record := logTestSurplus(t, svc, 1)

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.SurplusRecord{}).Where("id = ?", record.ID).
		Update("expiry_at", past).Error; err != nil {
		t.Fatalf("backdate expiry failed: %v", err)
	}

	if _, err := svc.Claim(record.ID, 5); !errors.Is(err, ErrSurplusExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestClaimMissingRecordFails(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)

	if _, err := svc.Claim(9999, 5); !errors.Is(err, ErrSurplusNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := svc.Claim(1, 0); !errors.Is(err, ErrSurplusForbidden) {
		t.Fatalf("expected forbidden for anonymous claim, got %v", err)
	}
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)
	record := logTestSurplus(t, svc, 1)

	const claimants = 8
	var wg sync.WaitGroup
	results := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Claim(record.ID, uint(100+i))
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range results {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, ErrSurplusAlreadyClaimed) {
			t.Fatalf("claimant %d got unexpected error: %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	final, err := svc.GetSurplus(record.ID)
	if err != nil {
		t.Fatalf("reload record failed: %v", err)
	}
	if final.Status != constants.SurplusStatusClaimed || final.ClaimedBy == nil {
		t.Fatalf("expected claimed record with claimant, got %s / %v", final.Status, final.ClaimedBy)
	}
}

func TestExpireSweepExemptsClaimedRecords(t *testing.T) {
	svc, db := setupSurplusServiceTest(t)

	staleAvailable := logTestSurplus(t, svc, 1)
	staleClaimed := logTestSurplus(t, svc, 1)
	fresh := logTestSurplus(t, svc, 1)

	if _, err := svc.Claim(staleClaimed.ID, 30); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.SurplusRecord{}).
		Where("id IN ?", []uint{staleAvailable.ID, staleClaimed.ID}).
		Update("expiry_at", past).Error; err != nil {
		t.Fatalf("backdate expiry failed: %v", err)
	}

	expired, err := svc.ExpireSweep()
	if err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired record, got %d", expired)
	}

	reloaded, err := svc.GetSurplus(staleAvailable.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.SurplusStatusExpired {
		t.Fatalf("expected stale available record to expire, got %s", reloaded.Status)
	}

	claimed, err := svc.GetSurplus(staleClaimed.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if claimed.Status != constants.SurplusStatusClaimed {
		t.Fatalf("claimed record must survive the sweep, got %s", claimed.Status)
	}

	records, total, err := svc.ListAvailable(repository.SurplusListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list available failed: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh record to stay listed, got total=%d records=%d", total, len(records))
	}
}

func TestListClaimsScopedToClaimant(t *testing.T) {
	svc, _ := setupSurplusServiceTest(t)

	first := logTestSurplus(t, svc, 1)
	second := logTestSurplus(t, svc, 1)
	if _, err := svc.Claim(first.ID, 40); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := svc.Claim(second.ID, 41); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	records, total, err := svc.ListClaims(40, repository.ClaimListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list claims failed: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].ID != first.ID {
		t.Fatalf("expected one claim for actor 40, got total=%d", total)
	}

	if _, _, err := svc.ListClaims(0, repository.ClaimListFilter{}); !errors.Is(err, ErrSurplusForbidden) {
		t.Fatalf("expected forbidden for anonymous list, got %v", err)
	}
}
