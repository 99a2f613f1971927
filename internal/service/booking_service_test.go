package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupBookingServiceTest(t *testing.T) (*BookingService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:booking_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.MealBooking{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)
	return NewBookingService(bookingRepo, userRepo, nil, 5, 2), db
}

func createBookingTestUser(t *testing.T, db *gorm.DB, id uint, streak int) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("booking_user_%d@example.com", id),
		PasswordHash: "hash",
		Role:         constants.UserRoleStudent,
		Streak:       streak,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func TestBookMealValidation(t *testing.T) {
	svc, _ := setupBookingServiceTest(t)

	_, err := svc.BookMeal(BookMealInput{UserID: 1, MealCategory: "supper"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := ValidationFields(err)
	if len(fields) != 2 || fields[0] != "meal_category" || fields[1] != "meal_at" {
		t.Fatalf("unexpected invalid fields: %v", fields)
	}

	_, err = svc.BookMeal(BookMealInput{
		UserID:       1,
		MealCategory: constants.MealCategoryLunch,
		MealAt:       time.Now().Add(-time.Hour),
	})
	if !errors.Is(err, ErrBookingInPast) {
		t.Fatalf("expected past meal error, got %v", err)
	}
}

func TestBookMealRejectsDuplicateSlot(t *testing.T) {
	svc, _ := setupBookingServiceTest(t)

	mealAt := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	booking, err := svc.BookMeal(BookMealInput{
		UserID:       1,
		MealCategory: " Lunch ",
		MealAt:       mealAt,
	})
	if err != nil {
		t.Fatalf("book meal failed: %v", err)
	}
	if booking.Status != constants.BookingStatusBooked {
		t.Fatalf("expected status booked, got %s", booking.Status)
	}
	if booking.MealCategory != constants.MealCategoryLunch {
		t.Fatalf("expected normalized meal category, got %q", booking.MealCategory)
	}

	if _, err := svc.BookMeal(BookMealInput{
		UserID:       1,
		MealCategory: constants.MealCategoryLunch,
		MealAt:       mealAt,
	}); !errors.Is(err, ErrBookingExists) {
		t.Fatalf("expected duplicate booking error, got %v", err)
	}

	// 不同餐次或不同用户不冲突
	if _, err := svc.BookMeal(BookMealInput{
		UserID:       1,
		MealCategory: constants.MealCategoryDinner,
		MealAt:       mealAt,
	}); err != nil {
		t.Fatalf("dinner booking failed: %v", err)
	}
	if _, err := svc.BookMeal(BookMealInput{
		UserID:       2,
		MealCategory: constants.MealCategoryLunch,
		MealAt:       mealAt,
	}); err != nil {
		t.Fatalf("second user booking failed: %v", err)
	}
}

func TestMarkAttendedLifecycle(t *testing.T) {
	svc, db := setupBookingServiceTest(t)
	createBookingTestUser(t, db, 1, 2)

	booking, err := svc.BookMeal(BookMealInput{
		UserID:       1,
		MealCategory: constants.MealCategoryBreakfast,
		MealAt:       time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("book meal failed: %v", err)
	}

	if _, err := svc.MarkAttended(booking.ID, 2); !errors.Is(err, ErrBookingForbidden) {
		t.Fatalf("expected forbidden for other user, got %v", err)
	}
	if _, err := svc.MarkAttended(9999, 1); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	attended, err := svc.MarkAttended(booking.ID, 1)
	if err != nil {
		t.Fatalf("mark attended failed: %v", err)
	}
	if attended.Status != constants.BookingStatusAttended {
		t.Fatalf("expected status attended, got %s", attended.Status)
	}
	if attended.AttendedAt == nil {
		t.Fatal("expected attended_at to be set")
	}

	var user models.User
	if err := db.First(&user, 1).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if user.Streak != 3 {
		t.Fatalf("expected streak incremented to 3, got %d", user.Streak)
	}

	if _, err := svc.MarkAttended(booking.ID, 1); !errors.Is(err, ErrBookingNotBooked) {
		t.Fatalf("expected not booked on repeat attend, got %v", err)
	}
}

func TestNoShowSweepResetsStreaks(t *testing.T) {
	svc, db := setupBookingServiceTest(t)
	createBookingTestUser(t, db, 1, 4)
	createBookingTestUser(t, db, 2, 7)

	now := time.Now()
	bookings := []models.MealBooking{
		// 超过宽限期仍未核销，应标记为 no_show
		{UserID: 1, MealCategory: constants.MealCategoryLunch, MealAt: now.Add(-5 * time.Hour), Status: constants.BookingStatusBooked},
		// 已出席的历史预约不受清扫影响
		{UserID: 2, MealCategory: constants.MealCategoryLunch, MealAt: now.Add(-5 * time.Hour), Status: constants.BookingStatusAttended},
		// 仍在宽限期内的预约保留
		{UserID: 2, MealCategory: constants.MealCategoryDinner, MealAt: now.Add(-time.Hour), Status: constants.BookingStatusBooked},
	}
	for i := range bookings {
		if err := db.Create(&bookings[i]).Error; err != nil {
			t.Fatalf("seed booking failed: %v", err)
		}
	}

	noShows, err := svc.NoShowSweep()
	if err != nil {
		t.Fatalf("no show sweep failed: %v", err)
	}
	if noShows != 1 {
		t.Fatalf("expected 1 no show, got %d", noShows)
	}

	var swept models.MealBooking
	if err := db.First(&swept, bookings[0].ID).Error; err != nil {
		t.Fatalf("reload booking failed: %v", err)
	}
	if swept.Status != constants.BookingStatusNoShow {
		t.Fatalf("expected no_show status, got %s", swept.Status)
	}

	var kept models.MealBooking
	if err := db.First(&kept, bookings[2].ID).Error; err != nil {
		t.Fatalf("reload booking failed: %v", err)
	}
	if kept.Status != constants.BookingStatusBooked {
		t.Fatalf("expected in-grace booking untouched, got %s", kept.Status)
	}

	var missed models.User
	if err := db.First(&missed, 1).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if missed.Streak != 0 {
		t.Fatalf("expected streak reset to 0, got %d", missed.Streak)
	}
	var untouched models.User
	if err := db.First(&untouched, 2).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if untouched.Streak != 7 {
		t.Fatalf("expected streak preserved, got %d", untouched.Streak)
	}
}

func TestGetBookingOwnership(t *testing.T) {
	svc, _ := setupBookingServiceTest(t)

	booking, err := svc.BookMeal(BookMealInput{
		UserID:       1,
		MealCategory: constants.MealCategorySnacks,
		MealAt:       time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("book meal failed: %v", err)
	}

	got, err := svc.GetBooking(booking.ID, 1)
	if err != nil {
		t.Fatalf("get booking failed: %v", err)
	}
	if got.ID != booking.ID {
		t.Fatalf("expected booking %d, got %d", booking.ID, got.ID)
	}

	if _, err := svc.GetBooking(booking.ID, 2); !errors.Is(err, ErrBookingForbidden) {
		t.Fatalf("expected forbidden for other user, got %v", err)
	}
	if _, err := svc.GetBooking(9999, 1); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
