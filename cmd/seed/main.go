package main

import (
	"fmt"
	"time"

	"github.com/greenmess-next/internal/config"
	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash demo password: %v", err)
	}

	// 添加演示用户
	users := []models.User{
		{
			Email:        "staff.north@campus.test",
			PasswordHash: string(hash),
			DisplayName:  "North Mess Staff",
			Role:         constants.UserRoleMessStaff,
			Hostel:       "North Mess",
			Status:       constants.UserStatusActive,
		},
		{
			Email:        "staff.south@campus.test",
			PasswordHash: string(hash),
			DisplayName:  "South Mess Staff",
			Role:         constants.UserRoleMessStaff,
			Hostel:       "South Mess",
			Status:       constants.UserStatusActive,
		},
		{
			Email:        "foodbridge@ngo.test",
			PasswordHash: string(hash),
			DisplayName:  "FoodBridge Volunteer",
			Role:         constants.UserRoleNGO,
			Organization: "FoodBridge Foundation",
			Phone:        "+91-9000000001",
			Status:       constants.UserStatusActive,
		},
		{
			Email:        "mealsforall@ngo.test",
			PasswordHash: string(hash),
			DisplayName:  "Meals For All",
			Role:         constants.UserRoleNGO,
			Organization: "Meals For All Trust",
			Phone:        "+91-9000000002",
			Status:       constants.UserStatusActive,
		},
		{
			Email:        "asha@student.test",
			PasswordHash: string(hash),
			DisplayName:  "Asha",
			Role:         constants.UserRoleStudent,
			Hostel:       "Hostel A",
			Status:       constants.UserStatusActive,
		},
		{
			Email:        "rohan@student.test",
			PasswordHash: string(hash),
			DisplayName:  "Rohan",
			Role:         constants.UserRoleStudent,
			Hostel:       "Hostel C",
			Status:       constants.UserStatusActive,
		},
	}

	userIDs := map[string]uint{}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", user.Email, err)
				continue
			}
			stdLog.Printf("Created user: %s (%s)", user.Email, user.Role)
			userIDs[user.Email] = user.ID
			continue
		}
		stdLog.Printf("User already exists: %s", existing.Email)
		userIDs[existing.Email] = existing.ID
	}

	staffID := userIDs["staff.north@campus.test"]
	ngoID := userIDs["foodbridge@ngo.test"]
	studentID := userIDs["asha@student.test"]

	// 添加余量记录演示数据
	now := time.Now()
	claimedAt := now.Add(-30 * time.Minute)
	surplusRecords := []models.SurplusRecord{
		{
			MealCategory:   constants.MealCategoryLunch,
			SourceLocation: "North Mess",
			Quantity:       models.NewQuantityFromDecimal(decimal.NewFromFloat(12.5)),
			Unit:           constants.SurplusUnitKG,
			FoodItems: models.FoodItemList{
				{Name: "Vegetable Pulao", Quantity: 8, Vegetarian: true},
				{Name: "Dal Tadka", Quantity: 4.5, Vegetarian: true},
			},
			ExpiryAt:   now.Add(4 * time.Hour),
			Status:     constants.SurplusStatusAvailable,
			ReportedBy: staffID,
			Quality:    constants.SurplusQualityGood,
		},
		{
			MealCategory:   constants.MealCategoryDinner,
			SourceLocation: "South Mess",
			Quantity:       models.NewQuantityFromDecimal(decimal.NewFromFloat(30)),
			Unit:           constants.SurplusUnitPortions,
			FoodItems: models.FoodItemList{
				{Name: "Chapati", Quantity: 30, Vegetarian: true},
			},
			ExpiryAt:   now.Add(3 * time.Hour),
			Status:     constants.SurplusStatusClaimed,
			ReportedBy: staffID,
			ClaimedBy:  &ngoID,
			ClaimedAt:  &claimedAt,
			Quality:    constants.SurplusQualityGood,
		},
		{
			MealCategory:   constants.MealCategoryBreakfast,
			SourceLocation: "North Mess",
			Quantity:       models.NewQuantityFromDecimal(decimal.NewFromFloat(5)),
			Unit:           constants.SurplusUnitLiters,
			FoodItems: models.FoodItemList{
				{Name: "Sambar", Quantity: 5, Vegetarian: true},
			},
			ExpiryAt:   now.Add(-time.Hour),
			Status:     constants.SurplusStatusExpired,
			ReportedBy: staffID,
			Quality:    constants.SurplusQualityFair,
		},
	}

	for i, record := range surplusRecords {
		var count int64
		models.DB.Model(&models.SurplusRecord{}).
			Where("source_location = ? AND meal_category = ? AND reported_by = ?",
				record.SourceLocation, record.MealCategory, record.ReportedBy).
			Count(&count)
		if count > 0 {
			stdLog.Printf("Surplus record %d already seeded", i+1)
			continue
		}
		if err := models.DB.Create(&record).Error; err != nil {
			stdLog.Printf("Failed to create surplus record %d: %v", i+1, err)
			continue
		}
		stdLog.Printf("Created surplus record: %s %s (%s)", record.SourceLocation, record.MealCategory, record.Status)
	}

	// 添加预约演示数据
	tomorrowLunch := time.Date(now.Year(), now.Month(), now.Day(), 12, 30, 0, 0, now.Location()).AddDate(0, 0, 1)
	bookings := []models.MealBooking{
		{
			UserID:       studentID,
			MealCategory: constants.MealCategoryLunch,
			MealAt:       tomorrowLunch,
			Status:       constants.BookingStatusBooked,
		},
		{
			UserID:       studentID,
			MealCategory: constants.MealCategoryDinner,
			MealAt:       tomorrowLunch.Add(7 * time.Hour),
			Status:       constants.BookingStatusBooked,
		},
	}

	for _, booking := range bookings {
		var count int64
		models.DB.Model(&models.MealBooking{}).
			Where("user_id = ? AND meal_category = ? AND meal_at = ?",
				booking.UserID, booking.MealCategory, booking.MealAt).
			Count(&count)
		if count > 0 {
			stdLog.Printf("Booking already seeded: %s", booking.MealCategory)
			continue
		}
		if err := models.DB.Create(&booking).Error; err != nil {
			stdLog.Printf("Failed to create booking: %v", err)
			continue
		}
		stdLog.Printf("Created booking: %s at %s", booking.MealCategory, booking.MealAt.Format(time.RFC3339))
	}

	fmt.Println("\n✅ Demo data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 6 Users (2 mess staff, 2 NGO, 2 students)")
	fmt.Println("- 3 Surplus records (available / claimed / expired)")
	fmt.Println("- 2 Meal bookings")
	fmt.Println("Demo password: Passw0rd!")
}
