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

func setupRewardServiceTest(t *testing.T) (*RewardService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:reward_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RewardTransaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	rewardRepo := repository.NewRewardRepository(db)
	userRepo := repository.NewUserRepository(db)
	return NewRewardService(rewardRepo, userRepo), db
}

func createRewardTestUser(t *testing.T, db *gorm.DB, id uint, credits int64) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("reward_user_%d@example.com", id),
		PasswordHash: "hash",
		GreenCredits: credits,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func TestCreditIsIdempotentPerTypeAndRef(t *testing.T) {
	svc, db := setupRewardServiceTest(t)
	createRewardTestUser(t, db, 1, 0)

	input := RewardCreditInput{
		UserID: 1,
		Type:   constants.RewardTxnTypeCollection,
		Amount: 20,
		RefID:  77,
		Remark: "surplus collection",
	}
	first, err := svc.Credit(input)
	if err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	if first.Balance != 20 {
		t.Fatalf("expected balance 20, got %d", first.Balance)
	}

	second, err := svc.Credit(input)
	if err != nil {
		t.Fatalf("redelivered credit failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing transaction on redelivery, got %d != %d", second.ID, first.ID)
	}

	balance, err := svc.GetBalance(1)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance != 20 {
		t.Fatalf("expected balance credited once, got %d", balance)
	}

	var count int64
	if err := db.Model(&models.RewardTransaction{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single transaction, got %d", count)
	}

	// 不同关联单据独立入账
	input.RefID = 78
	if _, err := svc.Credit(input); err != nil {
		t.Fatalf("credit with new ref failed: %v", err)
	}
	if balance, _ := svc.GetBalance(1); balance != 40 {
		t.Fatalf("expected balance 40, got %d", balance)
	}
}

func TestCreditRejectsNegativeBalance(t *testing.T) {
	svc, db := setupRewardServiceTest(t)
	createRewardTestUser(t, db, 1, 10)

	_, err := svc.Credit(RewardCreditInput{
		UserID: 1,
		Type:   constants.RewardTxnTypeAdminAdjust,
		Amount: -50,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if balance, _ := svc.GetBalance(1); balance != 10 {
		t.Fatalf("balance must be untouched after rejected debit, got %d", balance)
	}
	var count int64
	if err := db.Model(&models.RewardTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no transaction written, got %d", count)
	}
}

func TestAdminAdjustWithoutRefAccumulates(t *testing.T) {
	svc, _ := setupRewardServiceTest(t)
	db := models.DB
	createRewardTestUser(t, db, 1, 0)

	for i := 0; i < 2; i++ {
		if _, err := svc.Credit(RewardCreditInput{
			UserID: 1,
			Amount: 15,
			Remark: "campus cleanup drive",
		}); err != nil {
			t.Fatalf("adjust %d failed: %v", i, err)
		}
	}

	if balance, _ := svc.GetBalance(1); balance != 30 {
		t.Fatalf("expected balance 30 after two adjustments, got %d", balance)
	}

	txns, total, err := svc.ListTransactions(repository.RewardListFilter{UserID: 1, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if total != 2 || len(txns) != 2 {
		t.Fatalf("expected two transactions without ref dedupe, got %d", total)
	}
	for _, txn := range txns {
		if txn.Type != constants.RewardTxnTypeAdminAdjust {
			t.Fatalf("expected admin_adjust default type, got %s", txn.Type)
		}
	}
}

func TestCreditInputGuards(t *testing.T) {
	svc, db := setupRewardServiceTest(t)
	createRewardTestUser(t, db, 1, 0)

	if _, err := svc.Credit(RewardCreditInput{UserID: 0, Amount: 10}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for zero user, got %v", err)
	}
	if _, err := svc.Credit(RewardCreditInput{UserID: 9999, Amount: 10}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
	if _, err := svc.Credit(RewardCreditInput{UserID: 1, Amount: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if _, err := svc.GetBalance(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found balance, got %v", err)
	}
}

func TestListTransactionsFiltersByType(t *testing.T) {
	svc, db := setupRewardServiceTest(t)
	createRewardTestUser(t, db, 1, 0)

	if _, err := svc.Credit(RewardCreditInput{UserID: 1, Type: constants.RewardTxnTypeCollection, Amount: 20, RefID: 1}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := svc.Credit(RewardCreditInput{UserID: 1, Type: constants.RewardTxnTypeAttendance, Amount: 5, RefID: 2}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	txns, total, err := svc.ListTransactions(repository.RewardListFilter{
		UserID: 1,
		Type:   constants.RewardTxnTypeAttendance,
		Page:   1, PageSize: 10,
	})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if total != 1 || len(txns) != 1 || txns[0].Amount != 5 {
		t.Fatalf("expected single attendance transaction, got total=%d", total)
	}
}
