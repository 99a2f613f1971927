package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/provider"
	"github.com/greenmess-next/internal/queue"
	"github.com/greenmess-next/internal/repository"
	"github.com/greenmess-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_consumer_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.SurplusRecord{}, &models.RewardTransaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	userRepo := repository.NewUserRepository(db)
	surplusRepo := repository.NewSurplusRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	container := &provider.Container{
		UserRepo:            userRepo,
		SurplusRepo:         surplusRepo,
		RewardRepo:          rewardRepo,
		RewardService:       service.NewRewardService(rewardRepo, userRepo),
		NotificationService: service.NewNotificationService(userRepo, surplusRepo),
	}
	return NewConsumer(container), db
}

func newRewardCreditTask(t *testing.T, payload queue.RewardCreditPayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewRewardCreditTask(payload)
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleRewardCreditIsIdempotent(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	user := models.User{
		ID:           1,
		Email:        "worker_user@example.com",
		PasswordHash: "hash",
		Role:         constants.UserRoleNGO,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	task := newRewardCreditTask(t, queue.RewardCreditPayload{
		UserID: 1,
		Type:   constants.RewardTxnTypeCollection,
		Amount: 20,
		RefID:  42,
		Remark: "surplus collection",
	})

	// asynq 至少一次投递，重复消费不得重复入账
	for i := 0; i < 2; i++ {
		if err := consumer.handleRewardCredit(context.Background(), task); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}

	var reloaded models.User
	if err := db.First(&reloaded, 1).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if reloaded.GreenCredits != 20 {
		t.Fatalf("expected credits granted once, got %d", reloaded.GreenCredits)
	}
	var count int64
	if err := db.Model(&models.RewardTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single transaction, got %d", count)
	}
}

func TestHandleRewardCreditSkipsInvalidPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)

	// 非法 JSON 返回错误以便重试
	broken := asynq.NewTask(queue.TaskRewardCredit, []byte("{"))
	if err := consumer.handleRewardCredit(context.Background(), broken); err == nil {
		t.Fatal("expected error for malformed payload")
	}

	// 缺少用户或单据的载荷直接丢弃，不触发重试
	missingUser := newRewardCreditTask(t, queue.RewardCreditPayload{UserID: 0, Amount: 10, RefID: 1})
	if err := consumer.handleRewardCredit(context.Background(), missingUser); err != nil {
		t.Fatalf("expected nil for empty user, got %v", err)
	}
	missingRef := newRewardCreditTask(t, queue.RewardCreditPayload{UserID: 1, Amount: 10})
	if err := consumer.handleRewardCredit(context.Background(), missingRef); err != nil {
		t.Fatalf("expected nil for empty ref, got %v", err)
	}

	// 用户不存在视为过期事件，同样不重试
	unknownUser := newRewardCreditTask(t, queue.RewardCreditPayload{UserID: 999, Amount: 10, RefID: 1})
	if err := consumer.handleRewardCredit(context.Background(), unknownUser); err != nil {
		t.Fatalf("expected nil for unknown user, got %v", err)
	}
}

func TestHandleSurplusEventsTolerateMissingData(t *testing.T) {
	consumer, _ := setupConsumerTest(t)

	payload, err := json.Marshal(queue.SurplusLoggedPayload{SurplusID: 0})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskSurplusLogged, payload)
	if err := consumer.handleSurplusLogged(context.Background(), task); err != nil {
		t.Fatalf("expected nil for empty surplus id, got %v", err)
	}

	// 通知服务缺失时丢弃事件而非重试
	bare := NewConsumer(&provider.Container{})
	claimed, err := queue.NewSurplusClaimedTask(queue.SurplusClaimedPayload{SurplusID: 7, ClaimedBy: 3})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := bare.handleSurplusClaimed(context.Background(), claimed); err != nil {
		t.Fatalf("expected nil without notification service, got %v", err)
	}
}

func TestHandleSurplusClaimedNotifiesReporter(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	record := models.SurplusRecord{
		MealCategory:   constants.MealCategoryLunch,
		SourceLocation: "North Mess",
		Quantity:       models.NewQuantityFromFloat(8),
		Unit:           constants.SurplusUnitKG,
		ExpiryAt:       time.Now().Add(time.Hour),
		Status:         constants.SurplusStatusClaimed,
		ReportedBy:     5,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create surplus record failed: %v", err)
	}

	task, err := queue.NewSurplusClaimedTask(queue.SurplusClaimedPayload{SurplusID: record.ID, ClaimedBy: 9})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	// 无缓存后端时扇出退化为日志，但处理流程必须走通
	if err := consumer.handleSurplusClaimed(context.Background(), task); err != nil {
		t.Fatalf("handle surplus claimed failed: %v", err)
	}
}

func TestRegisterToleratesNilMux(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	consumer.Register(nil)

	var nilConsumer *Consumer
	nilConsumer.Register(asynq.NewServeMux())
}
