package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/greenmess-next/internal/cache"
	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/repository"
)

// NotificationMessage 推送给订阅端的通知消息
type NotificationMessage struct {
	Topic      string                 `json:"topic"`
	SurplusID  uint                   `json:"surplus_id"`
	OccurredAt string                 `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NotificationService 事件通知服务
// 尽力而为的扇出，单个接收方失败只记日志，不回滚业务操作。
type NotificationService struct {
	userRepo    repository.UserRepository
	surplusRepo repository.SurplusRepository
}

// NewNotificationService 创建事件通知服务
func NewNotificationService(userRepo repository.UserRepository, surplusRepo repository.SurplusRepository) *NotificationService {
	return &NotificationService{
		userRepo:    userRepo,
		surplusRepo: surplusRepo,
	}
}

// DispatchSurplusLogged 处理余量登记事件
// 订阅方为全部活跃 NGO 用户。
func (s *NotificationService) DispatchSurplusLogged(ctx context.Context, surplusID uint, data map[string]interface{}) error {
	recipients, err := s.userRepo.ListActiveIDsByRole(constants.UserRoleNGO)
	if err != nil {
		return wrapStoreError(err)
	}
	return s.fanOut(ctx, constants.NotificationTopicSurplusLogged, surplusID, recipients, data)
}

// DispatchSurplusClaimed 处理余量认领事件
// 通知上报人，便于安排交接。
func (s *NotificationService) DispatchSurplusClaimed(ctx context.Context, surplusID uint, data map[string]interface{}) error {
	recipients, err := s.reporterRecipients(surplusID)
	if err != nil {
		return err
	}
	return s.fanOut(ctx, constants.NotificationTopicSurplusClaimed, surplusID, recipients, data)
}

// DispatchSurplusCollected 处理余量领取完成事件
func (s *NotificationService) DispatchSurplusCollected(ctx context.Context, surplusID uint, data map[string]interface{}) error {
	recipients, err := s.reporterRecipients(surplusID)
	if err != nil {
		return err
	}
	return s.fanOut(ctx, constants.NotificationTopicSurplusCollected, surplusID, recipients, data)
}

func (s *NotificationService) reporterRecipients(surplusID uint) ([]uint, error) {
	record, err := s.surplusRepo.GetByID(surplusID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if record == nil || record.ReportedBy == 0 {
		return nil, nil
	}
	return []uint{record.ReportedBy}, nil
}

// fanOut 去重后逐个接收方发布消息
func (s *NotificationService) fanOut(ctx context.Context, topic string, surplusID uint, recipients []uint, data map[string]interface{}) error {
	if len(recipients) == 0 {
		return nil
	}

	ok, err := acquireNotificationDedupe(ctx, topic, surplusID, data)
	if err != nil {
		logger.Warnw("notification_dedupe_failed", "topic", topic, "surplus_id", surplusID, "error", err)
	}
	if err == nil && !ok {
		return nil
	}

	message := NotificationMessage{
		Topic:      topic,
		SurplusID:  surplusID,
		OccurredAt: time.Now().Format(time.RFC3339),
		Data:       data,
	}

	delivered := 0
	for _, userID := range recipients {
		if userID == 0 {
			continue
		}
		channel := fmt.Sprintf("notify:user:%d", userID)
		if err := cache.PublishJSON(ctx, channel, message); err != nil {
			logger.Warnw("notification_publish_failed",
				"topic", topic,
				"surplus_id", surplusID,
				"user_id", userID,
				"error", err,
			)
			continue
		}
		delivered++
	}
	logger.Debugw("notification_fan_out_done", "topic", topic, "surplus_id", surplusID, "delivered", delivered, "recipients", len(recipients))
	return nil
}

func acquireNotificationDedupe(ctx context.Context, topic string, surplusID uint, data map[string]interface{}) (bool, error) {
	key := buildNotificationDedupeKey(topic, surplusID, data)
	return cache.SetNX(ctx, key, "1", 5*time.Minute)
}

func buildNotificationDedupeKey(topic string, surplusID uint, data map[string]interface{}) string {
	signature := strings.Builder{}
	signature.WriteString(strings.ToLower(strings.TrimSpace(topic)))
	signature.WriteString("|")
	signature.WriteString(fmt.Sprintf("%d", surplusID))
	signature.WriteString("|")

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		signature.WriteString(key)
		signature.WriteString("=")
		signature.WriteString(strings.TrimSpace(fmt.Sprintf("%v", data[key])))
		signature.WriteString(";")
	}
	hash := sha1.Sum([]byte(signature.String()))
	return "notification:dedupe:" + hex.EncodeToString(hash[:])
}
