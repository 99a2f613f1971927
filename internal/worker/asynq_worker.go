package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/provider"
	"github.com/greenmess-next/internal/queue"
	"github.com/greenmess-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSurplusLogged, c.handleSurplusLogged)
	mux.HandleFunc(queue.TaskSurplusClaimed, c.handleSurplusClaimed)
	mux.HandleFunc(queue.TaskSurplusCollected, c.handleSurplusCollected)
	mux.HandleFunc(queue.TaskRewardCredit, c.handleRewardCredit)
}

func (c *Consumer) handleSurplusLogged(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_surplus_logged_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SurplusLoggedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_surplus_logged_unmarshal_failed", "error", err)
		return err
	}
	if payload.SurplusID == 0 {
		logger.Debugw("worker_surplus_logged_skip_invalid_payload", "surplus_id", payload.SurplusID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_surplus_logged_skip_notification_service_nil", "surplus_id", payload.SurplusID)
		return nil
	}
	data := map[string]interface{}{
		"source_location": payload.SourceLocation,
		"meal_category":   payload.MealCategory,
		"quantity":        payload.Quantity,
		"unit":            payload.Unit,
		"expiry_at":       payload.ExpiryAt,
	}
	if err := c.NotificationService.DispatchSurplusLogged(ctx, payload.SurplusID, data); err != nil {
		logger.Warnw("worker_surplus_logged_dispatch_failed", "surplus_id", payload.SurplusID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleSurplusClaimed(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_surplus_claimed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SurplusClaimedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_surplus_claimed_unmarshal_failed", "error", err)
		return err
	}
	if payload.SurplusID == 0 {
		logger.Debugw("worker_surplus_claimed_skip_invalid_payload", "surplus_id", payload.SurplusID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_surplus_claimed_skip_notification_service_nil", "surplus_id", payload.SurplusID)
		return nil
	}
	data := map[string]interface{}{
		"claimed_by": payload.ClaimedBy,
	}
	if err := c.NotificationService.DispatchSurplusClaimed(ctx, payload.SurplusID, data); err != nil {
		logger.Warnw("worker_surplus_claimed_dispatch_failed", "surplus_id", payload.SurplusID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleSurplusCollected(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_surplus_collected_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SurplusCollectedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_surplus_collected_unmarshal_failed", "error", err)
		return err
	}
	if payload.SurplusID == 0 {
		logger.Debugw("worker_surplus_collected_skip_invalid_payload", "surplus_id", payload.SurplusID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_surplus_collected_skip_notification_service_nil", "surplus_id", payload.SurplusID)
		return nil
	}
	data := map[string]interface{}{
		"collected_by": payload.CollectedBy,
	}
	if err := c.NotificationService.DispatchSurplusCollected(ctx, payload.SurplusID, data); err != nil {
		logger.Warnw("worker_surplus_collected_dispatch_failed", "surplus_id", payload.SurplusID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleRewardCredit(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reward_credit_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.RewardCreditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reward_credit_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 || payload.RefID == 0 {
		logger.Debugw("worker_reward_credit_skip_invalid_payload", "user_id", payload.UserID, "ref_id", payload.RefID)
		return nil
	}
	if c.RewardService == nil {
		logger.Warnw("worker_reward_credit_skip_reward_service_nil", "user_id", payload.UserID, "ref_id", payload.RefID)
		return nil
	}
	_, err := c.RewardService.Credit(service.RewardCreditInput{
		UserID: payload.UserID,
		Type:   payload.Type,
		Amount: payload.Amount,
		RefID:  payload.RefID,
		Remark: payload.Remark,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_reward_credit_skip_user_not_found", "user_id", payload.UserID, "ref_id", payload.RefID)
			return nil
		case errors.Is(err, service.ErrValidation):
			logger.Debugw("worker_reward_credit_skip_invalid_amount", "user_id", payload.UserID, "ref_id", payload.RefID, "amount", payload.Amount)
			return nil
		default:
			logger.Warnw("worker_reward_credit_failed", "user_id", payload.UserID, "ref_id", payload.RefID, "error", err)
			return err
		}
	}
	return nil
}
