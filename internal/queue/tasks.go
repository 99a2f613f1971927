package queue

import (
	"encoding/json"
	"time"

	"github.com/greenmess-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSurplusLogged 余量登记事件通知任务
	TaskSurplusLogged = constants.TaskSurplusLogged
	// TaskSurplusClaimed 余量认领事件通知任务
	TaskSurplusClaimed = constants.TaskSurplusClaimed
	// TaskSurplusCollected 余量领取完成事件通知任务
	TaskSurplusCollected = constants.TaskSurplusCollected
	// TaskRewardCredit 积分发放任务
	TaskRewardCredit = constants.TaskRewardCredit
)

// SurplusLoggedPayload 余量登记任务载荷
type SurplusLoggedPayload struct {
	SurplusID      uint      `json:"surplus_id"`
	SourceLocation string    `json:"source_location"`
	MealCategory   string    `json:"meal_category"`
	Quantity       string    `json:"quantity"`
	Unit           string    `json:"unit"`
	ExpiryAt       time.Time `json:"expiry_at"`
}

// SurplusClaimedPayload 余量认领任务载荷
type SurplusClaimedPayload struct {
	SurplusID uint `json:"surplus_id"`
	ClaimedBy uint `json:"claimed_by"`
}

// SurplusCollectedPayload 余量领取完成任务载荷
type SurplusCollectedPayload struct {
	SurplusID   uint `json:"surplus_id"`
	CollectedBy uint `json:"collected_by"`
}

// RewardCreditPayload 积分发放任务载荷
type RewardCreditPayload struct {
	UserID uint   `json:"user_id"`
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
	RefID  uint   `json:"ref_id"`
	Remark string `json:"remark"`
}

// NewSurplusLoggedTask 创建余量登记任务
func NewSurplusLoggedTask(payload SurplusLoggedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSurplusLogged, body), nil
}

// NewSurplusClaimedTask 创建余量认领任务
func NewSurplusClaimedTask(payload SurplusClaimedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSurplusClaimed, body), nil
}

// NewSurplusCollectedTask 创建余量领取完成任务
func NewSurplusCollectedTask(payload SurplusCollectedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSurplusCollected, body), nil
}

// NewRewardCreditTask 创建积分发放任务
func NewRewardCreditTask(payload RewardCreditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRewardCredit, body), nil
}
