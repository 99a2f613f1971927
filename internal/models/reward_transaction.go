package models

import "time"

// RewardTransaction 绿色积分流水表
type RewardTransaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`                       // 主键
	UserID    uint      `gorm:"index:idx_reward_user_created;not null" json:"user_id"` // 积分归属用户
	Type      string    `gorm:"index;not null" json:"type"`                 // 流水类型（surplus_collection/meal_attendance/admin_adjust）
	Amount    int64     `gorm:"not null" json:"amount"`                     // 积分变动（正增负减）
	Balance   int64     `gorm:"not null" json:"balance"`                    // 变动后余额快照
	RefID     uint      `gorm:"index" json:"ref_id"`                        // 关联业务 ID（余量记录/预约）
	Remark    string    `gorm:"default:''" json:"remark"`                   // 备注
	CreatedAt time.Time `gorm:"index:idx_reward_user_created" json:"created_at"` // 创建时间
}

// TableName 指定表名
func (RewardTransaction) TableName() string {
	return "reward_transactions"
}
