package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// FoodItem 单项余量食物描述
type FoodItem struct {
	Name       string  `json:"name"`       // 菜品名称
	Quantity   float64 `json:"quantity"`   // 数量
	Vegetarian bool    `json:"vegetarian"` // 是否素食
}

// FoodItemList 余量食物明细列表（JSON 存储，保持录入顺序）
type FoodItemList []FoodItem

// Value 实现 driver.Valuer 接口
func (l FoodItemList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner 接口
func (l *FoodItemList) Scan(value interface{}) error {
	if value == nil {
		*l = FoodItemList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, l)
}

// SurplusRecord 余量食物记录表
type SurplusRecord struct {
	ID             uint         `gorm:"primarykey" json:"id"`                            // 主键
	MealCategory   string       `gorm:"index;not null" json:"meal_category"`             // 餐次（breakfast/lunch/snacks/dinner）
	SourceLocation string       `gorm:"index:idx_surplus_source_created;not null" json:"source_location"` // 上报食堂/宿舍
	Quantity       Quantity     `gorm:"type:decimal(12,3);not null" json:"quantity"`     // 数量
	Unit           string       `gorm:"not null;default:'kg'" json:"unit"`               // 计量单位
	FoodItems      FoodItemList `gorm:"type:text" json:"food_items"`                     // 食物明细
	ExpiryAt       time.Time    `gorm:"index:idx_surplus_status_expiry,priority:2;not null" json:"expiry_at"` // 可领取截止时间
	Status         string       `gorm:"index:idx_surplus_status_expiry,priority:1;not null;default:'available'" json:"status"` // 状态
	ReportedBy     uint         `gorm:"index;not null" json:"reported_by"`               // 上报人
	ClaimedBy      *uint        `gorm:"index:idx_surplus_claimant_status" json:"claimed_by"` // 认领方（NGO）
	ClaimedAt      *time.Time   `json:"claimed_at"`                                      // 认领时间
	CollectedAt    *time.Time   `json:"collected_at"`                                    // 领取完成时间
	Notes          string       `gorm:"type:text" json:"notes"`                          // 备注
	Quality        string       `gorm:"default:'good'" json:"quality"`                   // 品质评估
	EstimatedValue *Quantity    `gorm:"type:decimal(12,3)" json:"estimated_value"`       // 估算价值
	CreatedAt      time.Time    `gorm:"index:idx_surplus_source_created" json:"created_at"` // 创建时间
	UpdatedAt      time.Time    `json:"updated_at"`                                      // 更新时间
}

// TableName 指定表名
func (SurplusRecord) TableName() string {
	return "surplus_records"
}
