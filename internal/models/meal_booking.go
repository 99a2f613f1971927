package models

import "time"

// MealBooking 餐食预约表
type MealBooking struct {
	ID           uint       `gorm:"primarykey" json:"id"`                             // 主键
	UserID       uint       `gorm:"index:idx_booking_user_date;not null" json:"user_id"` // 预约用户
	MealCategory string     `gorm:"not null" json:"meal_category"`                    // 餐次
	MealAt       time.Time  `gorm:"index:idx_booking_user_date;index:idx_booking_status_meal,priority:2;not null" json:"meal_at"` // 用餐时间
	Status       string     `gorm:"index:idx_booking_status_meal,priority:1;not null;default:'booked'" json:"status"` // 状态（booked/attended/no_show）
	AttendedAt   *time.Time `json:"attended_at"`                                      // 出席确认时间
	CreatedAt    time.Time  `json:"created_at"`                                       // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (MealBooking) TableName() string {
	return "meal_bookings"
}
