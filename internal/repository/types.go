package repository

import "time"

// SurplusListFilter 查询余量记录列表的过滤条件
type SurplusListFilter struct {
	Page           int
	PageSize       int
	MealCategory   string
	SourceLocation string
	Status         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// ClaimListFilter 查询认领记录列表的过滤条件
type ClaimListFilter struct {
	Page      int
	PageSize  int
	ClaimedBy uint
	Status    string
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Role        string
	Hostel      string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// BookingListFilter 查询餐食预约列表的过滤条件
type BookingListFilter struct {
	Page         int
	PageSize     int
	UserID       uint
	MealCategory string
	Status       string
	MealFrom     *time.Time
	MealTo       *time.Time
}

// RewardListFilter 查询积分流水列表的过滤条件
type RewardListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Type     string
}
