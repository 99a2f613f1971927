package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Quantity 统一数量类型（保留 3 位小数，适配公斤/升/份数）
type Quantity struct {
	decimal.Decimal
}

// NewQuantityFromDecimal 从 decimal 创建数量
func NewQuantityFromDecimal(amount decimal.Decimal) Quantity {
	return Quantity{Decimal: amount.Round(3)}
}

// NewQuantityFromFloat 从浮点数创建数量
func NewQuantityFromFloat(amount float64) Quantity {
	return Quantity{Decimal: decimal.NewFromFloat(amount).Round(3)}
}

// IsPositive 判断数量是否大于零
func (q Quantity) IsPositive() bool {
	return q.Decimal.IsPositive()
}

// MarshalJSON 统一输出 3 位小数的字符串
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Decimal.Round(3).StringFixed(3))
}

// UnmarshalJSON 解析数量（字符串或数字）
func (q *Quantity) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		q.Decimal = d.Round(3)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	q.Decimal = decimal.NewFromFloat(f).Round(3)
	return nil
}

// Value 用于数据库写入
func (q Quantity) Value() (driver.Value, error) {
	return q.Decimal.Round(3).Value()
}

// Scan 用于数据库读取
func (q *Quantity) Scan(value interface{}) error {
	if err := q.Decimal.Scan(value); err != nil {
		return err
	}
	q.Decimal = q.Decimal.Round(3)
	return nil
}

// String 返回 3 位小数格式
func (q Quantity) String() string {
	return q.Decimal.Round(3).StringFixed(3)
}
