package service

import (
	"errors"
	"fmt"
	"strings"
)

// 业务错误哨兵，handler 层据此映射响应码与文案。
var (
	ErrNotFound         = errors.New("resource not found")
	ErrStoreFailed      = errors.New("store operation failed")
	ErrQueueUnavailable = errors.New("queue unavailable")

	// 余量记录生命周期
	ErrSurplusNotFound         = errors.New("surplus record not found")
	ErrSurplusAlreadyClaimed   = errors.New("surplus record already claimed")
	ErrSurplusExpired          = errors.New("surplus record expired")
	ErrSurplusNotClaimed       = errors.New("surplus record not claimed")
	ErrSurplusAlreadyCollected = errors.New("surplus record already collected")
	ErrSurplusForbidden        = errors.New("surplus record not owned by actor")

	// 认证与账号
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailExists          = errors.New("email already exists")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrWeakPassword         = errors.New("weak password")
	ErrUserDisabled         = errors.New("user disabled")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")

	// 餐食预约
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingExists    = errors.New("booking already exists")
	ErrBookingNotBooked = errors.New("booking not in booked state")
	ErrBookingInPast    = errors.New("booking meal time in the past")
	ErrBookingForbidden = errors.New("booking not owned by actor")

	// 看板
	ErrDashboardRangeInvalid = errors.New("dashboard range invalid")

	// 校验失败（携带字段明细时使用 ValidationError）
	ErrValidation = errors.New("validation failed")
)

// ValidationError 输入校验失败，Fields 列出全部不合法字段名。
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError 构建携带字段明细的校验错误
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// ValidationFields 提取校验错误中的字段明细，非校验错误返回 nil。
func ValidationFields(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// wrapStoreError 统一包装存储层错误，保留底层原因供日志输出。
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreFailed, err)
}
