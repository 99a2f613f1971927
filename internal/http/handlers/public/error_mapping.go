package public

import (
	"errors"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	if errors.Is(err, service.ErrValidation) {
		respondValidationError(c, err)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var surplusClaimErrorRules = []mappedHandlerError{
	{target: service.ErrSurplusNotFound, code: response.CodeNotFound, key: "error.surplus_not_found"},
	{target: service.ErrSurplusAlreadyClaimed, code: response.CodeConflict, key: "error.surplus_already_claimed"},
	{target: service.ErrSurplusAlreadyCollected, code: response.CodeConflict, key: "error.surplus_already_collected"},
	{target: service.ErrSurplusExpired, code: response.CodeConflict, key: "error.surplus_expired"},
	{target: service.ErrSurplusForbidden, code: response.CodeForbidden, key: "error.surplus_forbidden"},
}

var surplusCollectErrorRules = []mappedHandlerError{
	{target: service.ErrSurplusNotFound, code: response.CodeNotFound, key: "error.surplus_not_found"},
	{target: service.ErrSurplusNotClaimed, code: response.CodeConflict, key: "error.surplus_not_claimed"},
	{target: service.ErrSurplusAlreadyCollected, code: response.CodeConflict, key: "error.surplus_already_collected"},
	{target: service.ErrSurplusExpired, code: response.CodeConflict, key: "error.surplus_expired"},
	{target: service.ErrSurplusForbidden, code: response.CodeForbidden, key: "error.surplus_forbidden"},
}

var bookingErrorRules = []mappedHandlerError{
	{target: service.ErrBookingNotFound, code: response.CodeNotFound, key: "error.booking_not_found"},
	{target: service.ErrBookingExists, code: response.CodeConflict, key: "error.booking_exists"},
	{target: service.ErrBookingNotBooked, code: response.CodeConflict, key: "error.booking_not_booked"},
	{target: service.ErrBookingInPast, code: response.CodeBadRequest, key: "error.booking_in_past"},
	{target: service.ErrBookingForbidden, code: response.CodeForbidden, key: "error.booking_forbidden"},
}

var authErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, key: "error.invalid_credentials"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, key: "error.user_disabled"},
	{target: service.ErrEmailExists, code: response.CodeConflict, key: "error.email_exists"},
	{target: service.ErrInvalidPassword, code: response.CodeBadRequest, key: "error.invalid_password"},
	{target: service.ErrCaptchaRequired, code: response.CodeBadRequest, key: "error.captcha_required"},
	{target: service.ErrCaptchaInvalid, code: response.CodeBadRequest, key: "error.captcha_invalid"},
	{target: service.ErrCaptchaConfigInvalid, code: response.CodeInternal, key: "error.captcha_config_invalid"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.not_found"},
}

func respondSurplusClaimError(c *gin.Context, err error) {
	respondWithMappedError(c, err, surplusClaimErrorRules, response.CodeInternal, "error.store_failed")
}

func respondSurplusCollectError(c *gin.Context, err error) {
	respondWithMappedError(c, err, surplusCollectErrorRules, response.CodeInternal, "error.store_failed")
}

func respondBookingError(c *gin.Context, err error) {
	respondWithMappedError(c, err, bookingErrorRules, response.CodeInternal, "error.store_failed")
}

func respondAuthError(c *gin.Context, err error) {
	respondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.internal")
}
