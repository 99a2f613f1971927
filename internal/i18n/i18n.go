package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleEN = "en-US"
	LocaleHI = "hi-IN"
)

// DefaultLocale 默认语言
const DefaultLocale = LocaleEN

var catalogs = map[string]map[string]string{
	LocaleEN: {
		"error.internal":       "internal server error",
		"error.invalid_params": "invalid request parameters",
		"error.validation":     "validation failed",
		"error.not_found":      "resource not found",
		"error.store_failed":   "storage operation failed",

		"error.unauthorized":           "unauthorized",
		"error.forbidden":              "forbidden",
		"error.auth_header_missing":    "authorization header missing",
		"error.auth_header_invalid":    "authorization header invalid",
		"error.token_invalid":          "token invalid or expired",
		"error.token_revoked":          "token has been revoked",
		"error.jwt_secret_missing":     "jwt secret not configured",
		"error.user_disabled":          "account disabled",
		"error.invalid_credentials":    "invalid email or password",
		"error.email_exists":           "email already registered",
		"error.invalid_password":       "current password incorrect",
		"error.weak_password":          "password does not meet the policy",
		"error.captcha_required":       "captcha required",
		"error.captcha_invalid":        "captcha incorrect or expired",
		"error.captcha_config_invalid": "captcha not enabled",
		"error.user_id_invalid":        "user identity missing from request context",
		"error.user_id_type_invalid":   "user identity malformed in request context",

		"error.password_min_length":      "password must be at least %d characters",
		"error.password_require_upper":   "password must contain an uppercase letter",
		"error.password_require_lower":   "password must contain a lowercase letter",
		"error.password_require_number":  "password must contain a digit",
		"error.password_require_special": "password must contain a special character",

		"error.surplus_not_found":         "surplus record not found",
		"error.surplus_already_claimed":   "surplus record already claimed",
		"error.surplus_expired":           "surplus record has expired",
		"error.surplus_not_claimed":       "surplus record has not been claimed",
		"error.surplus_already_collected": "surplus record already collected",
		"error.surplus_forbidden":         "surplus record belongs to another claimant",

		"error.booking_not_found":  "meal booking not found",
		"error.booking_exists":     "meal already booked for this slot",
		"error.booking_not_booked": "meal booking is not in booked state",
		"error.booking_in_past":    "meal time is in the past",
		"error.booking_forbidden":  "meal booking belongs to another user",

		"error.dashboard_range_invalid": "invalid dashboard time range",

		"error.rate_limited":             "too many requests, retry after %d seconds",
		"error.rate_limit_unavailable":   "rate limiter unavailable",
		"error.login_rate_limited":       "too many login attempts, retry after %d seconds",
		"error.register_rate_limited":    "too many registrations, retry after %d seconds",
		"error.surplus_log_rate_limited": "too many surplus submissions, retry after %d seconds",
	},
	LocaleHI: {
		"error.internal":            "आंतरिक सर्वर त्रुटि",
		"error.invalid_params":      "अनुरोध पैरामीटर अमान्य हैं",
		"error.validation":          "सत्यापन विफल",
		"error.not_found":           "संसाधन नहीं मिला",
		"error.unauthorized":        "अनधिकृत",
		"error.forbidden":           "निषिद्ध",
		"error.token_invalid":       "टोकन अमान्य या समाप्त",
		"error.user_disabled":       "खाता निष्क्रिय है",
		"error.invalid_credentials": "ईमेल या पासवर्ड गलत है",
		"error.email_exists":        "ईमेल पहले से पंजीकृत है",

		"error.surplus_not_found":         "अधिशेष रिकॉर्ड नहीं मिला",
		"error.surplus_already_claimed":   "अधिशेष रिकॉर्ड पहले ही दावा किया जा चुका है",
		"error.surplus_expired":           "अधिशेष रिकॉर्ड की अवधि समाप्त हो गई है",
		"error.surplus_not_claimed":       "अधिशेष रिकॉर्ड का दावा नहीं किया गया है",
		"error.surplus_already_collected": "अधिशेष रिकॉर्ड पहले ही एकत्र किया जा चुका है",

		"error.booking_not_found": "भोजन बुकिंग नहीं मिली",
		"error.booking_exists":    "इस समय के लिए भोजन पहले से बुक है",
		"error.booking_in_past":   "भोजन का समय बीत चुका है",
	},
}

// Normalize 归一化语言标识，未支持的语言回落到默认语言。
func Normalize(locale string) string {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return DefaultLocale
	}
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "hi"):
		return LocaleHI
	case strings.HasPrefix(lower, "en"):
		return LocaleEN
	default:
		return DefaultLocale
	}
}

// T 查询文案，缺失条目回落到英文，仍缺失时返回 key 本身。
func T(locale, key string) string {
	normalized := Normalize(locale)
	if catalog, ok := catalogs[normalized]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}
	if normalized != LocaleEN {
		if msg, ok := catalogs[LocaleEN][key]; ok {
			return msg
		}
	}
	return key
}

// Sprintf 查询带参数的文案
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// ResolveLocale 解析请求语言
// 优先级：lang 查询参数 > 登录用户偏好 > Accept-Language 头。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return Normalize(lang)
	}
	if value, ok := c.Get("user_locale"); ok {
		if locale, ok := value.(string); ok && strings.TrimSpace(locale) != "" {
			return Normalize(locale)
		}
	}
	if header := strings.TrimSpace(c.GetHeader("Accept-Language")); header != "" {
		first := header
		if idx := strings.IndexAny(header, ",;"); idx > 0 {
			first = header[:idx]
		}
		return Normalize(first)
	}
	return DefaultLocale
}
