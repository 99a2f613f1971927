package constants

// 余量食物状态常量
const (
	SurplusStatusAvailable = "available"
	SurplusStatusClaimed   = "claimed"
	SurplusStatusCollected = "collected"
	SurplusStatusExpired   = "expired"
)

// 餐次类型常量
const (
	MealCategoryBreakfast = "breakfast"
	MealCategoryLunch     = "lunch"
	MealCategorySnacks    = "snacks"
	MealCategoryDinner    = "dinner"
)

// 支持的餐次类型顺序
var SupportedMealCategories = []string{
	MealCategoryBreakfast,
	MealCategoryLunch,
	MealCategorySnacks,
	MealCategoryDinner,
}

// 余量计量单位常量
const (
	SurplusUnitKG       = "kg"
	SurplusUnitPortions = "portions"
	SurplusUnitLiters   = "liters"
)

// 支持的计量单位顺序
var SupportedSurplusUnits = []string{
	SurplusUnitKG,
	SurplusUnitPortions,
	SurplusUnitLiters,
}

// 余量品质常量
const (
	SurplusQualityExcellent = "excellent"
	SurplusQualityGood      = "good"
	SurplusQualityFair      = "fair"
)

// 支持的品质顺序
var SupportedSurplusQualities = []string{
	SurplusQualityExcellent,
	SurplusQualityGood,
	SurplusQualityFair,
}

// 用户角色常量
const (
	UserRoleAdmin     = "admin"
	UserRoleMessStaff = "mess_staff"
	UserRoleNGO       = "ngo"
	UserRoleStudent   = "student"
)

// 支持的用户角色顺序
var SupportedUserRoles = []string{
	UserRoleAdmin,
	UserRoleMessStaff,
	UserRoleNGO,
	UserRoleStudent,
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 餐食预约状态常量
const (
	BookingStatusBooked   = "booked"
	BookingStatusAttended = "attended"
	BookingStatusNoShow   = "no_show"
)

// 积分流水类型常量
const (
	RewardTxnTypeCollection  = "surplus_collection"
	RewardTxnTypeAttendance  = "meal_attendance"
	RewardTxnTypeAdminAdjust = "admin_adjust"
)

// 通知事件主题常量
const (
	NotificationTopicSurplusLogged    = "surplus-logged"
	NotificationTopicSurplusClaimed   = "surplus-claimed"
	NotificationTopicSurplusCollected = "surplus-collected"
)

// 队列常量
const (
	QueueDefault         = "default"
	TaskSurplusLogged    = "surplus:logged"
	TaskSurplusClaimed   = "surplus:claimed"
	TaskSurplusCollected = "surplus:collected"
	TaskRewardCredit     = "reward:credit"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "gm"
)

// 登录日志失败原因常量
const (
	LoginFailReasonBadRequest         = "bad_request"
	LoginFailReasonCaptchaRequired    = "captcha_required"
	LoginFailReasonCaptchaInvalid     = "captcha_invalid"
	LoginFailReasonInvalidCredentials = "invalid_credentials"
	LoginFailReasonUserDisabled       = "user_disabled"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 站点语言常量
const (
	LocaleEnUS = "en-US"
	LocaleHiIN = "hi-IN"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleEnUS, LocaleHiIN}
