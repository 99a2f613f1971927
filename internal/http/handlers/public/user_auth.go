package public

import (
	"errors"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/i18n"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	Hostel       string `json:"hostel"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
}

// UserRegister 用户注册
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	user, token, expiresAt, err := h.AuthService.Register(service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		Role:         req.Role,
		Hostel:       req.Hostel,
		Organization: req.Organization,
		Phone:        req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			locale := i18n.ResolveLocale(c)
			if perr, ok := err.(interface {
				Key() string
				Args() []interface{}
			}); ok {
				msg := i18n.Sprintf(locale, perr.Key(), perr.Args()...)
				respondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
				return
			}
			respondError(c, response.CodeBadRequest, "error.weak_password", nil)
		default:
			respondAuthError(c, err)
		}
		return
	}

	response.Success(c, gin.H{
		"user":       buildUserProfilePayload(user),
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email          string                `json:"email" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	RememberMe     bool                  `json:"remember_me"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(req.CaptchaPayload.toServicePayload()); captchaErr != nil {
			respondAuthError(c, captchaErr)
			return
		}
	}

	user, token, expiresAt, err := h.AuthService.LoginWithRememberMe(req.Email, req.Password, req.RememberMe)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user":       buildUserProfilePayload(user),
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetMe 获取当前用户信息
func (h *Handler) GetMe(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.AuthService.GetUserByID(uid)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.Success(c, buildUserProfilePayload(user))
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Hostel      *string `json:"hostel"`
	Phone       *string `json:"phone"`
	Locale      *string `json:"locale"`
}

// UpdateProfile 更新当前用户资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	user, err := h.AuthService.UpdateProfile(uid, req.DisplayName, req.Hostel, req.Phone, req.Locale)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.Success(c, buildUserProfilePayload(user))
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 登录态修改密码
func (h *Handler) ChangePassword(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	if err := h.AuthService.ChangePassword(uid, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			locale := i18n.ResolveLocale(c)
			if perr, ok := err.(interface {
				Key() string
				Args() []interface{}
			}); ok {
				msg := i18n.Sprintf(locale, perr.Key(), perr.Args()...)
				respondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
				return
			}
			respondError(c, response.CodeBadRequest, "error.weak_password", nil)
		default:
			respondAuthError(c, err)
		}
		return
	}
	response.Success(c, gin.H{"changed": true})
}

func buildUserProfilePayload(user *models.User) gin.H {
	if user == nil {
		return gin.H{}
	}
	return gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"display_name":  user.DisplayName,
		"role":          user.Role,
		"hostel":        user.Hostel,
		"organization":  user.Organization,
		"phone":         user.Phone,
		"green_credits": user.GreenCredits,
		"streak":        user.Streak,
		"locale":        user.Locale,
		"status":        user.Status,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
	}
}
