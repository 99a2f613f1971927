package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/i18n"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/repository"
	"github.com/greenmess-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListUsers 管理端获取用户列表
func (h *Handler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Role:     c.Query("role"),
		Hostel:   c.Query("hostel"),
		Status:   c.Query("status"),
	}
	users, total, err := h.UserService.ListUsers(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// GetUser 管理端获取单个用户
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := parseUserIDParam(c)
	if !ok {
		return
	}
	user, err := h.UserService.GetUser(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.Success(c, user)
}

// CreateUserRequest 管理端创建用户请求
type CreateUserRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role" binding:"required"`
	Hostel       string `json:"hostel"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
}

// CreateUser 管理端创建用户
func (h *Handler) CreateUser(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	user, err := h.UserService.CreateUser(service.CreateUserInput{
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
		case errors.Is(err, service.ErrValidation):
			respondValidationError(c, err)
		case errors.Is(err, service.ErrEmailExists):
			respondError(c, response.CodeConflict, "error.email_exists", nil)
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
			respondError(c, response.CodeInternal, "error.store_failed", err)
		}
		return
	}

	logger.Infow("admin_user_created",
		"operator_user_id", adminID,
		"user_id", user.ID,
		"role", user.Role,
	)
	response.Success(c, user)
}

// BatchUpdateUserStatusRequest 批量更新用户状态请求
type BatchUpdateUserStatusRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// BatchUpdateUserStatus 批量启用/禁用用户
func (h *Handler) BatchUpdateUserStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req BatchUpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	if err := h.UserService.BatchUpdateStatus(req.UserIDs, req.Status); err != nil {
		if errors.Is(err, service.ErrValidation) {
			respondValidationError(c, err)
			return
		}
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	logger.Infow("admin_user_status_updated",
		"operator_user_id", adminID,
		"users", len(req.UserIDs),
		"status", req.Status,
	)
	response.Success(c, gin.H{"updated": len(req.UserIDs)})
}

// AdjustCreditsRequest 积分人工调整请求
type AdjustCreditsRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Remark string `json:"remark"`
}

// AdjustCredits 人工调整用户积分，正数发放负数扣减。
func (h *Handler) AdjustCredits(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseUserIDParam(c)
	if !ok {
		return
	}
	var req AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	txn, err := h.RewardService.Credit(service.RewardCreditInput{
		UserID: id,
		Type:   constants.RewardTxnTypeAdminAdjust,
		Amount: req.Amount,
		Remark: strings.TrimSpace(req.Remark),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrValidation):
			respondValidationError(c, err)
		default:
			respondError(c, response.CodeInternal, "error.store_failed", err)
		}
		return
	}

	logger.Infow("admin_credits_adjusted",
		"operator_user_id", adminID,
		"user_id", id,
		"amount", req.Amount,
	)
	response.Success(c, txn)
}

// ListRewardTransactionsAdmin 管理端查询积分流水
func (h *Handler) ListRewardTransactionsAdmin(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.RewardListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     c.Query("type"),
	}
	if userIDRaw := strings.TrimSpace(c.Query("user_id")); userIDRaw != "" {
		userID, err := strconv.ParseUint(userIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.invalid_params", err)
			return
		}
		filter.UserID = uint(userID)
	}
	txns, total, err := h.RewardService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, txns, response.BuildPagination(page, pageSize, total))
}

func parseUserIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		return 0, false
	}
	return uint(id), true
}
