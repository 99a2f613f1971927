package public

import (
	"errors"
	"strconv"
	"time"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/repository"
	"github.com/greenmess-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LogSurplusRequest 余量登记请求
// 数量和估算价值以字符串传输，避免浮点精度问题。
type LogSurplusRequest struct {
	SourceLocation string            `json:"source_location" binding:"required"`
	MealCategory   string            `json:"meal_category" binding:"required"`
	Quantity       string            `json:"quantity" binding:"required"`
	Unit           string            `json:"unit"`
	FoodItems      []models.FoodItem `json:"food_items"`
	ExpiryAt       time.Time         `json:"expiry_at" binding:"required"`
	Notes          string            `json:"notes"`
	Quality        string            `json:"quality"`
	EstimatedValue string            `json:"estimated_value"`
}

// LogSurplus 登记余量记录
func (h *Handler) LogSurplus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req LogSurplusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		respondValidationError(c, service.NewValidationError("quantity"))
		return
	}
	input := service.LogSurplusInput{
		ReportedBy:     uid,
		SourceLocation: req.SourceLocation,
		MealCategory:   req.MealCategory,
		Quantity:       quantity,
		Unit:           req.Unit,
		FoodItems:      req.FoodItems,
		ExpiryAt:       req.ExpiryAt,
		Notes:          req.Notes,
		Quality:        req.Quality,
	}
	if req.EstimatedValue != "" {
		value, verr := decimal.NewFromString(req.EstimatedValue)
		if verr != nil {
			respondValidationError(c, service.NewValidationError("estimated_value"))
			return
		}
		input.EstimatedValue = &value
	}

	record, err := h.SurplusService.LogSurplus(input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			respondValidationError(c, err)
			return
		}
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.Success(c, record)
}

// ListAvailableSurplus 获取可认领的余量记录列表
func (h *Handler) ListAvailableSurplus(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.SurplusListFilter{
		Page:           page,
		PageSize:       pageSize,
		MealCategory:   c.Query("meal_category"),
		SourceLocation: c.Query("source_location"),
	}
	records, total, err := h.SurplusService.ListAvailable(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// GetSurplus 获取单条余量记录
func (h *Handler) GetSurplus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	record, serr := h.SurplusService.GetSurplus(uint(id))
	if serr != nil {
		if errors.Is(serr, service.ErrSurplusNotFound) {
			respondError(c, response.CodeNotFound, "error.surplus_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.store_failed", serr)
		return
	}
	response.Success(c, record)
}

// ClaimSurplus 认领余量记录
func (h *Handler) ClaimSurplus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	record, serr := h.SurplusService.Claim(uint(id), uid)
	if serr != nil {
		respondSurplusClaimError(c, serr)
		return
	}
	response.Success(c, record)
}

// CollectSurplusRequest 领取确认请求
type CollectSurplusRequest struct {
	Notes string `json:"notes"`
}

// CollectSurplus 确认领取完成
func (h *Handler) CollectSurplus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	var req CollectSurplusRequest
	if c.Request.ContentLength > 0 {
		if berr := c.ShouldBindJSON(&req); berr != nil {
			respondError(c, response.CodeBadRequest, "error.invalid_params", berr)
			return
		}
	}
	record, serr := h.SurplusService.ConfirmCollection(uint(id), uid, req.Notes)
	if serr != nil {
		respondSurplusCollectError(c, serr)
		return
	}
	response.Success(c, record)
}

// ListMyClaims 获取当前用户认领的余量记录列表
func (h *Handler) ListMyClaims(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ClaimListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	}
	records, total, err := h.SurplusService.ListClaims(uid, filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}
