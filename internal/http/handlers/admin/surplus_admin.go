package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListSurplusAdmin 管理端获取余量记录列表
func (h *Handler) ListSurplusAdmin(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.SurplusListFilter{
		Page:           page,
		PageSize:       pageSize,
		MealCategory:   c.Query("meal_category"),
		SourceLocation: c.Query("source_location"),
		Status:         c.Query("status"),
	}
	from, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	to, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to

	records, total, err := h.SurplusService.ListAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// RunExpireSweep 手动触发过期清扫
// 定时任务之外的兜底入口，返回本次标记过期的记录数。
func (h *Handler) RunExpireSweep(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	expired, err := h.SurplusService.ExpireSweep()
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	logger.Infow("admin_surplus_expire_sweep",
		"operator_user_id", adminID,
		"expired", expired,
	)
	response.Success(c, gin.H{"expired": expired})
}

func parseTimeNullable(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
