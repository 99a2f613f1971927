package admin

import (
	"strconv"
	"strings"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListBookingsAdmin 管理端获取餐食预约列表
func (h *Handler) ListBookingsAdmin(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.BookingListFilter{
		Page:         page,
		PageSize:     pageSize,
		MealCategory: c.Query("meal_category"),
		Status:       c.Query("status"),
	}
	if userIDRaw := strings.TrimSpace(c.Query("user_id")); userIDRaw != "" {
		userID, err := strconv.ParseUint(userIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.invalid_params", err)
			return
		}
		filter.UserID = uint(userID)
	}
	from, err := parseTimeNullable(strings.TrimSpace(c.Query("meal_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	to, err := parseTimeNullable(strings.TrimSpace(c.Query("meal_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	filter.MealFrom = from
	filter.MealTo = to

	bookings, total, err := h.BookingService.ListBookingsAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, bookings, response.BuildPagination(page, pageSize, total))
}

// RunNoShowSweep 手动触发未出席清扫
func (h *Handler) RunNoShowSweep(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	noShows, err := h.BookingService.NoShowSweep()
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	logger.Infow("admin_booking_no_show_sweep",
		"operator_user_id", adminID,
		"no_shows", noShows,
	)
	response.Success(c, gin.H{"no_shows": noShows})
}
