package public

import (
	"strconv"
	"time"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/repository"
	"github.com/greenmess-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateBookingRequest 餐食预约请求
type CreateBookingRequest struct {
	MealCategory string    `json:"meal_category" binding:"required"`
	MealAt       time.Time `json:"meal_at" binding:"required"`
}

// CreateBooking 预约一餐
func (h *Handler) CreateBooking(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	booking, err := h.BookingService.BookMeal(service.BookMealInput{
		UserID:       uid,
		MealCategory: req.MealCategory,
		MealAt:       req.MealAt,
	})
	if err != nil {
		respondBookingError(c, err)
		return
	}
	response.Success(c, booking)
}

// ListMyBookings 查询当前用户预约列表
func (h *Handler) ListMyBookings(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.BookingListFilter{
		Page:         page,
		PageSize:     pageSize,
		MealCategory: c.Query("meal_category"),
		Status:       c.Query("status"),
	}
	bookings, total, err := h.BookingService.ListBookings(uid, filter)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	response.SuccessWithPage(c, bookings, response.BuildPagination(page, pageSize, total))
}

// GetBooking 获取单条预约
func (h *Handler) GetBooking(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	booking, serr := h.BookingService.GetBooking(uint(id), uid)
	if serr != nil {
		respondBookingError(c, serr)
		return
	}
	response.Success(c, booking)
}

// AttendBooking 出席确认
func (h *Handler) AttendBooking(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	booking, serr := h.BookingService.MarkAttended(uint(id), uid)
	if serr != nil {
		respondBookingError(c, serr)
		return
	}
	response.Success(c, booking)
}
