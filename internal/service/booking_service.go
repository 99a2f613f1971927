package service

import (
	"strings"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/queue"
	"github.com/greenmess-next/internal/repository"
)

// BookingService 餐食预约服务
// 出席记录用于积分发放与连续出席统计，未出席由定时清扫标记。
type BookingService struct {
	bookingRepo       repository.BookingRepository
	userRepo          repository.UserRepository
	queueClient       *queue.Client
	attendanceCredits int64
	noShowGraceHours  int
}

// NewBookingService 创建餐食预约服务
func NewBookingService(bookingRepo repository.BookingRepository, userRepo repository.UserRepository, queueClient *queue.Client, attendanceCredits int64, noShowGraceHours int) *BookingService {
	if noShowGraceHours <= 0 {
		noShowGraceHours = 2
	}
	return &BookingService{
		bookingRepo:       bookingRepo,
		userRepo:          userRepo,
		queueClient:       queueClient,
		attendanceCredits: attendanceCredits,
		noShowGraceHours:  noShowGraceHours,
	}
}

// BookMealInput 预约输入
type BookMealInput struct {
	UserID       uint
	MealCategory string
	MealAt       time.Time
}

// BookMeal 预约一餐
func (s *BookingService) BookMeal(input BookMealInput) (*models.MealBooking, error) {
	if input.UserID == 0 {
		return nil, ErrNotFound
	}
	fields := make([]string, 0, 2)
	mealCategory := strings.ToLower(strings.TrimSpace(input.MealCategory))
	if !containsValue(constants.SupportedMealCategories, mealCategory) {
		fields = append(fields, "meal_category")
	}
	if input.MealAt.IsZero() {
		fields = append(fields, "meal_at")
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields...)
	}
	if !input.MealAt.After(time.Now()) {
		return nil, ErrBookingInPast
	}

	existing, err := s.bookingRepo.GetByUserAndMeal(input.UserID, mealCategory, input.MealAt)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if existing != nil {
		return nil, ErrBookingExists
	}

	booking := &models.MealBooking{
		UserID:       input.UserID,
		MealCategory: mealCategory,
		MealAt:       input.MealAt,
		Status:       constants.BookingStatusBooked,
	}
	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, wrapStoreError(err)
	}
	return booking, nil
}

// ListBookings 查询用户预约列表
func (s *BookingService) ListBookings(userID uint, filter repository.BookingListFilter) ([]models.MealBooking, int64, error) {
	if userID == 0 {
		return nil, 0, ErrBookingForbidden
	}
	filter.UserID = userID
	bookings, total, err := s.bookingRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return bookings, total, nil
}

// GetBooking 获取单条预约，仅允许本人查看。
func (s *BookingService) GetBooking(id uint, userID uint) (*models.MealBooking, error) {
	if userID == 0 {
		return nil, ErrBookingForbidden
	}
	booking, err := s.bookingRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, ErrBookingForbidden
	}
	return booking, nil
}

// ListBookingsAdmin 管理端查询预约列表
func (s *BookingService) ListBookingsAdmin(filter repository.BookingListFilter) ([]models.MealBooking, int64, error) {
	bookings, total, err := s.bookingRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return bookings, total, nil
}

// MarkAttended 出席确认
// 成功后递增连续出席天数并异步发放出席积分。
func (s *BookingService) MarkAttended(id uint, userID uint) (*models.MealBooking, error) {
	if userID == 0 {
		return nil, ErrBookingForbidden
	}
	booking, err := s.bookingRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, ErrBookingForbidden
	}
	if booking.Status != constants.BookingStatusBooked {
		return nil, ErrBookingNotBooked
	}

	now := time.Now()
	affected, err := s.bookingRepo.MarkAttended(id, userID, now)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if affected == 0 {
		return nil, ErrBookingNotBooked
	}

	if err := s.userRepo.IncrementStreaks([]uint{userID}); err != nil {
		logger.Warnw("booking_streak_increment_failed", "booking_id", id, "user_id", userID, "error", err)
	}
	if s.attendanceCredits > 0 {
		if err := s.queueClient.EnqueueRewardCredit(queue.RewardCreditPayload{
			UserID: userID,
			Type:   constants.RewardTxnTypeAttendance,
			Amount: s.attendanceCredits,
			RefID:  id,
			Remark: "meal attendance",
		}); err != nil {
			logger.Warnw("reward_credit_enqueue_failed", "booking_id", id, "user_id", userID, "error", err)
		}
	}

	booking, err = s.bookingRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// NoShowSweep 未出席清扫
// 用餐时间超过宽限期仍为 booked 的预约标记为 no_show，并清零相关用户的连续出席天数。
func (s *BookingService) NoShowSweep() (int64, error) {
	deadline := time.Now().Add(-time.Duration(s.noShowGraceHours) * time.Hour)

	stale, _, err := s.bookingRepo.List(repository.BookingListFilter{
		Status: constants.BookingStatusBooked,
		MealTo: &deadline,
	})
	if err != nil {
		return 0, wrapStoreError(err)
	}
	userIDs := make([]uint, 0, len(stale))
	seen := make(map[uint]struct{}, len(stale))
	for _, booking := range stale {
		if _, ok := seen[booking.UserID]; ok {
			continue
		}
		seen[booking.UserID] = struct{}{}
		userIDs = append(userIDs, booking.UserID)
	}

	affected, err := s.bookingRepo.MarkNoShows(deadline)
	if err != nil {
		return 0, wrapStoreError(err)
	}
	if affected > 0 {
		if err := s.userRepo.ResetStreaks(userIDs); err != nil {
			logger.Warnw("booking_streak_reset_failed", "users", len(userIDs), "error", err)
		}
		logger.Infow("booking_no_show_sweep_done", "no_shows", affected)
	}
	return affected, nil
}
