package service

import (
	"context"
	"strings"
	"time"

	"github.com/greenmess-next/internal/cache"
	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/repository"
)

// UserService 用户管理服务（管理端）
type UserService struct {
	userRepo    repository.UserRepository
	authService *AuthService
}

// NewUserService 创建用户管理服务
func NewUserService(userRepo repository.UserRepository, authService *AuthService) *UserService {
	return &UserService{
		userRepo:    userRepo,
		authService: authService,
	}
}

// ListUsers 用户列表
func (s *UserService) ListUsers(filter repository.UserListFilter) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return users, total, nil
}

// GetUser 获取单个用户
func (s *UserService) GetUser(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// CreateUserInput 管理端创建用户输入
type CreateUserInput struct {
	Email        string
	Password     string
	DisplayName  string
	Role         string
	Hostel       string
	Organization string
	Phone        string
}

// CreateUser 管理端创建用户，可创建任意角色账号。
func (s *UserService) CreateUser(input CreateUserInput) (*models.User, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, NewValidationError("email")
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if !containsValue(constants.SupportedUserRoles, role) {
		return nil, NewValidationError("role")
	}
	if err := s.authService.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	exist, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if exist != nil {
		return nil, ErrEmailExists
	}

	hash, err := s.authService.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = resolveNicknameFromEmail(normalized)
	}
	user := &models.User{
		Email:        normalized,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         role,
		Hostel:       strings.TrimSpace(input.Hostel),
		Organization: strings.TrimSpace(input.Organization),
		Phone:        strings.TrimSpace(input.Phone),
		Status:       constants.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, wrapStoreError(err)
	}
	return user, nil
}

// BatchUpdateStatus 批量启用/禁用用户
// 禁用会同时失效用户的历史 token 与鉴权缓存。
func (s *UserService) BatchUpdateStatus(userIDs []uint, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		return NewValidationError("status")
	}
	if len(userIDs) == 0 {
		return NewValidationError("user_ids")
	}
	if err := s.userRepo.BatchUpdateStatus(userIDs, status); err != nil {
		return wrapStoreError(err)
	}
	for _, id := range userIDs {
		_ = cache.DelUserAuthState(context.Background(), id)
	}
	return nil
}
