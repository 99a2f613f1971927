package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/greenmess-next/internal/config"
	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:             "auth-service-test-secret-key-0123456789",
			ExpireHours:           24,
			RememberMeExpireHours: 24 * 30,
		},
		Security: config.SecurityConfig{
			PasswordPolicy: config.PasswordPolicyConfig{
				MinLength:     8,
				RequireUpper:  true,
				RequireLower:  true,
				RequireNumber: true,
			},
		},
	}
	userRepo := repository.NewUserRepository(db)
	return NewAuthService(cfg, userRepo), db
}

func TestRegisterDefaultsToStudentRole(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	user, token, expiresAt, err := svc.Register(RegisterInput{
		Email:    " Asha@Student.Test ",
		Password: "Sunrise42",
		Hostel:   "Hostel A",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "asha@student.test" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != constants.UserRoleStudent {
		t.Fatalf("expected default student role, got %s", user.Role)
	}
	if user.DisplayName != "asha" {
		t.Fatalf("expected display name derived from email, got %q", user.DisplayName)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected usable token, got %q exp %v", token, expiresAt)
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != constants.UserRoleStudent {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterRestrictsSelfServiceRoles(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	for _, role := range []string{constants.UserRoleMessStaff, constants.UserRoleAdmin} {
		_, _, _, err := svc.Register(RegisterInput{
			Email:    fmt.Sprintf("%s@campus.test", role),
			Password: "Sunrise42",
			Role:     role,
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for role %s, got %v", role, err)
		}
		fields := ValidationFields(err)
		if len(fields) != 1 || fields[0] != "role" {
			t.Fatalf("expected role field flagged for %s, got %v", role, fields)
		}
	}
}

func TestRegisterNGORequiresOrganization(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	_, _, _, err := svc.Register(RegisterInput{
		Email:    "bridge@ngo.test",
		Password: "Sunrise42",
		Role:     constants.UserRoleNGO,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := ValidationFields(err)
	if len(fields) != 1 || fields[0] != "organization" {
		t.Fatalf("expected organization field flagged, got %v", fields)
	}

	user, _, _, err := svc.Register(RegisterInput{
		Email:        "bridge@ngo.test",
		Password:     "Sunrise42",
		Role:         constants.UserRoleNGO,
		Organization: "FoodBridge Foundation",
	})
	if err != nil {
		t.Fatalf("ngo register failed: %v", err)
	}
	if user.Role != constants.UserRoleNGO || user.Organization != "FoodBridge Foundation" {
		t.Fatalf("unexpected ngo account: role=%s org=%q", user.Role, user.Organization)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	if _, _, _, err := svc.Register(RegisterInput{Email: "dup@student.test", Password: "Sunrise42"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, _, _, err := svc.Register(RegisterInput{Email: "DUP@student.test", Password: "Sunrise42"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected email exists error, got %v", err)
	}
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	_, _, _, err := svc.Register(RegisterInput{Email: "weak@student.test", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	perr, ok := err.(interface {
		Key() string
		Args() []interface{}
	})
	if !ok {
		t.Fatalf("expected keyed policy error, got %T", err)
	}
	if perr.Key() != "error.password_min_length" {
		t.Fatalf("unexpected policy key: %s", perr.Key())
	}

	_, _, _, err = svc.Register(RegisterInput{Email: "weak@student.test", Password: "sunrise42"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password for missing uppercase, got %v", err)
	}
}

func TestLoginCredentialChecks(t *testing.T) {
	svc, db := setupAuthServiceTest(t)

	registered, _, _, err := svc.Register(RegisterInput{Email: "login@student.test", Password: "Sunrise42"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, _, err := svc.Login("login@student.test", "WrongPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, _, err := svc.Login("missing@student.test", "Sunrise42"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}

	user, token, _, err := svc.Login("LOGIN@student.test", "Sunrise42")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != registered.ID || token == "" {
		t.Fatalf("unexpected login result: user=%d token=%q", user.ID, token)
	}
	if user.LastLoginAt == nil {
		t.Fatal("expected last_login_at to be set")
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, _, _, err := svc.Login("login@student.test", "Sunrise42"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestRememberMeExtendsExpiry(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	if _, _, _, err := svc.Register(RegisterInput{Email: "remember@student.test", Password: "Sunrise42"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, normalExp, err := svc.LoginWithRememberMe("remember@student.test", "Sunrise42", false)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, _, rememberExp, err := svc.LoginWithRememberMe("remember@student.test", "Sunrise42", true)
	if err != nil {
		t.Fatalf("remember me login failed: %v", err)
	}
	if !rememberExp.After(normalExp.Add(24 * time.Hour)) {
		t.Fatalf("expected remember me expiry far beyond normal one: %v vs %v", rememberExp, normalExp)
	}
}

func TestChangePasswordRevokesOldTokens(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	user, oldToken, _, err := svc.Register(RegisterInput{Email: "rotate@student.test", Password: "Sunrise42"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "WrongOld1", "Moonrise42"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "Sunrise42", "tiny"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}

	if err := svc.ChangePassword(user.ID, "Sunrise42", "Moonrise42"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	rotated, err := svc.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if rotated.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", rotated.TokenVersion)
	}
	if rotated.TokenInvalidBefore == nil {
		t.Fatal("expected token_invalid_before to be set")
	}

	oldClaims, err := svc.ParseJWT(oldToken)
	if err != nil {
		t.Fatalf("parse old token failed: %v", err)
	}
	if oldClaims.TokenVersion == rotated.TokenVersion {
		t.Fatal("old token must carry a stale token version")
	}

	if _, _, _, err := svc.Login("rotate@student.test", "Sunrise42"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, _, err := svc.Login("rotate@student.test", "Moonrise42"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestUpdateProfileValidatesLocale(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	user, _, _, err := svc.Register(RegisterInput{Email: "profile@student.test", Password: "Sunrise42"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	hostel := "Hostel C"
	locale := constants.LocaleHiIN
	updated, err := svc.UpdateProfile(user.ID, nil, &hostel, nil, &locale)
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if updated.Hostel != "Hostel C" || updated.Locale != constants.LocaleHiIN {
		t.Fatalf("unexpected profile: hostel=%q locale=%q", updated.Hostel, updated.Locale)
	}

	if _, err := svc.UpdateProfile(user.ID, nil, nil, nil, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty update, got %v", err)
	}
}
