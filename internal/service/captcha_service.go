package service

import (
	"strings"
	"sync"
	"time"

	"github.com/greenmess-next/internal/config"
	"github.com/greenmess-next/internal/constants"

	"github.com/mojocn/base64Captcha"
)

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 验证码服务
// 配置驱动的图片验证码封装，登录等敏感场景按开关启用。
type CaptchaService struct {
	cfg config.CaptchaConfig

	mu                  sync.Mutex
	imageStore          base64Captcha.Store
	imageStoreMaxStore  int
	imageStoreExpireSec int
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{cfg: cfg}
}

// Enabled 验证码是否启用
func (s *CaptchaService) Enabled() bool {
	if s == nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(s.cfg.Provider)) == constants.CaptchaProviderImage
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if !s.Enabled() {
		return nil, ErrCaptchaConfigInvalid
	}

	store := s.ensureImageStore()
	driver := base64Captcha.NewDriverString(
		resolveCaptchaHeight(s.cfg),
		resolveCaptchaWidth(s.cfg),
		0,
		base64Captcha.OptionShowHollowLine,
		resolveCaptchaLength(s.cfg),
		"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, store)
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}

	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 校验验证码
// 未启用时直接放行。
func (s *CaptchaService) Verify(payload CaptchaVerifyPayload) error {
	if !s.Enabled() {
		return nil
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	store := s.ensureImageStore()
	if !store.Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) ensureImageStore() base64Captcha.Store {
	maxStore := resolveCaptchaMaxStore(s.cfg)
	expireSec := resolveCaptchaExpireSeconds(s.cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore != nil && s.imageStoreMaxStore == maxStore && s.imageStoreExpireSec == expireSec {
		return s.imageStore
	}
	s.imageStore = base64Captcha.NewMemoryStore(maxStore, time.Duration(expireSec)*time.Second)
	s.imageStoreMaxStore = maxStore
	s.imageStoreExpireSec = expireSec
	return s.imageStore
}

func resolveCaptchaHeight(cfg config.CaptchaConfig) int {
	if cfg.ImageHeight <= 0 {
		return 60
	}
	return cfg.ImageHeight
}

func resolveCaptchaWidth(cfg config.CaptchaConfig) int {
	if cfg.ImageWidth <= 0 {
		return 200
	}
	return cfg.ImageWidth
}

func resolveCaptchaLength(cfg config.CaptchaConfig) int {
	if cfg.Length < 4 || cfg.Length > 8 {
		return 5
	}
	return cfg.Length
}

func resolveCaptchaMaxStore(cfg config.CaptchaConfig) int {
	if cfg.MaxStore <= 0 {
		return base64Captcha.GCLimitNumber
	}
	return cfg.MaxStore
}

func resolveCaptchaExpireSeconds(cfg config.CaptchaConfig) int {
	if cfg.ExpireSeconds <= 0 {
		return 300
	}
	return cfg.ExpireSeconds
}
