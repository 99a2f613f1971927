package worker

import (
	"context"
	"errors"
	"time"

	"github.com/greenmess-next/internal/config"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSurplusSweepInterval = time.Minute
	defaultNoShowSweepInterval  = 5 * time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.SurplusService != nil {
		go s.runSurplusSweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.BookingService != nil {
		go s.runBookingNoShowLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runSurplusSweepLoop 周期性将超过领取时限的可用余量标记为过期
func (s *Service) runSurplusSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.SurplusService == nil {
		return
	}
	runOnce := func() {
		if _, err := s.consumer.SurplusService.ExpireSweep(); err != nil {
			logger.Warnw("worker_surplus_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.resolveSurplusSweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runBookingNoShowLoop 周期性处理超过宽限期未核销的餐食预约
func (s *Service) runBookingNoShowLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.BookingService == nil {
		return
	}
	runOnce := func() {
		if _, err := s.consumer.BookingService.NoShowSweep(); err != nil {
			logger.Warnw("worker_booking_no_show_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.resolveNoShowSweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) resolveSurplusSweepInterval() time.Duration {
	if s == nil || s.consumer == nil || s.consumer.Config == nil {
		return defaultSurplusSweepInterval
	}
	if sec := s.consumer.Config.Surplus.SweepIntervalSeconds; sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultSurplusSweepInterval
}

func (s *Service) resolveNoShowSweepInterval() time.Duration {
	if s == nil || s.consumer == nil || s.consumer.Config == nil {
		return defaultNoShowSweepInterval
	}
	if sec := s.consumer.Config.Bookings.SweepIntervalSeconds; sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultNoShowSweepInterval
}
