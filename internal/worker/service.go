package worker

import (
	"context"
	"errors"
	"time"

	"github.com/moban-market/internal/config"
	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	orderExpireScanInterval = time.Minute
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
	if s.consumer != nil && s.consumer.OrderService != nil {
		go s.runOrderExpireLoop(ctx)
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

// runOrderExpireLoop 兜底扫描超时未支付订单。
// 定时任务可能因队列停摆丢失，循环保证最终失效。
func (s *Service) runOrderExpireLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrderService == nil {
		return
	}
	runOnce := func() {
		expired, err := s.consumer.OrderService.ExpireOverdueOrders(time.Now())
		if err != nil {
			logger.Warnw("worker_order_expire_loop_failed", "error", err)
			return
		}
		if expired > 0 {
			logger.Infow("worker_order_expire_loop_done", "expired_count", expired)
		}
	}
	runOnce()

	ticker := time.NewTicker(orderExpireScanInterval)
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
