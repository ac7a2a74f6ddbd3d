package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	ledgerAuditInterval = 15 * time.Minute
)

// Service runs the asynq consumer
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService creates the worker service
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

// Name returns the service name
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the consumer and the periodic ledger audit loop
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.WalletService != nil {
		go s.runLedgerAuditLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop shuts the consumer down
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runLedgerAuditLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.WalletService == nil {
		return
	}
	runOnce := func() {
		drifted, err := s.consumer.WalletService.ReconcileAll(ctx)
		if err != nil {
			logger.Warnw("worker_ledger_audit_failed", "error", err)
			return
		}
		if len(drifted) > 0 {
			logger.Warnw("worker_ledger_audit_drift_found", "wallets", len(drifted))
		}
	}
	runOnce()

	ticker := time.NewTicker(ledgerAuditInterval)
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
