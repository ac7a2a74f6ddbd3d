package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/provider"
	"github.com/mobi-voucher/internal/queue"
	"github.com/mobi-voucher/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles async tasks
type Consumer struct {
	*provider.Container
}

// NewConsumer creates a consumer
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register registers task handlers
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLedgerReconcile, c.handleLedgerReconcile)
}

func (c *Consumer) handleLedgerReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_ledger_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LedgerReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_ledger_reconcile_unmarshal_failed", "error", err)
		return err
	}
	if c.WalletService == nil {
		logger.Warnw("worker_ledger_reconcile_skip_wallet_service_nil", "merchant_id", payload.MerchantID)
		return nil
	}

	if payload.MerchantID == 0 {
		drifted, err := c.WalletService.ReconcileAll(ctx)
		if err != nil {
			logger.Warnw("worker_ledger_reconcile_all_failed", "error", err)
			return err
		}
		logger.Infow("worker_ledger_reconcile_all_done", "drifted_wallets", len(drifted))
		return nil
	}

	result, err := c.WalletService.Reconcile(ctx, payload.MerchantID)
	if err != nil {
		if errors.Is(err, service.ErrWalletNotFound) {
			logger.Debugw("worker_ledger_reconcile_skip_wallet_not_found", "merchant_id", payload.MerchantID)
			return nil
		}
		logger.Warnw("worker_ledger_reconcile_failed", "merchant_id", payload.MerchantID, "error", err)
		return err
	}
	if !result.Drift.IsZero() {
		logger.Warnw("worker_ledger_reconcile_drift",
			"merchant_id", payload.MerchantID,
			"wallet_id", result.WalletID,
			"drift", result.Drift.StringFixed(2),
		)
	}
	return nil
}
