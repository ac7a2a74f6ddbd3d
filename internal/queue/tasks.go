package queue

import (
	"encoding/json"

	"github.com/mobi-voucher/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskLedgerReconcile audits a wallet projection against its ledger
	TaskLedgerReconcile = constants.TaskLedgerReconcile
)

// LedgerReconcilePayload identifies the wallet to audit. MerchantID 0 means
// audit every wallet.
type LedgerReconcilePayload struct {
	MerchantID uint `json:"merchant_id"`
}

// NewLedgerReconcileTask builds a reconcile task
func NewLedgerReconcileTask(payload LedgerReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, body), nil
}
