package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReceiptDispatch forwards one PPI receipt to the upstream
	// finance endpoint.
	TaskTypeReceiptDispatch = "ppi:dispatch"
	// TaskTypeReceiptSweep re-enqueues submitted receipts whose dispatch got
	// lost (enqueue failure, worker crash).
	TaskTypeReceiptSweep = "ppi:sweep"
)

// ReceiptDispatchPayload identifies the receipt to forward.
type ReceiptDispatchPayload struct {
	ReceiptID int64 `json:"receipt_id"`
}

// NewReceiptDispatchTask constructs an Asynq task.
func NewReceiptDispatchTask(payload ReceiptDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptDispatch, data), nil
}

// NewReceiptSweepTask constructs the periodic sweep task.
func NewReceiptSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeReceiptSweep, nil)
}
