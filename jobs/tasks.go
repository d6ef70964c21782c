package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerAudit replays every ledger and compares it to stored levels.
	TaskLedgerAudit = "stock:ledger_audit"
	// TaskReservationSweep reports reservations that no longer make sense.
	TaskReservationSweep = "stock:reservation_sweep"
)

// NewLedgerAuditTask constructs the ledger audit task.
func NewLedgerAuditTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerAudit, nil)
}

// NewReservationSweepTask constructs the reservation sweep task.
func NewReservationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskReservationSweep, nil)
}
