package domain

// Job statuses
const (
	JobStatusIdle     = "IDLE"
	JobStatusRunning  = "RUNNING"
	JobStatusFinished = "FINISHED"
	JobStatusFailed   = "FAILED"
)

// BalanceUpdateTag is the advisory grouping key attached to adjustment jobs
// so the executor serializes work against the same account's balance.
const BalanceUpdateTag = "prepaid_balance_update_wait"
