package events

import "time"

// ExecutionStart is emitted before executing an operation.
type ExecutionStart struct {
	OperationName string
	OperationType string
}

// ExecutionFinish is emitted after executing an operation. For incremental
// requests it covers the initial payload only; patch deliveries are
// reported separately.
type ExecutionFinish struct {
	OperationName string
	OperationType string
	ErrorCount    int
	Duration      time.Duration
}

// PatchDelivered is emitted each time an incremental patch is handed to the
// consumer.
type PatchDelivered struct {
	Label   string
	Path    string
	HasNext bool
}

// SubscriptionEvent is emitted for each source event executed by a
// subscription, after its per-event execution finishes.
type SubscriptionEvent struct {
	OperationName string
	ErrorCount    int
	Duration      time.Duration
}
