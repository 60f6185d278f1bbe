package progression

import (
	"context"

	"logitrack/notify"
)

// EventEmitter is the interface the progression package uses to emit events.
type EventEmitter interface {
	EmitPipeCreated(pipeID, heatID int64, number int)
	EmitStepTransitioned(pipeID, heatID int64, step int, code, oldStatus, newStatus string)
	EmitPipeStatusChanged(pipeID, heatID int64, oldStatus, newStatus string)
}

// Notifier receives terminal events once they are committed.
type Notifier interface {
	PipeDecisionFinalized(ctx context.Context, d notify.PipeDecision)
	CriticalAlert(ctx context.Context, a notify.Alert)
}
