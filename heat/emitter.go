package heat

import (
	"context"

	"logitrack/notify"
)

// EventEmitter is the interface the heat package uses to emit events.
type EventEmitter interface {
	EmitHeatTransitioned(heatID int64, number, action, oldStatus, newStatus string)
}

// DelayNotifier receives late checkpoints once they are committed.
type DelayNotifier interface {
	HeatDelayReported(ctx context.Context, d notify.HeatDelay)
}
