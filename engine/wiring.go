package engine

import (
	"context"
	"time"

	"logitrack/heat"
	"logitrack/protocol"
)

func (e *Engine) wireEventHandlers() {
	// Pipe changes: refresh that pipe's card on the board
	e.Events.SubscribeTypes(func(evt Event) {
		var pipeID int64
		switch ev := evt.Payload.(type) {
		case PipeCreatedEvent:
			pipeID = ev.PipeID
		case StepTransitionedEvent:
			pipeID = ev.PipeID
		case PipeStatusChangedEvent:
			pipeID = ev.PipeID
		}
		if pipeID == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		e.board.RefreshPipe(ctx, pipeID)
	}, EventPipeCreated, EventStepTransitioned, EventPipeStatusChanged)

	// Heat transitions: log, and rebuild the board when production starts or ends
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(HeatTransitionedEvent)
		e.logFn("engine: heat %s %s (%s -> %s)", ev.Number, ev.Action, ev.OldStatus, ev.NewStatus)
		switch ev.NewStatus {
		case heat.StatusInProduction, heat.StatusCompleted, heat.StatusCancelled:
			if ev.OldStatus == ev.NewStatus {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			e.board.RefreshHeat(ctx, ev.HeatID)
		}
	}, EventHeatTransitioned)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(CoilStatusChangedEvent)
		e.logFn("engine: coil %s %s -> %s", ev.Code, ev.OldStatus, ev.NewStatus)
	}, EventCoilStatusChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(protocol.PipeDecisionFinalized)
		e.logFn("engine: pipe %d of heat %d finalized: %s", ev.PipeNumber, ev.HeatID, ev.Decision)
	}, EventPipeDecisionFinalized)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(protocol.HeatDelayReported)
		e.logFn("engine: heat %d %s late by %d min (%s)", ev.HeatID, ev.Checkpoint, ev.Minutes, ev.Reason)
	}, EventHeatDelayReported)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(protocol.CriticalAlert)
		e.logFn("engine: ALERT %s %d: %s", ev.EntityType, ev.EntityID, ev.Message)
	}, EventCriticalAlert)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s: %s", evt.Type, ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected, EventRedisConnected, EventRedisDisconnected)
}
