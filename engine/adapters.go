package engine

import "logitrack/protocol"

// coilEmitter bridges the coil package's emitter interface to the EventBus.
type coilEmitter struct {
	bus *EventBus
}

func (e *coilEmitter) EmitCoilStatusChanged(coilID int64, code, oldStatus, newStatus string) {
	e.bus.Emit(Event{Type: EventCoilStatusChanged, Payload: CoilStatusChangedEvent{
		CoilID:    coilID,
		Code:      code,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}})
}

// heatEmitter bridges the heat lifecycle to the EventBus.
type heatEmitter struct {
	bus *EventBus
}

func (e *heatEmitter) EmitHeatTransitioned(heatID int64, number, action, oldStatus, newStatus string) {
	e.bus.Emit(Event{Type: EventHeatTransitioned, Payload: HeatTransitionedEvent{
		HeatID:    heatID,
		Number:    number,
		Action:    action,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}})
}

// pipeEmitter bridges the progression engine to the EventBus.
type pipeEmitter struct {
	bus *EventBus
}

func (e *pipeEmitter) EmitPipeCreated(pipeID, heatID int64, number int) {
	e.bus.Emit(Event{Type: EventPipeCreated, Payload: PipeCreatedEvent{PipeID: pipeID, HeatID: heatID, Number: number}})
}

func (e *pipeEmitter) EmitStepTransitioned(pipeID, heatID int64, step int, code, oldStatus, newStatus string) {
	e.bus.Emit(Event{Type: EventStepTransitioned, Payload: StepTransitionedEvent{
		PipeID:    pipeID,
		HeatID:    heatID,
		Step:      step,
		Code:      code,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}})
}

func (e *pipeEmitter) EmitPipeStatusChanged(pipeID, heatID int64, oldStatus, newStatus string) {
	e.bus.Emit(Event{Type: EventPipeStatusChanged, Payload: PipeStatusChangedEvent{
		PipeID:    pipeID,
		HeatID:    heatID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}})
}

// notifyEmitter forwards published notifications to the EventBus. The
// payloads are the external protocol payloads unchanged.
type notifyEmitter struct {
	bus *EventBus
}

func (e *notifyEmitter) EmitPipeDecisionFinalized(p protocol.PipeDecisionFinalized) {
	e.bus.Emit(Event{Type: EventPipeDecisionFinalized, Payload: p})
}

func (e *notifyEmitter) EmitHeatDelayReported(p protocol.HeatDelayReported) {
	e.bus.Emit(Event{Type: EventHeatDelayReported, Payload: p})
}

func (e *notifyEmitter) EmitCriticalAlert(p protocol.CriticalAlert) {
	e.bus.Emit(Event{Type: EventCriticalAlert, Payload: p})
}
