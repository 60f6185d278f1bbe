package engine

const (
	EventCoilStatusChanged EventType = iota + 1
	EventHeatTransitioned
	EventPipeCreated
	EventStepTransitioned
	EventPipeStatusChanged
	EventPipeDecisionFinalized
	EventHeatDelayReported
	EventCriticalAlert
	EventMessagingConnected
	EventMessagingDisconnected
	EventRedisConnected
	EventRedisDisconnected
)

var eventNames = map[EventType]string{
	EventCoilStatusChanged:     "coil-status",
	EventHeatTransitioned:      "heat-transition",
	EventPipeCreated:           "pipe-created",
	EventStepTransitioned:      "step-transition",
	EventPipeStatusChanged:     "pipe-status",
	EventPipeDecisionFinalized: "pipe-decision",
	EventHeatDelayReported:     "heat-delay",
	EventCriticalAlert:         "critical-alert",
	EventMessagingConnected:    "messaging-connected",
	EventMessagingDisconnected: "messaging-disconnected",
	EventRedisConnected:        "redis-connected",
	EventRedisDisconnected:     "redis-disconnected",
}

// String is the SSE event name.
func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "unknown"
}

// --- Event payloads ---

type CoilStatusChangedEvent struct {
	CoilID    int64  `json:"coil_id"`
	Code      string `json:"code"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type HeatTransitionedEvent struct {
	HeatID    int64  `json:"heat_id"`
	Number    string `json:"number"`
	Action    string `json:"action"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type PipeCreatedEvent struct {
	PipeID int64 `json:"pipe_id"`
	HeatID int64 `json:"heat_id"`
	Number int   `json:"number"`
}

type StepTransitionedEvent struct {
	PipeID    int64  `json:"pipe_id"`
	HeatID    int64  `json:"heat_id"`
	Step      int    `json:"step"`
	Code      string `json:"code"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type PipeStatusChangedEvent struct {
	PipeID    int64  `json:"pipe_id"`
	HeatID    int64  `json:"heat_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type ConnectionEvent struct {
	Detail string `json:"detail"`
}
