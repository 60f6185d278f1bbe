package protocol

// Message type constants. The names are the event names external consumers
// subscribe to and must not change.
const (
	TypePipeDecisionFinalized = "pipe.decision.finalized"
	TypeHeatDelayReported     = "heat.delay.reported"
	TypeCriticalAlert         = "alert.critical"
)

// Roles for Address.Role.
const (
	RoleTracker = "tracker"
	RoleDisplay = "display"
)

// Protocol version.
const Version = 1
