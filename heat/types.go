package heat

import "time"

// Heat statuses
const (
	StatusInProgress         = "in_progress"
	StatusReadyForProduction = "ready_for_production"
	StatusInProduction       = "in_production"
	StatusCompleted          = "completed"
	StatusCancelled          = "cancelled"
)

// validTransitions defines which status transitions are allowed.
var validTransitions = map[string][]string{
	StatusInProgress:         {StatusReadyForProduction, StatusCancelled},
	StatusReadyForProduction: {StatusInProduction, StatusCancelled},
	StatusInProduction:       {StatusCompleted, StatusCancelled},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// Properties are the chemistry and mechanical values frozen by Certify.
type Properties struct {
	Grade           string  `json:"grade"`
	CarbonPct       float64 `json:"carbon_pct"`
	ManganesePct    float64 `json:"manganese_pct"`
	YieldStrength   float64 `json:"yield_strength"`
	TensileStrength float64 `json:"tensile_strength"`
}

func (p Properties) negative() bool {
	return p.CarbonPct < 0 || p.ManganesePct < 0 || p.YieldStrength < 0 || p.TensileStrength < 0
}

type NewHeat struct {
	Number     string `json:"number"`
	Properties
	// Planned checkpoint times. When unset the configured standard
	// durations apply.
	ReceptionExpectedAt    *time.Time `json:"reception_expected_at,omitempty"`
	InstallationExpectedAt *time.Time `json:"installation_expected_at,omitempty"`
}

// CheckpointInput records when a checkpoint actually happened. A zero At
// means now.
type CheckpointInput struct {
	At            time.Time `json:"at"`
	DelayReasonID *int64    `json:"delay_reason_id,omitempty"`
}
