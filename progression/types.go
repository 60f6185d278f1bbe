package progression

import "time"

// Step record statuses
const (
	StepPending       = "pending"
	StepInProgress    = "in_progress"
	StepValidated     = "validated"
	StepNonConforming = "non_conforming"
	StepSkipped       = "skipped"
)

// Pipe statuses
const (
	PipeInProduction = "in_production"
	PipeCompleted    = "completed"
	PipeScrapped     = "scrapped"
	PipeOnHold       = "on_hold"
)

// Final decisions, recorded at the last step only.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
	DecisionRework = "rework"
)

// Outcome is the result an operator reports when completing a step.
type Outcome string

const (
	OutcomeValidated     Outcome = "validated"
	OutcomeNonConforming Outcome = "non_conforming"
)

func validDecision(d string) bool {
	return d == DecisionAccept || d == DecisionReject || d == DecisionRework
}

// IsClosed reports whether a step record can no longer change.
func IsClosed(status string) bool {
	return status == StepValidated || status == StepSkipped
}

// IsTerminal returns true if the pipe status is a terminal state.
func IsTerminal(status string) bool {
	return status == PipeCompleted || status == PipeScrapped
}

type NewPipe struct {
	Number    int     `json:"number"`
	Diameter  float64 `json:"diameter"`
	Length    float64 `json:"length"`
	Thickness float64 `json:"thickness"`
	Weight    float64 `json:"weight"`
}

// StepInput starts a step. A zero At means now; Offline marks a record
// entered after the fact from a machine that was not networked.
type StepInput struct {
	At      time.Time `json:"at"`
	Offline bool      `json:"offline"`
}

type Completion struct {
	Outcome       Outcome   `json:"outcome"`
	DelayReasonID *int64    `json:"delay_reason_id,omitempty"`
	Comment       string    `json:"comment"`
	Defect        string    `json:"defect"`
	Decision      string    `json:"decision"`
	Offline       bool      `json:"offline"`
	At            time.Time `json:"at"`
}

type Correction struct {
	Note          string    `json:"note"`
	DelayReasonID *int64    `json:"delay_reason_id,omitempty"`
	Decision      string    `json:"decision"`
	Offline       bool      `json:"offline"`
	At            time.Time `json:"at"`
}
