package protocol

// PipeDecisionFinalized is published once per pipe, when its final
// inspection decision is recorded or the pipe is scrapped.
type PipeDecisionFinalized struct {
	PipeID     int64  `json:"pipe_id"`
	PipeNumber int    `json:"pipe_number"`
	HeatID     int64  `json:"heat_id"`
	HeatNumber string `json:"heat_number,omitempty"`
	Decision   string `json:"decision"`
	DecidedBy  string `json:"decided_by,omitempty"`
}

// HeatDelayReported is published when a heat checkpoint is recorded late.
type HeatDelayReported struct {
	HeatID      int64  `json:"heat_id"`
	HeatNumber  string `json:"heat_number,omitempty"`
	Checkpoint  string `json:"checkpoint"`
	Minutes     int    `json:"minutes"`
	Reason      string `json:"reason"`
	ReasonLabel string `json:"reason_label,omitempty"`
}

// CriticalAlert flags a non-conformity on a mandatory step.
type CriticalAlert struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	StepNumber int    `json:"step_number,omitempty"`
	StepCode   string `json:"step_code,omitempty"`
	Message    string `json:"message"`
}
