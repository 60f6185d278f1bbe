package livestate

import "time"

// PipeCard is one pipe as shown on a heat's production board.
type PipeCard struct {
	PipeID    int64     `json:"pipe_id"`
	Number    int       `json:"number"`
	Step      int       `json:"step"`
	StepCode  string    `json:"step_code,omitempty"`
	StepState string    `json:"step_state,omitempty"`
	Status    string    `json:"status"`
	Decision  string    `json:"decision,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Board is the live view of every pipe of a heat.
type Board struct {
	HeatID     int64      `json:"heat_id"`
	HeatNumber string     `json:"heat_number,omitempty"`
	Pipes      []PipeCard `json:"pipes"`
	// Source is "redis" or "sql".
	Source string `json:"source"`
}
