package store

import (
	"context"
	"database/sql"
	"time"
)

type PipeStep struct {
	ID            int64      `json:"id"`
	PipeID        int64      `json:"pipe_id"`
	StepNumber    int        `json:"step_number"`
	StepCode      string     `json:"step_code"`
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	DurationMin   int        `json:"duration_min"`
	StandardMin   int        `json:"standard_min"`
	DelayMin      int        `json:"delay_min"`
	DelayReasonID *int64     `json:"delay_reason_id,omitempty"`
	OperatorID    int64      `json:"operator_id"`
	OperatorName  string     `json:"operator_name"`
	Comment       string     `json:"comment"`
	Defect        string     `json:"defect"`
	Correction    string     `json:"correction"`
	SkipReason    string     `json:"skip_reason"`
	Offline       bool       `json:"offline"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

const pipeStepSelectCols = `id, pipe_id, step_number, step_code, status, started_at, ended_at,
	duration_min, standard_min, delay_min, delay_reason_id, operator_id, operator_name,
	comment, defect, correction, skip_reason, offline, updated_at`

func scanPipeStep(row interface{ Scan(...any) error }) (*PipeStep, error) {
	var s PipeStep
	var reasonID sql.NullInt64
	var startedAt, endedAt, updatedAt any
	err := row.Scan(&s.ID, &s.PipeID, &s.StepNumber, &s.StepCode, &s.Status, &startedAt, &endedAt,
		&s.DurationMin, &s.StandardMin, &s.DelayMin, &reasonID, &s.OperatorID, &s.OperatorName,
		&s.Comment, &s.Defect, &s.Correction, &s.SkipReason, &s.Offline, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.DelayReasonID = intPtr(reasonID)
	s.StartedAt = parseTimePtr(startedAt)
	s.EndedAt = parseTimePtr(endedAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (t *Tx) CreatePipeStep(ctx context.Context, s *PipeStep) error {
	id, err := t.insert(ctx, `INSERT INTO pipe_steps (pipe_id, step_number, step_code, status, standard_min, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.PipeID, s.StepNumber, s.StepCode, s.Status, s.StandardMin, t.db.ts(s.UpdatedAt))
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// GetPipeStep returns sql.ErrNoRows when no record exists for the pair.
func (t *Tx) GetPipeStep(ctx context.Context, pipeID int64, stepNumber int) (*PipeStep, error) {
	return scanPipeStep(t.queryRow(ctx, `SELECT `+pipeStepSelectCols+` FROM pipe_steps WHERE pipe_id=? AND step_number=?`,
		pipeID, stepNumber))
}

func (t *Tx) ListPipeSteps(ctx context.Context, pipeID int64) ([]*PipeStep, error) {
	rows, err := t.query(ctx, `SELECT `+pipeStepSelectCols+` FROM pipe_steps WHERE pipe_id=? ORDER BY step_number`, pipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []*PipeStep
	for rows.Next() {
		s, err := scanPipeStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// SavePipeStep writes the mutable columns of s when the record is still in
// expectStatus. This is the single-writer-wins guard for a (pipe, step) pair:
// of two writers that read the same status only the first one matches.
func (t *Tx) SavePipeStep(ctx context.Context, s *PipeStep, expectStatus string) error {
	res, err := t.exec(ctx, `UPDATE pipe_steps SET status=?, started_at=?, ended_at=?, duration_min=?, delay_min=?, delay_reason_id=?,
		operator_id=?, operator_name=?, comment=?, defect=?, correction=?, skip_reason=?, offline=?, updated_at=?
		WHERE id=? AND status=?`,
		s.Status, t.db.tsPtr(s.StartedAt), t.db.tsPtr(s.EndedAt), s.DurationMin, s.DelayMin, nullInt(s.DelayReasonID),
		s.OperatorID, s.OperatorName, s.Comment, s.Defect, s.Correction, s.SkipReason, s.Offline, t.db.ts(s.UpdatedAt),
		s.ID, expectStatus)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
