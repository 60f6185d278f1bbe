package store

import (
	"context"
	"time"
)

type Pipe struct {
	ID            int64     `json:"id"`
	HeatID        int64     `json:"heat_id"`
	Number        int       `json:"number"`
	Diameter      float64   `json:"diameter"`
	Length        float64   `json:"length"`
	Thickness     float64   `json:"thickness"`
	Weight        float64   `json:"weight"`
	CurrentStep   int       `json:"current_step"`
	Status        string    `json:"status"`
	Decision      string    `json:"decision"`
	CreatedByID   int64     `json:"created_by_id"`
	CreatedByName string    `json:"created_by_name"`
	UpdatedByID   int64     `json:"updated_by_id"`
	UpdatedByName string    `json:"updated_by_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const pipeSelectCols = `id, heat_id, number, diameter, length, thickness, weight, current_step, status, decision,
	created_by_id, created_by_name, updated_by_id, updated_by_name, created_at, updated_at`

func scanPipe(row interface{ Scan(...any) error }) (*Pipe, error) {
	var p Pipe
	var createdAt, updatedAt any
	err := row.Scan(&p.ID, &p.HeatID, &p.Number, &p.Diameter, &p.Length, &p.Thickness, &p.Weight,
		&p.CurrentStep, &p.Status, &p.Decision,
		&p.CreatedByID, &p.CreatedByName, &p.UpdatedByID, &p.UpdatedByName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (t *Tx) CreatePipe(ctx context.Context, p *Pipe) error {
	id, err := t.insert(ctx, `INSERT INTO pipes (heat_id, number, diameter, length, thickness, weight, current_step, status, decision,
		created_by_id, created_by_name, updated_by_id, updated_by_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.HeatID, p.Number, p.Diameter, p.Length, p.Thickness, p.Weight, p.CurrentStep, p.Status, p.Decision,
		p.CreatedByID, p.CreatedByName, p.UpdatedByID, p.UpdatedByName,
		t.db.ts(p.CreatedAt), t.db.ts(p.UpdatedAt))
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (t *Tx) GetPipe(ctx context.Context, id int64) (*Pipe, error) {
	return scanPipe(t.queryRow(ctx, `SELECT `+pipeSelectCols+` FROM pipes WHERE id=?`, id))
}

func (t *Tx) LockPipe(ctx context.Context, id int64) (*Pipe, error) {
	return scanPipe(t.queryRow(ctx, `SELECT `+pipeSelectCols+` FROM pipes WHERE id=?`+t.db.dialect.ForUpdate(), id))
}

func (t *Tx) ListPipes(ctx context.Context, heatID int64) ([]*Pipe, error) {
	rows, err := t.query(ctx, `SELECT `+pipeSelectCols+` FROM pipes WHERE heat_id=? ORDER BY number`, heatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pipes []*Pipe
	for rows.Next() {
		p, err := scanPipe(rows)
		if err != nil {
			return nil, err
		}
		pipes = append(pipes, p)
	}
	return pipes, rows.Err()
}

// SavePipe writes pointer, status and decision, guarded on the pointer and
// status the caller read.
func (t *Tx) SavePipe(ctx context.Context, p *Pipe, expectStep int, expectStatus string) error {
	res, err := t.exec(ctx, `UPDATE pipes SET current_step=?, status=?, decision=?, updated_by_id=?, updated_by_name=?, updated_at=?
		WHERE id=? AND current_step=? AND status=?`,
		p.CurrentStep, p.Status, p.Decision, p.UpdatedByID, p.UpdatedByName, t.db.ts(p.UpdatedAt),
		p.ID, expectStep, expectStatus)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (t *Tx) CountPipes(ctx context.Context, heatID int64) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM pipes WHERE heat_id=?`, heatID).Scan(&n)
	return n, err
}

// CountOpenPipes counts pipes of the heat still in production or on hold.
func (t *Tx) CountOpenPipes(ctx context.Context, heatID int64) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM pipes WHERE heat_id=? AND status IN ('in_production', 'on_hold')`, heatID).Scan(&n)
	return n, err
}
