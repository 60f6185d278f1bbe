package store

import (
	"context"
	"time"

	"logitrack/workflow"
)

type Coil struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Thickness     float64   `json:"thickness"`
	Width         float64   `json:"width"`
	Weight        float64   `json:"weight"`
	Supplier      string    `json:"supplier"`
	Grade         string    `json:"grade"`
	Status        string    `json:"status"`
	CreatedByID   int64     `json:"created_by_id"`
	CreatedByName string    `json:"created_by_name"`
	UpdatedByID   int64     `json:"updated_by_id"`
	UpdatedByName string    `json:"updated_by_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const coilSelectCols = `id, code, thickness, width, weight, supplier, grade, status, created_by_id, created_by_name, updated_by_id, updated_by_name, created_at, updated_at`

func scanCoil(row interface{ Scan(...any) error }) (*Coil, error) {
	var c Coil
	var createdAt, updatedAt any
	err := row.Scan(&c.ID, &c.Code, &c.Thickness, &c.Width, &c.Weight, &c.Supplier, &c.Grade, &c.Status,
		&c.CreatedByID, &c.CreatedByName, &c.UpdatedByID, &c.UpdatedByName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (t *Tx) CreateCoil(ctx context.Context, c *Coil) error {
	id, err := t.insert(ctx, `INSERT INTO coils (code, thickness, width, weight, supplier, grade, status,
		created_by_id, created_by_name, updated_by_id, updated_by_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.Thickness, c.Width, c.Weight, c.Supplier, c.Grade, c.Status,
		c.CreatedByID, c.CreatedByName, c.UpdatedByID, c.UpdatedByName,
		t.db.ts(c.CreatedAt), t.db.ts(c.UpdatedAt))
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (t *Tx) GetCoil(ctx context.Context, id int64) (*Coil, error) {
	return scanCoil(t.queryRow(ctx, `SELECT `+coilSelectCols+` FROM coils WHERE id=?`, id))
}

// LockCoil reads the coil row and, on PostgreSQL, holds its row lock until
// the transaction ends.
func (t *Tx) LockCoil(ctx context.Context, id int64) (*Coil, error) {
	return scanCoil(t.queryRow(ctx, `SELECT `+coilSelectCols+` FROM coils WHERE id=?`+t.db.dialect.ForUpdate(), id))
}

func (t *Tx) ListCoils(ctx context.Context, status string) ([]*Coil, error) {
	q := `SELECT ` + coilSelectCols + ` FROM coils`
	var args []any
	if status != "" {
		q += ` WHERE status=?`
		args = append(args, status)
	}
	rows, err := t.query(ctx, q+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var coils []*Coil
	for rows.Next() {
		c, err := scanCoil(rows)
		if err != nil {
			return nil, err
		}
		coils = append(coils, c)
	}
	return coils, rows.Err()
}

// UpdateCoilStatus moves a coil from one status to another. ErrStale means
// the coil was no longer in the from status.
func (t *Tx) UpdateCoilStatus(ctx context.Context, id int64, from, to string, by workflow.Actor, at time.Time) error {
	res, err := t.exec(ctx, `UPDATE coils SET status=?, updated_by_id=?, updated_by_name=?, updated_at=? WHERE id=? AND status=?`,
		to, by.ID, by.DisplayName, t.db.ts(at), id, from)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (t *Tx) DeleteCoil(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, `DELETE FROM coils WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// CountHeatsForCoil counts the heats referencing the coil, whatever their
// status, ignoring excludeHeatID.
func (t *Tx) CountHeatsForCoil(ctx context.Context, coilID, excludeHeatID int64) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM heats WHERE coil_id=? AND id<>?`, coilID, excludeHeatID).Scan(&n)
	return n, err
}

// CountHoldingHeatsForCoil counts the heats that keep the coil out of stock,
// ignoring excludeHeatID: active heats bound to it and any heat that produced
// pipes from it.
func (t *Tx) CountHoldingHeatsForCoil(ctx context.Context, coilID, excludeHeatID int64) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM heats h WHERE h.coil_id=? AND h.id<>?
		AND (h.status NOT IN ('cancelled', 'completed') OR EXISTS (SELECT 1 FROM pipes p WHERE p.heat_id=h.id))`,
		coilID, excludeHeatID).Scan(&n)
	return n, err
}

// CountActiveHeatsForCoil counts non-cancelled, non-completed heats bound to
// the coil, ignoring excludeHeatID.
func (t *Tx) CountActiveHeatsForCoil(ctx context.Context, coilID, excludeHeatID int64) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM heats WHERE coil_id=? AND id<>? AND status NOT IN ('cancelled', 'completed')`,
		coilID, excludeHeatID).Scan(&n)
	return n, err
}
