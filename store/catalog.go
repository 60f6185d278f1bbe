package store

import (
	"context"
)

type StepDefinition struct {
	Number      int    `json:"number"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Mandatory   bool   `json:"mandatory"`
	StandardMin int    `json:"standard_min"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

type DelayReason struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Label      string `json:"label"`
	Category   string `json:"category"`
	Checkpoint string `json:"checkpoint"`
	Active     bool   `json:"active"`
}

const delayReasonSelectCols = `id, code, label, category, checkpoint, active`

func scanDelayReason(row interface{ Scan(...any) error }) (*DelayReason, error) {
	var r DelayReason
	if err := row.Scan(&r.ID, &r.Code, &r.Label, &r.Category, &r.Checkpoint, &r.Active); err != nil {
		return nil, err
	}
	return &r, nil
}

// SeedStepDefinitions inserts the definitions that are not present yet.
// Existing rows are left alone; changing them is a migration.
func (db *DB) SeedStepDefinitions(ctx context.Context, defs []StepDefinition) error {
	return db.Update(ctx, func(tx *Tx) error {
		for _, d := range defs {
			if _, err := tx.exec(ctx, `INSERT INTO step_definitions (number, code, name, mandatory, standard_min, color, icon)
				VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				d.Number, d.Code, d.Name, d.Mandatory, d.StandardMin, d.Color, d.Icon); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) SeedDelayReasons(ctx context.Context, reasons []DelayReason) error {
	return db.Update(ctx, func(tx *Tx) error {
		for _, r := range reasons {
			if _, err := tx.exec(ctx, `INSERT INTO delay_reasons (code, label, category, checkpoint, active)
				VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				r.Code, r.Label, r.Category, r.Checkpoint, r.Active); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) ListStepDefinitions(ctx context.Context) ([]StepDefinition, error) {
	rows, err := db.QueryContext(ctx, `SELECT number, code, name, mandatory, standard_min, color, icon FROM step_definitions ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []StepDefinition
	for rows.Next() {
		var d StepDefinition
		if err := rows.Scan(&d.Number, &d.Code, &d.Name, &d.Mandatory, &d.StandardMin, &d.Color, &d.Icon); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (db *DB) ListDelayReasons(ctx context.Context) ([]*DelayReason, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+delayReasonSelectCols+` FROM delay_reasons ORDER BY category, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reasons []*DelayReason
	for rows.Next() {
		r, err := scanDelayReason(rows)
		if err != nil {
			return nil, err
		}
		reasons = append(reasons, r)
	}
	return reasons, rows.Err()
}
