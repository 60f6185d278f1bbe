package store

import (
	"context"
	"database/sql"
	"time"
)

type Heat struct {
	ID                        int64      `json:"id"`
	Number                    string     `json:"number"`
	CoilID                    *int64     `json:"coil_id,omitempty"`
	Grade                     string     `json:"grade"`
	CarbonPct                 float64    `json:"carbon_pct"`
	ManganesePct              float64    `json:"manganese_pct"`
	YieldStrength             float64    `json:"yield_strength"`
	TensileStrength           float64    `json:"tensile_strength"`
	Certified                 bool       `json:"certified"`
	CertifiedAt               *time.Time `json:"certified_at,omitempty"`
	Status                    string     `json:"status"`
	ReceptionExpectedAt       *time.Time `json:"reception_expected_at,omitempty"`
	CoilReceived              bool       `json:"coil_received"`
	CoilReceivedAt            *time.Time `json:"coil_received_at,omitempty"`
	ReceptionDelayMin         int        `json:"reception_delay_min"`
	ReceptionDelayReasonID    *int64     `json:"reception_delay_reason_id,omitempty"`
	InstallationExpectedAt    *time.Time `json:"installation_expected_at,omitempty"`
	CoilInstalled             bool       `json:"coil_installed"`
	CoilInstalledAt           *time.Time `json:"coil_installed_at,omitempty"`
	InstallationDelayMin      int        `json:"installation_delay_min"`
	InstallationDelayReasonID *int64     `json:"installation_delay_reason_id,omitempty"`
	ChecklistValidated        bool       `json:"checklist_validated"`
	ChecklistValidatedAt      *time.Time `json:"checklist_validated_at,omitempty"`
	CancelReason              string     `json:"cancel_reason"`
	CreatedByID               int64      `json:"created_by_id"`
	CreatedByName             string     `json:"created_by_name"`
	UpdatedByID               int64      `json:"updated_by_id"`
	UpdatedByName             string     `json:"updated_by_name"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

const heatSelectCols = `id, number, coil_id, grade, carbon_pct, manganese_pct, yield_strength, tensile_strength,
	certified, certified_at, status,
	reception_expected_at, coil_received, coil_received_at, reception_delay_min, reception_delay_reason_id,
	installation_expected_at, coil_installed, coil_installed_at, installation_delay_min, installation_delay_reason_id,
	checklist_validated, checklist_validated_at, cancel_reason,
	created_by_id, created_by_name, updated_by_id, updated_by_name, created_at, updated_at`

func scanHeat(row interface{ Scan(...any) error }) (*Heat, error) {
	var h Heat
	var coilID, recReason, instReason sql.NullInt64
	var certifiedAt, recExpected, recAt, instExpected, instAt, checklistAt any
	var createdAt, updatedAt any
	err := row.Scan(&h.ID, &h.Number, &coilID, &h.Grade, &h.CarbonPct, &h.ManganesePct, &h.YieldStrength, &h.TensileStrength,
		&h.Certified, &certifiedAt, &h.Status,
		&recExpected, &h.CoilReceived, &recAt, &h.ReceptionDelayMin, &recReason,
		&instExpected, &h.CoilInstalled, &instAt, &h.InstallationDelayMin, &instReason,
		&h.ChecklistValidated, &checklistAt, &h.CancelReason,
		&h.CreatedByID, &h.CreatedByName, &h.UpdatedByID, &h.UpdatedByName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	h.CoilID = intPtr(coilID)
	h.ReceptionDelayReasonID = intPtr(recReason)
	h.InstallationDelayReasonID = intPtr(instReason)
	h.CertifiedAt = parseTimePtr(certifiedAt)
	h.ReceptionExpectedAt = parseTimePtr(recExpected)
	h.CoilReceivedAt = parseTimePtr(recAt)
	h.InstallationExpectedAt = parseTimePtr(instExpected)
	h.CoilInstalledAt = parseTimePtr(instAt)
	h.ChecklistValidatedAt = parseTimePtr(checklistAt)
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)
	return &h, nil
}

func (t *Tx) CreateHeat(ctx context.Context, h *Heat) error {
	id, err := t.insert(ctx, `INSERT INTO heats (number, coil_id, grade, carbon_pct, manganese_pct, yield_strength, tensile_strength,
		status, reception_expected_at, installation_expected_at,
		created_by_id, created_by_name, updated_by_id, updated_by_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Number, nullInt(h.CoilID), h.Grade, h.CarbonPct, h.ManganesePct, h.YieldStrength, h.TensileStrength,
		h.Status, t.db.tsPtr(h.ReceptionExpectedAt), t.db.tsPtr(h.InstallationExpectedAt),
		h.CreatedByID, h.CreatedByName, h.UpdatedByID, h.UpdatedByName,
		t.db.ts(h.CreatedAt), t.db.ts(h.UpdatedAt))
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

func (t *Tx) GetHeat(ctx context.Context, id int64) (*Heat, error) {
	return scanHeat(t.queryRow(ctx, `SELECT `+heatSelectCols+` FROM heats WHERE id=?`, id))
}

func (t *Tx) LockHeat(ctx context.Context, id int64) (*Heat, error) {
	return scanHeat(t.queryRow(ctx, `SELECT `+heatSelectCols+` FROM heats WHERE id=?`+t.db.dialect.ForUpdate(), id))
}

// ShareHeat reads the heat holding a share lock, so a concurrent status
// change on it waits for this transaction and vice versa.
func (t *Tx) ShareHeat(ctx context.Context, id int64) (*Heat, error) {
	return scanHeat(t.queryRow(ctx, `SELECT `+heatSelectCols+` FROM heats WHERE id=?`+t.db.dialect.ForShare(), id))
}

func (t *Tx) ListHeats(ctx context.Context, status string) ([]*Heat, error) {
	q := `SELECT ` + heatSelectCols + ` FROM heats`
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
	var heats []*Heat
	for rows.Next() {
		h, err := scanHeat(rows)
		if err != nil {
			return nil, err
		}
		heats = append(heats, h)
	}
	return heats, rows.Err()
}

// SaveHeat writes every mutable column of h, guarded on the status the
// caller read. ErrStale means another writer moved the heat in between.
func (t *Tx) SaveHeat(ctx context.Context, h *Heat, expectStatus string) error {
	res, err := t.exec(ctx, `UPDATE heats SET coil_id=?, grade=?, carbon_pct=?, manganese_pct=?, yield_strength=?, tensile_strength=?,
		certified=?, certified_at=?, status=?,
		reception_expected_at=?, coil_received=?, coil_received_at=?, reception_delay_min=?, reception_delay_reason_id=?,
		installation_expected_at=?, coil_installed=?, coil_installed_at=?, installation_delay_min=?, installation_delay_reason_id=?,
		checklist_validated=?, checklist_validated_at=?, cancel_reason=?,
		updated_by_id=?, updated_by_name=?, updated_at=?
		WHERE id=? AND status=?`,
		nullInt(h.CoilID), h.Grade, h.CarbonPct, h.ManganesePct, h.YieldStrength, h.TensileStrength,
		h.Certified, t.db.tsPtr(h.CertifiedAt), h.Status,
		t.db.tsPtr(h.ReceptionExpectedAt), h.CoilReceived, t.db.tsPtr(h.CoilReceivedAt), h.ReceptionDelayMin, nullInt(h.ReceptionDelayReasonID),
		t.db.tsPtr(h.InstallationExpectedAt), h.CoilInstalled, t.db.tsPtr(h.CoilInstalledAt), h.InstallationDelayMin, nullInt(h.InstallationDelayReasonID),
		h.ChecklistValidated, t.db.tsPtr(h.ChecklistValidatedAt), h.CancelReason,
		h.UpdatedByID, h.UpdatedByName, t.db.ts(h.UpdatedAt),
		h.ID, expectStatus)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
