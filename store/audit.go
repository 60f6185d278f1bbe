package store

import (
	"context"
	"time"
)

type AuditEntry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	ActorID    int64     `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	ActorRole  string    `json:"actor_role"`
	IP         string    `json:"ip"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const auditSelectCols = `id, action, entity_type, entity_id, actor_id, actor_name, actor_role, ip, detail, created_at`

func scanAuditEntry(row interface{ Scan(...any) error }) (*AuditEntry, error) {
	var e AuditEntry
	var createdAt any
	if err := row.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.ActorID, &e.ActorName, &e.ActorRole,
		&e.IP, &e.Detail, &createdAt); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// InsertAudit appends one entry. The audit log has no update or delete path.
func (t *Tx) InsertAudit(ctx context.Context, e *AuditEntry) error {
	if e.Detail == "" {
		e.Detail = "{}"
	}
	id, err := t.insert(ctx, `INSERT INTO audit_log (action, entity_type, entity_id, actor_id, actor_name, actor_role, ip, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Action, e.EntityType, e.EntityID, e.ActorID, e.ActorName, e.ActorRole, e.IP, e.Detail, t.db.ts(e.CreatedAt))
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (db *DB) ListAuditLog(ctx context.Context, limit int) ([]*AuditEntry, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT `+auditSelectCols+` FROM audit_log ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (db *DB) ListEntityAudit(ctx context.Context, entityType string, entityID int64) ([]*AuditEntry, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT `+auditSelectCols+` FROM audit_log WHERE entity_type=? AND entity_id=? ORDER BY id`),
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
