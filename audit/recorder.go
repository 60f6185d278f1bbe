// Package audit appends who-did-what entries for every state change.
//
// Entries are written inside the caller's transaction but behind a savepoint,
// so a failed audit insert is rolled back on its own and the business change
// still commits.
package audit

import (
	"context"
	"encoding/json"
	"log"

	"logitrack/logging"
	"logitrack/store"
	"logitrack/workflow"
)

const (
	EntityCoil = "coil"
	EntityHeat = "heat"
	EntityPipe = "pipe"
)

const savepoint = "audit_entry"

type Entry struct {
	Action     string
	EntityType string
	EntityID   int64
	Actor      workflow.Actor
	Detail     any
}

type Recorder struct {
	db    *store.DB
	clock workflow.Clock
	logFn logging.LogFunc
}

func NewRecorder(db *store.DB, logFn logging.LogFunc) *Recorder {
	if logFn == nil {
		logFn = log.Printf
	}
	return &Recorder{db: db, clock: workflow.SystemClock, logFn: logFn}
}

// SetClock overrides the timestamp source.
func (r *Recorder) SetClock(c workflow.Clock) { r.clock = c }

// Record appends e within tx. It never returns an error: failures are logged
// and the savepoint is rolled back.
func (r *Recorder) Record(ctx context.Context, tx *store.Tx, e Entry) {
	detail := "{}"
	if e.Detail != nil {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			r.logFn("audit: marshal detail for %s %s/%d: %v", e.Action, e.EntityType, e.EntityID, err)
		} else {
			detail = string(b)
		}
	}
	row := &store.AuditEntry{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		ActorID:    e.Actor.ID,
		ActorName:  e.Actor.DisplayName,
		ActorRole:  e.Actor.Role,
		IP:         workflow.ClientIP(ctx),
		Detail:     detail,
		CreatedAt:  r.clock(),
	}

	if err := tx.Savepoint(ctx, savepoint); err != nil {
		r.logFn("audit: savepoint for %s %s/%d: %v", e.Action, e.EntityType, e.EntityID, err)
		return
	}
	if err := tx.InsertAudit(ctx, row); err != nil {
		r.logFn("audit: record %s %s/%d: %v", e.Action, e.EntityType, e.EntityID, err)
		if rerr := tx.RollbackTo(ctx, savepoint); rerr != nil {
			r.logFn("audit: rollback savepoint: %v", rerr)
		}
	}
	if err := tx.Release(ctx, savepoint); err != nil {
		r.logFn("audit: release savepoint: %v", err)
	}
}

// List returns the most recent entries across all entities.
func (r *Recorder) List(ctx context.Context, limit int) ([]*store.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := r.db.ListAuditLog(ctx, limit)
	return entries, workflow.Persistence(err)
}

// ListEntity returns the history of one entity, oldest first.
func (r *Recorder) ListEntity(ctx context.Context, entityType string, entityID int64) ([]*store.AuditEntry, error) {
	entries, err := r.db.ListEntityAudit(ctx, entityType, entityID)
	return entries, workflow.Persistence(err)
}
