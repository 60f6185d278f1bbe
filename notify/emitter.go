// Package notify publishes terminal workflow events. It is a side-effect
// sink: it runs after the business transaction has committed and nothing it
// does can fail or undo a transition.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"logitrack/logging"
	"logitrack/protocol"
	"logitrack/store"
	"logitrack/workflow"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// The notify inputs are the external event payloads themselves.
type (
	PipeDecision = protocol.PipeDecisionFinalized
	HeatDelay    = protocol.HeatDelayReported
	Alert        = protocol.CriticalAlert
)

// EventEmitter is the interface the notify package uses to emit events.
type EventEmitter interface {
	EmitPipeDecisionFinalized(p protocol.PipeDecisionFinalized)
	EmitHeatDelayReported(p protocol.HeatDelayReported)
	EmitCriticalAlert(p protocol.CriticalAlert)
}

type Config struct {
	Topic     string
	StationID string
}

type Emitter struct {
	db      *store.DB
	emitter EventEmitter
	cfg     Config
	clock   workflow.Clock
	logFn   logging.LogFunc
}

func New(db *store.DB, emitter EventEmitter, cfg Config, logFn logging.LogFunc) *Emitter {
	if logFn == nil {
		logFn = log.Printf
	}
	return &Emitter{db: db, emitter: emitter, cfg: cfg, clock: workflow.SystemClock, logFn: logFn}
}

func (e *Emitter) SetClock(c workflow.Clock) { e.clock = c }

func (e *Emitter) PipeDecisionFinalized(ctx context.Context, p PipeDecision) {
	title := fmt.Sprintf("Pipe %d of heat %s: %s", p.PipeNumber, p.HeatNumber, p.Decision)
	severity := SeverityInfo
	if p.Decision != "accept" {
		severity = SeverityWarning
	}
	e.publish(ctx, protocol.TypePipeDecisionFinalized, title, severity, p)
	if e.emitter != nil {
		e.emitter.EmitPipeDecisionFinalized(p)
	}
}

func (e *Emitter) HeatDelayReported(ctx context.Context, p HeatDelay) {
	title := fmt.Sprintf("Heat %s: %s %d min late (%s)", p.HeatNumber, p.Checkpoint, p.Minutes, p.Reason)
	e.publish(ctx, protocol.TypeHeatDelayReported, title, SeverityWarning, p)
	if e.emitter != nil {
		e.emitter.EmitHeatDelayReported(p)
	}
}

func (e *Emitter) CriticalAlert(ctx context.Context, p Alert) {
	e.publish(ctx, protocol.TypeCriticalAlert, p.Message, SeverityCritical, p)
	if e.emitter != nil {
		e.emitter.EmitCriticalAlert(p)
	}
}

// publish stores the notification row and queues the envelope for the
// outbox drainer in one transaction. Failures are logged only.
func (e *Emitter) publish(ctx context.Context, kind, title, severity string, payload any) {
	now := e.clock()
	body, err := json.Marshal(payload)
	if err != nil {
		e.logFn("notify: marshal %s: %v", kind, err)
		return
	}
	env, err := protocol.NewEnvelopeAt(kind, protocol.Address{Role: protocol.RoleTracker, Station: e.cfg.StationID}, payload, now)
	if err != nil {
		e.logFn("notify: build envelope %s: %v", kind, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		e.logFn("notify: encode envelope %s: %v", kind, err)
		return
	}
	err = e.db.Update(ctx, func(tx *store.Tx) error {
		n := &store.Notification{Kind: kind, Title: title, Body: string(body), Severity: severity, CreatedAt: now}
		if err := tx.InsertNotification(ctx, n); err != nil {
			return err
		}
		return tx.EnqueueOutbox(ctx, e.cfg.Topic, data, kind, e.cfg.StationID, now)
	})
	if err != nil {
		e.logFn("notify: publish %s: %v", kind, err)
	}
}

// MarkRead acknowledges a notification.
func (e *Emitter) MarkRead(ctx context.Context, id int64) error {
	err := e.db.MarkNotificationRead(ctx, id, e.clock())
	if err != nil {
		return store.Classify(err)
	}
	return nil
}

func (e *Emitter) ListUnread(ctx context.Context, limit int) ([]*store.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	list, err := e.db.ListUnreadNotifications(ctx, limit)
	return list, store.Classify(err)
}
