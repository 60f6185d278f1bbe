package coil

import (
	"context"
	"log"
	"strings"

	"logitrack/audit"
	"logitrack/logging"
	"logitrack/store"
	"logitrack/workflow"
)

// Coil statuses. A coil only ever moves forward, except that an in-use coil
// no heat references any more may be released back to stock.
const (
	StatusInStock   = "in_stock"
	StatusInUse     = "in_use"
	StatusExhausted = "exhausted"
)

var validTransitions = map[string][]string{
	StatusInStock: {StatusInUse},
	StatusInUse:   {StatusExhausted, StatusInStock},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EventEmitter is the interface the coil package uses to emit events.
type EventEmitter interface {
	EmitCoilStatusChanged(coilID int64, code, oldStatus, newStatus string)
}

// Change describes a status move made inside a caller's transaction. The
// caller hands it back to Emit once the transaction has committed.
type Change struct {
	CoilID int64
	Code   string
	From   string
	To     string
}

type NewCoil struct {
	Code      string  `json:"code"`
	Thickness float64 `json:"thickness"`
	Width     float64 `json:"width"`
	Weight    float64 `json:"weight"`
	Supplier  string  `json:"supplier"`
	Grade     string  `json:"grade"`
}

type Ledger struct {
	db      *store.DB
	audit   *audit.Recorder
	emitter EventEmitter
	clock   workflow.Clock
	logFn   logging.LogFunc
}

func NewLedger(db *store.DB, rec *audit.Recorder, emitter EventEmitter, logFn logging.LogFunc) *Ledger {
	if logFn == nil {
		logFn = log.Printf
	}
	return &Ledger{db: db, audit: rec, emitter: emitter, clock: workflow.SystemClock, logFn: logFn}
}

func (l *Ledger) SetClock(c workflow.Clock) { l.clock = c }

func (l *Ledger) Create(ctx context.Context, in NewCoil, actor workflow.Actor) (*store.Coil, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return nil, workflow.Validation("coil code is required")
	}
	if in.Thickness < 0 || in.Width < 0 || in.Weight < 0 {
		return nil, workflow.Validation("coil dimensions must not be negative")
	}
	now := l.clock()
	c := &store.Coil{
		Code:          in.Code,
		Thickness:     in.Thickness,
		Width:         in.Width,
		Weight:        in.Weight,
		Supplier:      in.Supplier,
		Grade:         in.Grade,
		Status:        StatusInStock,
		CreatedByID:   actor.ID,
		CreatedByName: actor.DisplayName,
		UpdatedByID:   actor.ID,
		UpdatedByName: actor.DisplayName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := l.db.Update(ctx, func(tx *store.Tx) error {
		if err := tx.CreateCoil(ctx, c); err != nil {
			if store.IsUniqueViolation(err) {
				return workflow.Conflict("coil %q already exists", in.Code)
			}
			return err
		}
		l.audit.Record(ctx, tx, audit.Entry{Action: "coil.created", EntityType: audit.EntityCoil, EntityID: c.ID, Actor: actor, Detail: in})
		return nil
	})
	if err != nil {
		return nil, store.Classify(err)
	}
	l.Emit(Change{CoilID: c.ID, Code: c.Code, To: StatusInStock})
	return c, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*store.Coil, error) {
	var c *store.Coil
	err := l.db.View(ctx, func(tx *store.Tx) error {
		var err error
		c, err = tx.GetCoil(ctx, id)
		if store.IsNotFound(err) {
			return workflow.NotFound("coil %d not found", id)
		}
		return err
	})
	return c, store.Classify(err)
}

func (l *Ledger) List(ctx context.Context, status string) ([]*store.Coil, error) {
	var coils []*store.Coil
	err := l.db.View(ctx, func(tx *store.Tx) error {
		var err error
		coils, err = tx.ListCoils(ctx, status)
		return err
	})
	return coils, store.Classify(err)
}

// Delete removes a coil that no heat has ever referenced.
func (l *Ledger) Delete(ctx context.Context, id int64, actor workflow.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	err := l.db.Update(ctx, func(tx *store.Tx) error {
		c, err := tx.LockCoil(ctx, id)
		if store.IsNotFound(err) {
			return workflow.NotFound("coil %d not found", id)
		}
		if err != nil {
			return err
		}
		n, err := tx.CountHeatsForCoil(ctx, id, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return workflow.Conflict("coil %s is referenced by %d heat(s)", c.Code, n)
		}
		if err := tx.DeleteCoil(ctx, id); err != nil {
			return err
		}
		l.audit.Record(ctx, tx, audit.Entry{Action: "coil.deleted", EntityType: audit.EntityCoil, EntityID: id, Actor: actor,
			Detail: map[string]string{"code": c.Code}})
		return nil
	})
	return store.Classify(err)
}

// MarkInUse moves an in-stock coil to in-use within tx.
func (l *Ledger) MarkInUse(ctx context.Context, tx *store.Tx, coilID int64, actor workflow.Actor) (Change, error) {
	return l.move(ctx, tx, coilID, StatusInUse, 0, actor)
}

// MarkExhausted moves an in-use coil to exhausted within tx.
func (l *Ledger) MarkExhausted(ctx context.Context, tx *store.Tx, coilID int64, actor workflow.Actor) (Change, error) {
	return l.move(ctx, tx, coilID, StatusExhausted, 0, actor)
}

// Release returns a coil to stock within tx. It is refused while another
// active heat is bound to the coil or a heat produced pipes from it.
// Releasing an in-stock coil is a no-op.
func (l *Ledger) Release(ctx context.Context, tx *store.Tx, coilID, releasingHeatID int64, actor workflow.Actor) (Change, error) {
	return l.move(ctx, tx, coilID, StatusInStock, releasingHeatID, actor)
}

func (l *Ledger) move(ctx context.Context, tx *store.Tx, coilID int64, to string, releasingHeatID int64, actor workflow.Actor) (Change, error) {
	c, err := tx.LockCoil(ctx, coilID)
	if store.IsNotFound(err) {
		return Change{}, workflow.NotFound("coil %d not found", coilID)
	}
	if err != nil {
		return Change{}, err
	}
	ch := Change{CoilID: c.ID, Code: c.Code, From: c.Status, To: to}

	switch {
	case c.Status == StatusExhausted:
		return Change{}, workflow.OutOfOrder("coil %s is exhausted", c.Code)
	case c.Status == to && to == StatusInStock:
		return Change{}, nil
	case c.Status == to:
		return Change{}, workflow.Conflict("coil %s is already %s", c.Code, to)
	case !IsValidTransition(c.Status, to):
		return Change{}, workflow.OutOfOrder("coil %s cannot go from %s to %s", c.Code, c.Status, to)
	}

	if to == StatusInStock {
		n, err := tx.CountHoldingHeatsForCoil(ctx, coilID, releasingHeatID)
		if err != nil {
			return Change{}, err
		}
		if n > 0 {
			return Change{}, workflow.Conflict("coil %s is still referenced by %d heat(s)", c.Code, n)
		}
	}

	if err := tx.UpdateCoilStatus(ctx, coilID, c.Status, to, actor, l.clock()); err != nil {
		return Change{}, err
	}
	l.audit.Record(ctx, tx, audit.Entry{Action: "coil." + to, EntityType: audit.EntityCoil, EntityID: coilID, Actor: actor,
		Detail: map[string]string{"from": c.Status, "to": to}})
	return ch, nil
}

// Transition applies one status move in its own transaction.
func (l *Ledger) Transition(ctx context.Context, coilID int64, to string, actor workflow.Actor) (*store.Coil, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var ch Change
	var c *store.Coil
	err := l.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		switch to {
		case StatusInUse:
			ch, err = l.MarkInUse(ctx, tx, coilID, actor)
		case StatusExhausted:
			ch, err = l.MarkExhausted(ctx, tx, coilID, actor)
		case StatusInStock:
			ch, err = l.Release(ctx, tx, coilID, 0, actor)
		default:
			return workflow.Validation("unknown coil status %q", to)
		}
		if err != nil {
			return err
		}
		c, err = tx.GetCoil(ctx, coilID)
		return err
	})
	if err != nil {
		return nil, store.Classify(err)
	}
	l.Emit(ch)
	return c, nil
}

// Emit publishes a committed change. Zero changes are ignored.
func (l *Ledger) Emit(ch Change) {
	if ch.CoilID == 0 || l.emitter == nil {
		return
	}
	l.emitter.EmitCoilStatusChanged(ch.CoilID, ch.Code, ch.From, ch.To)
}
