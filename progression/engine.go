// Package progression moves pipes through the fixed step sequence. The pipe's
// current-step pointer is the only way forward: a step record exists for every
// step up to the pointer and for none beyond it.
package progression

import (
	"context"
	"log"
	"time"

	"logitrack/audit"
	"logitrack/catalog"
	"logitrack/heat"
	"logitrack/logging"
	"logitrack/notify"
	"logitrack/store"
	"logitrack/workflow"
)

type Engine struct {
	db       *store.DB
	catalog  *catalog.Catalog
	audit    *audit.Recorder
	emitter  EventEmitter
	notifier Notifier
	clock    workflow.Clock
	logFn    logging.LogFunc
	// cfgErr is set when the catalog failed validation; every mutation
	// returns it.
	cfgErr error
}

func NewEngine(db *store.DB, cat *catalog.Catalog, rec *audit.Recorder, emitter EventEmitter, notifier Notifier, logFn logging.LogFunc) *Engine {
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		db:       db,
		catalog:  cat,
		audit:    rec,
		emitter:  emitter,
		notifier: notifier,
		clock:    workflow.SystemClock,
		logFn:    logFn,
	}
	if err := cat.Validate(); err != nil {
		e.cfgErr = err
		logFn("progression: catalog rejected, pipes will not advance: %v", err)
	}
	return e
}

func (e *Engine) SetClock(c workflow.Clock) { e.clock = c }

// lastStep is the number of the final step; the pointer reads lastStep+1
// once a pipe is done.
func (e *Engine) lastStep() int { return e.catalog.Len() }

func (e *Engine) CreatePipe(ctx context.Context, heatID int64, in NewPipe, actor workflow.Actor) (*store.Pipe, error) {
	if e.cfgErr != nil {
		return nil, e.cfgErr
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if in.Number <= 0 {
		return nil, workflow.Validation("pipe number must be positive")
	}
	if in.Diameter < 0 || in.Length < 0 || in.Thickness < 0 || in.Weight < 0 {
		return nil, workflow.Validation("pipe dimensions must not be negative")
	}
	first, _ := e.catalog.Step(1)
	now := e.clock()
	p := &store.Pipe{
		HeatID:        heatID,
		Number:        in.Number,
		Diameter:      in.Diameter,
		Length:        in.Length,
		Thickness:     in.Thickness,
		Weight:        in.Weight,
		CurrentStep:   1,
		Status:        PipeInProduction,
		CreatedByID:   actor.ID,
		CreatedByName: actor.DisplayName,
		UpdatedByID:   actor.ID,
		UpdatedByName: actor.DisplayName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := e.db.Update(ctx, func(tx *store.Tx) error {
		h, err := tx.LockHeat(ctx, heatID)
		if store.IsNotFound(err) {
			return workflow.NotFound("heat %d not found", heatID)
		}
		if err != nil {
			return err
		}
		if h.Status != heat.StatusInProduction {
			return workflow.OutOfOrder("heat %s is %s, pipes can only be created in production", h.Number, h.Status)
		}
		if err := tx.CreatePipe(ctx, p); err != nil {
			if store.IsUniqueViolation(err) {
				return workflow.Conflict("pipe %d already exists in heat %s", in.Number, h.Number)
			}
			return err
		}
		if err := tx.CreatePipeStep(ctx, pendingRecord(p.ID, first, now)); err != nil {
			return err
		}
		e.audit.Record(ctx, tx, audit.Entry{Action: "pipe.created", EntityType: audit.EntityPipe, EntityID: p.ID, Actor: actor,
			Detail: map[string]any{"heat_id": heatID, "heat_number": h.Number, "pipe": in}})
		return nil
	})
	if err != nil {
		return nil, store.Classify(err)
	}
	if e.emitter != nil {
		e.emitter.EmitPipeCreated(p.ID, p.HeatID, p.Number)
	}
	return p, nil
}

func pendingRecord(pipeID int64, s catalog.Step, now time.Time) *store.PipeStep {
	return &store.PipeStep{
		PipeID:      pipeID,
		StepNumber:  s.Number,
		StepCode:    string(s.Code),
		Status:      StepPending,
		StandardMin: int(s.Standard / time.Minute),
		UpdatedAt:   now,
	}
}

// change carries one step transition through apply.
type change struct {
	tx      *store.Tx
	now     time.Time
	heat    *store.Heat
	detail  map[string]any
	created *store.PipeStep
	// post-commit effects
	decision *notify.PipeDecision
	alert    *notify.Alert
}

// apply locks the pipe, loads the record for step (the pointer when step is
// 0) and lets fn decide. The record and pipe are written back guarded on the
// states read here, so a concurrent writer that got there first turns the
// loser's write into a Conflict.
func (e *Engine) apply(ctx context.Context, pipeID int64, step int, action string, actor workflow.Actor,
	fn func(c *change, p *store.Pipe, s *store.PipeStep) error) (*store.PipeStep, error) {
	if e.cfgErr != nil {
		return nil, e.cfgErr
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if step < 0 || step > e.lastStep() {
		return nil, workflow.Validation("step %d is outside 1..%d", step, e.lastStep())
	}

	var p *store.Pipe
	var s *store.PipeStep
	var pointer int
	var pipeFrom, stepFrom string
	var ch change
	err := e.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		p, err = tx.LockPipe(ctx, pipeID)
		if store.IsNotFound(err) {
			return workflow.NotFound("pipe %d not found", pipeID)
		}
		if err != nil {
			return err
		}
		pointer, pipeFrom = p.CurrentStep, p.Status
		if step == 0 {
			step = pointer
		}
		if step > pointer {
			return workflow.OutOfOrder("pipe %d is at step %d, step %d is not reached", p.Number, pointer, step)
		}
		s, err = tx.GetPipeStep(ctx, p.ID, step)
		if store.IsNotFound(err) {
			return workflow.OutOfOrder("pipe %d has no record for step %d", p.Number, step)
		}
		if err != nil {
			return err
		}
		stepFrom = s.Status
		h, err := tx.ShareHeat(ctx, p.HeatID)
		if err != nil {
			return err
		}

		ch = change{tx: tx, now: e.clock(), heat: h, detail: map[string]any{"step": step, "step_code": s.StepCode}}
		if err := fn(&ch, p, s); err != nil {
			return err
		}

		s.UpdatedAt = ch.now
		if err := tx.SavePipeStep(ctx, s, stepFrom); err != nil {
			return err
		}
		if p.CurrentStep != pointer || p.Status != pipeFrom {
			p.UpdatedByID = actor.ID
			p.UpdatedByName = actor.DisplayName
			p.UpdatedAt = ch.now
			if err := tx.SavePipe(ctx, p, pointer, pipeFrom); err != nil {
				return err
			}
		}
		if ch.created != nil {
			if err := tx.CreatePipeStep(ctx, ch.created); err != nil {
				return err
			}
		}
		if s.Status != stepFrom {
			ch.detail["from"] = stepFrom
			ch.detail["to"] = s.Status
		}
		if p.Status != pipeFrom {
			ch.detail["pipe_status"] = p.Status
		}
		e.audit.Record(ctx, tx, audit.Entry{Action: "pipe." + action, EntityType: audit.EntityPipe, EntityID: p.ID, Actor: actor, Detail: ch.detail})
		return nil
	})
	if err != nil {
		return nil, store.Classify(err)
	}
	if e.emitter != nil {
		if s.Status != stepFrom {
			e.emitter.EmitStepTransitioned(p.ID, p.HeatID, s.StepNumber, s.StepCode, stepFrom, s.Status)
		}
		if pipeFrom != p.Status {
			e.emitter.EmitPipeStatusChanged(p.ID, p.HeatID, pipeFrom, p.Status)
		}
	}
	if e.notifier != nil {
		if ch.alert != nil {
			e.notifier.CriticalAlert(ctx, *ch.alert)
		}
		if ch.decision != nil {
			e.notifier.PipeDecisionFinalized(ctx, *ch.decision)
		}
	}
	return s, nil
}

func (e *Engine) GetPipe(ctx context.Context, id int64) (*store.Pipe, error) {
	var p *store.Pipe
	err := e.db.View(ctx, func(tx *store.Tx) error {
		var err error
		p, err = tx.GetPipe(ctx, id)
		if store.IsNotFound(err) {
			return workflow.NotFound("pipe %d not found", id)
		}
		return err
	})
	return p, store.Classify(err)
}

func (e *Engine) ListPipes(ctx context.Context, heatID int64) ([]*store.Pipe, error) {
	var pipes []*store.Pipe
	err := e.db.View(ctx, func(tx *store.Tx) error {
		var err error
		pipes, err = tx.ListPipes(ctx, heatID)
		return err
	})
	return pipes, store.Classify(err)
}

// ListSteps returns the step records of a pipe in step order.
func (e *Engine) ListSteps(ctx context.Context, pipeID int64) ([]*store.PipeStep, error) {
	var steps []*store.PipeStep
	err := e.db.View(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetPipe(ctx, pipeID); err != nil {
			if store.IsNotFound(err) {
				return workflow.NotFound("pipe %d not found", pipeID)
			}
			return err
		}
		var err error
		steps, err = tx.ListPipeSteps(ctx, pipeID)
		return err
	})
	return steps, store.Classify(err)
}
