package progression

import (
	"context"
	"fmt"
	"strings"
	"time"

	"logitrack/audit"
	"logitrack/catalog"
	"logitrack/heat"
	"logitrack/notify"
	"logitrack/store"
	"logitrack/workflow"
)

// checkOpen rejects work on a pipe that is finished or whose heat left
// production.
func checkOpen(c *change, p *store.Pipe) error {
	if IsTerminal(p.Status) {
		return workflow.OutOfOrder("pipe %d is %s", p.Number, p.Status)
	}
	if c.heat.Status != heat.StatusInProduction {
		return workflow.OutOfOrder("heat %s is %s", c.heat.Number, c.heat.Status)
	}
	return nil
}

// eventTime resolves when a step event happened. A client supplied time is
// only taken for offline entries and never lies in the future.
func eventTime(c *change, at time.Time, offline bool) (time.Time, error) {
	if at.IsZero() {
		return c.now, nil
	}
	if !offline {
		return time.Time{}, workflow.Validation("an explicit time is only accepted for offline entries")
	}
	at = at.UTC()
	if at.After(c.now) {
		return time.Time{}, workflow.Validation("offline time %s is in the future", at.Format(time.RFC3339))
	}
	return at, nil
}

func closedConflict(p *store.Pipe, s *store.PipeStep) error {
	return workflow.Conflict("step %d of pipe %d is already %s", s.StepNumber, p.Number, s.Status)
}

// StartStep opens the pending record at the pointer.
func (e *Engine) StartStep(ctx context.Context, pipeID int64, step int, in StepInput, actor workflow.Actor) (*store.PipeStep, error) {
	if step == 0 {
		return nil, workflow.Validation("step number is required")
	}
	return e.apply(ctx, pipeID, step, "step_started", actor, func(c *change, p *store.Pipe, s *store.PipeStep) error {
		if err := checkOpen(c, p); err != nil {
			return err
		}
		if p.Status == PipeOnHold {
			return workflow.OutOfOrder("pipe %d is on hold", p.Number)
		}
		if step != p.CurrentStep {
			return workflow.OutOfOrder("pipe %d is at step %d, cannot start step %d", p.Number, p.CurrentStep, step)
		}
		switch s.Status {
		case StepPending:
		case StepInProgress:
			return workflow.Conflict("step %d of pipe %d is already started by %s", step, p.Number, s.OperatorName)
		default:
			return workflow.OutOfOrder("step %d of pipe %d is %s", step, p.Number, s.Status)
		}
		at, err := eventTime(c, in.At, in.Offline)
		if err != nil {
			return err
		}
		floor, what := p.CreatedAt, "the pipe was created"
		if step > 1 {
			prev, err := c.tx.GetPipeStep(ctx, p.ID, step-1)
			if err != nil {
				return err
			}
			if prev.EndedAt != nil {
				floor, what = *prev.EndedAt, fmt.Sprintf("step %d ended", step-1)
			}
		}
		if at.Before(floor) {
			return workflow.Validation("step %d of pipe %d cannot start before %s", step, p.Number, what)
		}
		s.Status = StepInProgress
		s.StartedAt = &at
		s.OperatorID = actor.ID
		s.OperatorName = actor.DisplayName
		s.Offline = in.Offline
		c.detail["at"] = at
		if in.Offline {
			c.detail["offline"] = true
		}
		return nil
	})
}

// CompleteStep closes the step in progress at the pointer, either validating
// it (the pointer advances) or recording a non-conformity (the pipe goes on
// hold).
func (e *Engine) CompleteStep(ctx context.Context, pipeID int64, step int, in Completion, actor workflow.Actor) (*store.PipeStep, error) {
	if step == 0 {
		return nil, workflow.Validation("step number is required")
	}
	in.Defect = strings.TrimSpace(in.Defect)
	switch in.Outcome {
	case OutcomeValidated:
		if err := e.checkDecision(step, in.Decision); err != nil {
			return nil, err
		}
	case OutcomeNonConforming:
		if in.Defect == "" {
			return nil, workflow.Validation("a defect description is required for a non-conformity")
		}
		if in.Decision != "" {
			return nil, workflow.Validation("a decision is only recorded when the final step is validated")
		}
	default:
		return nil, workflow.Validation("unknown outcome %q", in.Outcome)
	}

	action := "step_" + string(in.Outcome)
	return e.apply(ctx, pipeID, step, action, actor, func(c *change, p *store.Pipe, s *store.PipeStep) error {
		if IsClosed(s.Status) {
			return closedConflict(p, s)
		}
		if err := checkOpen(c, p); err != nil {
			return err
		}
		switch s.Status {
		case StepInProgress:
		case StepPending:
			return workflow.OutOfOrder("step %d of pipe %d has not been started", step, p.Number)
		case StepNonConforming:
			return workflow.OutOfOrder("step %d of pipe %d is non-conforming, correct or skip it", step, p.Number)
		}
		at, err := eventTime(c, in.At, in.Offline)
		if err != nil {
			return err
		}
		s.OperatorID = actor.ID
		s.OperatorName = actor.DisplayName
		s.Offline = s.Offline || in.Offline
		if in.Comment != "" {
			s.Comment = in.Comment
		}

		if in.Outcome == OutcomeNonConforming {
			if at.Before(*s.StartedAt) {
				return workflow.Validation("step cannot end before it started")
			}
			s.Status = StepNonConforming
			s.EndedAt = &at
			s.Defect = in.Defect
			p.Status = PipeOnHold
			c.detail["defect"] = in.Defect
			if def, _ := e.catalog.Step(step); def.Mandatory {
				c.alert = &notify.Alert{
					EntityType: audit.EntityPipe,
					EntityID:   p.ID,
					StepNumber: step,
					StepCode:   s.StepCode,
					Message:    fmt.Sprintf("Heat %s pipe %d: %s non-conforming: %s", c.heat.Number, p.Number, def.Name, in.Defect),
				}
			}
			return nil
		}

		if err := e.finish(c, s, at, in.DelayReasonID); err != nil {
			return err
		}
		s.Status = StepValidated
		e.advance(c, p, s, in.Decision, actor)
		return nil
	})
}

// CorrectNonConformity validates a non-conforming step once the defect has
// been dealt with. The defect text is kept next to the correction note and
// the delay runs from the original start to the correction.
func (e *Engine) CorrectNonConformity(ctx context.Context, pipeID int64, step int, in Correction, actor workflow.Actor) (*store.PipeStep, error) {
	if step == 0 {
		return nil, workflow.Validation("step number is required")
	}
	in.Note = strings.TrimSpace(in.Note)
	if in.Note == "" {
		return nil, workflow.Validation("a correction note is required")
	}
	if err := e.checkDecision(step, in.Decision); err != nil {
		return nil, err
	}
	return e.apply(ctx, pipeID, step, "step_corrected", actor, func(c *change, p *store.Pipe, s *store.PipeStep) error {
		if IsClosed(s.Status) {
			return closedConflict(p, s)
		}
		if err := checkOpen(c, p); err != nil {
			return err
		}
		if s.Status != StepNonConforming {
			return workflow.OutOfOrder("step %d of pipe %d is %s, only a non-conforming step can be corrected", step, p.Number, s.Status)
		}
		at, err := eventTime(c, in.At, in.Offline)
		if err != nil {
			return err
		}
		if s.EndedAt != nil && at.Before(*s.EndedAt) {
			return workflow.Validation("step %d of pipe %d cannot be corrected before the non-conformity was reported", step, p.Number)
		}
		if err := e.finish(c, s, at, in.DelayReasonID); err != nil {
			return err
		}
		s.Status = StepValidated
		s.Correction = in.Note
		s.Offline = s.Offline || in.Offline
		s.OperatorID = actor.ID
		s.OperatorName = actor.DisplayName
		c.detail["defect"] = s.Defect
		c.detail["correction"] = in.Note
		e.advance(c, p, s, in.Decision, actor)
		return nil
	})
}

// SkipStep passes over an optional step at the pointer.
func (e *Engine) SkipStep(ctx context.Context, pipeID int64, step int, reason string, actor workflow.Actor) (*store.PipeStep, error) {
	if step == 0 {
		return nil, workflow.Validation("step number is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, workflow.Validation("a skip reason is required")
	}
	if e.cfgErr == nil {
		def, ok := e.catalog.Step(step)
		if ok && def.Mandatory {
			return nil, workflow.Validation("step %d (%s) is mandatory and cannot be skipped", step, def.Code)
		}
		if step == e.lastStep() {
			return nil, workflow.Validation("the final step cannot be skipped")
		}
	}
	return e.apply(ctx, pipeID, step, "step_skipped", actor, func(c *change, p *store.Pipe, s *store.PipeStep) error {
		if IsClosed(s.Status) {
			return closedConflict(p, s)
		}
		if err := checkOpen(c, p); err != nil {
			return err
		}
		if s.Status == StepInProgress {
			return workflow.OutOfOrder("step %d of pipe %d is in progress, complete it instead", step, p.Number)
		}
		s.Status = StepSkipped
		s.SkipReason = reason
		s.EndedAt = &c.now
		s.OperatorID = actor.ID
		s.OperatorName = actor.DisplayName
		c.detail["reason"] = reason
		e.advance(c, p, s, "", actor)
		return nil
	})
}

// Scrap rejects a pipe held on an open non-conformity at a mandatory step.
func (e *Engine) Scrap(ctx context.Context, pipeID int64, reason string, actor workflow.Actor) (*store.Pipe, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, workflow.Validation("a scrap reason is required")
	}
	var pipe *store.Pipe
	_, err := e.apply(ctx, pipeID, 0, "scrapped", actor, func(c *change, p *store.Pipe, s *store.PipeStep) error {
		if err := checkOpen(c, p); err != nil {
			return err
		}
		if p.Status != PipeOnHold || s.Status != StepNonConforming {
			return workflow.OutOfOrder("pipe %d has no open non-conformity", p.Number)
		}
		if def, _ := e.catalog.Step(s.StepNumber); !def.Mandatory {
			return workflow.OutOfOrder("step %d is optional, skip it instead of scrapping", s.StepNumber)
		}
		p.Status = PipeScrapped
		p.Decision = DecisionReject
		c.detail["reason"] = reason
		c.decision = e.decisionEvent(c, p, actor)
		pipe = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pipe, nil
}

func (e *Engine) checkDecision(step int, decision string) error {
	if step == e.lastStep() {
		if !validDecision(decision) {
			return workflow.Validation("the final step needs a decision: accept, reject or rework")
		}
		return nil
	}
	if decision != "" {
		return workflow.Validation("a decision is only recorded at the final step")
	}
	return nil
}

// finish records the end of a step and applies the delay rule against the
// standard captured when the record was created.
func (e *Engine) finish(c *change, s *store.PipeStep, at time.Time, reasonID *int64) error {
	if s.StartedAt == nil {
		return workflow.OutOfOrder("step %d has no start time", s.StepNumber)
	}
	elapsed := at.Sub(*s.StartedAt)
	if elapsed < 0 {
		return workflow.Validation("step cannot end before it started")
	}
	delay := workflow.DelayMinutes(elapsed, time.Duration(s.StandardMin)*time.Minute)
	s.EndedAt = &at
	s.DurationMin = workflow.DurationMinutes(elapsed)
	s.DelayMin = delay
	s.DelayReasonID = nil
	c.detail["duration_min"] = s.DurationMin
	c.detail["delay_min"] = delay
	if delay == 0 {
		return nil
	}
	if reasonID == nil {
		return workflow.Validation("step %d ran %d min over its standard, a delay reason is required", s.StepNumber, delay)
	}
	if !e.catalog.ReasonApplies(*reasonID, catalog.CheckpointStep) {
		return workflow.Validation("delay reason %d does not apply to production steps", *reasonID)
	}
	r, _ := e.catalog.Reason(*reasonID)
	c.detail["delay_reason"] = r.Code
	s.DelayReasonID = reasonID
	return nil
}

// advance moves the pointer past s. After the final step the pipe is
// completed with its decision; otherwise the next pending record is queued.
func (e *Engine) advance(c *change, p *store.Pipe, s *store.PipeStep, decision string, actor workflow.Actor) {
	p.CurrentStep = s.StepNumber + 1
	if p.Status == PipeOnHold {
		p.Status = PipeInProduction
	}
	if s.StepNumber == e.lastStep() {
		p.Status = PipeCompleted
		p.Decision = decision
		c.detail["decision"] = decision
		c.decision = e.decisionEvent(c, p, actor)
		return
	}
	next, _ := e.catalog.Step(s.StepNumber + 1)
	c.created = pendingRecord(p.ID, next, c.now)
}

func (e *Engine) decisionEvent(c *change, p *store.Pipe, actor workflow.Actor) *notify.PipeDecision {
	return &notify.PipeDecision{
		PipeID:     p.ID,
		PipeNumber: p.Number,
		HeatID:     p.HeatID,
		HeatNumber: c.heat.Number,
		Decision:   p.Decision,
		DecidedBy:  actor.DisplayName,
	}
}
