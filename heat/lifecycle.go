package heat

import (
	"context"
	"log"
	"strings"
	"time"

	"logitrack/audit"
	"logitrack/catalog"
	"logitrack/coil"
	"logitrack/logging"
	"logitrack/notify"
	"logitrack/store"
	"logitrack/workflow"
)

// Config holds the checkpoint standards used when a heat carries no planned
// checkpoint time.
type Config struct {
	ReceptionStandard    time.Duration
	InstallationStandard time.Duration
}

// Lifecycle drives heats through the pre-production checkpoints and into
// production. Every operation is one transaction on the heat row.
type Lifecycle struct {
	db       *store.DB
	catalog  *catalog.Catalog
	coils    *coil.Ledger
	audit    *audit.Recorder
	emitter  EventEmitter
	notifier DelayNotifier
	cfg      Config
	clock    workflow.Clock
	logFn    logging.LogFunc
}

func NewLifecycle(db *store.DB, cat *catalog.Catalog, coils *coil.Ledger, rec *audit.Recorder,
	emitter EventEmitter, notifier DelayNotifier, cfg Config, logFn logging.LogFunc) *Lifecycle {
	if logFn == nil {
		logFn = log.Printf
	}
	return &Lifecycle{
		db:       db,
		catalog:  cat,
		coils:    coils,
		audit:    rec,
		emitter:  emitter,
		notifier: notifier,
		cfg:      cfg,
		clock:    workflow.SystemClock,
		logFn:    logFn,
	}
}

func (l *Lifecycle) SetClock(c workflow.Clock) { l.clock = c }

// change carries one transition through apply. Operations fill in the
// post-commit effects.
type change struct {
	tx     *store.Tx
	now    time.Time
	detail map[string]any
	coil   coil.Change
	delay  *notify.HeatDelay
}

// apply locks the heat, runs fn against it, saves it guarded on the status
// it was read with and records the audit entry. Events go out after commit.
func (l *Lifecycle) apply(ctx context.Context, heatID int64, action string, actor workflow.Actor,
	fn func(c *change, h *store.Heat) error) (*store.Heat, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var h *store.Heat
	var from string
	var ch change
	err := l.db.Update(ctx, func(tx *store.Tx) error {
		cur, err := tx.LockHeat(ctx, heatID)
		if store.IsNotFound(err) {
			return workflow.NotFound("heat %d not found", heatID)
		}
		if err != nil {
			return err
		}
		from = cur.Status
		ch = change{tx: tx, now: l.clock(), detail: map[string]any{}}
		if err := fn(&ch, cur); err != nil {
			return err
		}
		if cur.Status != from && !IsValidTransition(from, cur.Status) {
			return workflow.OutOfOrder("heat %s cannot go from %s to %s", cur.Number, from, cur.Status)
		}
		cur.UpdatedByID = actor.ID
		cur.UpdatedByName = actor.DisplayName
		cur.UpdatedAt = ch.now
		if err := tx.SaveHeat(ctx, cur, from); err != nil {
			return err
		}
		if cur.Status != from {
			ch.detail["from"] = from
			ch.detail["to"] = cur.Status
		}
		l.audit.Record(ctx, tx, audit.Entry{Action: "heat." + action, EntityType: audit.EntityHeat, EntityID: cur.ID, Actor: actor, Detail: ch.detail})
		h = cur
		return nil
	})
	if err != nil {
		return nil, store.Classify(err)
	}

	l.coils.Emit(ch.coil)
	if l.emitter != nil {
		l.emitter.EmitHeatTransitioned(h.ID, h.Number, action, from, h.Status)
	}
	if ch.delay != nil && l.notifier != nil {
		l.notifier.HeatDelayReported(ctx, *ch.delay)
	}
	return h, nil
}

func (l *Lifecycle) Create(ctx context.Context, in NewHeat, actor workflow.Actor) (*store.Heat, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	in.Number = strings.TrimSpace(in.Number)
	if in.Number == "" {
		return nil, workflow.Validation("heat number is required")
	}
	if in.negative() {
		return nil, workflow.Validation("heat properties must not be negative")
	}
	now := l.clock()
	h := &store.Heat{
		Number:                 in.Number,
		Grade:                  in.Grade,
		CarbonPct:              in.CarbonPct,
		ManganesePct:           in.ManganesePct,
		YieldStrength:          in.YieldStrength,
		TensileStrength:        in.TensileStrength,
		Status:                 StatusInProgress,
		ReceptionExpectedAt:    in.ReceptionExpectedAt,
		InstallationExpectedAt: in.InstallationExpectedAt,
		CreatedByID:            actor.ID,
		CreatedByName:          actor.DisplayName,
		UpdatedByID:            actor.ID,
		UpdatedByName:          actor.DisplayName,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	err := l.db.Update(ctx, func(tx *store.Tx) error {
		if err := tx.CreateHeat(ctx, h); err != nil {
			if store.IsUniqueViolation(err) {
				return workflow.Conflict("heat %q already exists", in.Number)
			}
			return err
		}
		l.audit.Record(ctx, tx, audit.Entry{Action: "heat.created", EntityType: audit.EntityHeat, EntityID: h.ID, Actor: actor, Detail: in})
		return nil
	})
	if err != nil {
		return nil, store.Classify(err)
	}
	if l.emitter != nil {
		l.emitter.EmitHeatTransitioned(h.ID, h.Number, "created", "", h.Status)
	}
	return h, nil
}

func (l *Lifecycle) Get(ctx context.Context, id int64) (*store.Heat, error) {
	var h *store.Heat
	err := l.db.View(ctx, func(tx *store.Tx) error {
		var err error
		h, err = tx.GetHeat(ctx, id)
		if store.IsNotFound(err) {
			return workflow.NotFound("heat %d not found", id)
		}
		return err
	})
	return h, store.Classify(err)
}

func (l *Lifecycle) List(ctx context.Context, status string) ([]*store.Heat, error) {
	var heats []*store.Heat
	err := l.db.View(ctx, func(tx *store.Tx) error {
		var err error
		heats, err = tx.ListHeats(ctx, status)
		return err
	})
	return heats, store.Classify(err)
}

// AssignCoil binds an in-stock coil to the heat. Reassignment is allowed
// until the coil has been received.
func (l *Lifecycle) AssignCoil(ctx context.Context, heatID, coilID int64, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "coil_assigned", actor, func(c *change, h *store.Heat) error {
		if h.Status != StatusInProgress {
			return workflow.OutOfOrder("heat %s is %s, coil can only be assigned while in progress", h.Number, h.Status)
		}
		if h.CoilReceived {
			return workflow.OutOfOrder("heat %s has already received its coil", h.Number)
		}
		cl, err := c.tx.LockCoil(ctx, coilID)
		if store.IsNotFound(err) {
			return workflow.NotFound("coil %d not found", coilID)
		}
		if err != nil {
			return err
		}
		if cl.Status != coil.StatusInStock {
			return workflow.Conflict("coil %s is %s", cl.Code, cl.Status)
		}
		n, err := c.tx.CountActiveHeatsForCoil(ctx, coilID, h.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return workflow.Conflict("coil %s is bound to another heat", cl.Code)
		}
		if h.CoilID != nil {
			c.detail["previous_coil_id"] = *h.CoilID
		}
		c.detail["coil_id"] = cl.ID
		c.detail["coil_code"] = cl.Code
		h.CoilID = &cl.ID
		return nil
	})
}

func (l *Lifecycle) UpdateProperties(ctx context.Context, heatID int64, p Properties, actor workflow.Actor) (*store.Heat, error) {
	if p.negative() {
		return nil, workflow.Validation("heat properties must not be negative")
	}
	return l.apply(ctx, heatID, "properties_updated", actor, func(c *change, h *store.Heat) error {
		if IsTerminal(h.Status) {
			return workflow.OutOfOrder("heat %s is %s", h.Number, h.Status)
		}
		if h.Certified {
			return workflow.Validation("heat %s is certified, its properties are frozen", h.Number)
		}
		c.detail["before"] = Properties{h.Grade, h.CarbonPct, h.ManganesePct, h.YieldStrength, h.TensileStrength}
		c.detail["after"] = p
		h.Grade = p.Grade
		h.CarbonPct = p.CarbonPct
		h.ManganesePct = p.ManganesePct
		h.YieldStrength = p.YieldStrength
		h.TensileStrength = p.TensileStrength
		return nil
	})
}

func (l *Lifecycle) Certify(ctx context.Context, heatID int64, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "certified", actor, func(c *change, h *store.Heat) error {
		if IsTerminal(h.Status) {
			return workflow.OutOfOrder("heat %s is %s", h.Number, h.Status)
		}
		if h.Certified {
			return workflow.Conflict("heat %s is already certified", h.Number)
		}
		h.Certified = true
		h.CertifiedAt = &c.now
		return nil
	})
}

func (l *Lifecycle) RecordCoilReceived(ctx context.Context, heatID int64, in CheckpointInput, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "coil_received", actor, func(c *change, h *store.Heat) error {
		if h.Status != StatusInProgress {
			return workflow.OutOfOrder("heat %s is %s", h.Number, h.Status)
		}
		if h.CoilID == nil {
			return workflow.Validation("heat %s has no coil assigned", h.Number)
		}
		if h.CoilReceived {
			return workflow.Conflict("heat %s coil already received", h.Number)
		}
		at := in.At
		if at.IsZero() {
			at = c.now
		}
		expected := h.CreatedAt.Add(l.cfg.ReceptionStandard)
		if h.ReceptionExpectedAt != nil {
			expected = *h.ReceptionExpectedAt
		}
		minutes, reasonID, err := l.checkpointDelay(c, h, catalog.CheckpointReception, at, expected, in.DelayReasonID)
		if err != nil {
			return err
		}
		h.CoilReceived = true
		h.CoilReceivedAt = &at
		h.ReceptionDelayMin = minutes
		h.ReceptionDelayReasonID = reasonID
		return nil
	})
}

func (l *Lifecycle) RecordCoilInstalled(ctx context.Context, heatID int64, in CheckpointInput, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "coil_installed", actor, func(c *change, h *store.Heat) error {
		if h.Status != StatusInProgress {
			return workflow.OutOfOrder("heat %s is %s", h.Number, h.Status)
		}
		if !h.CoilReceived {
			return workflow.OutOfOrder("heat %s coil has not been received", h.Number)
		}
		if h.CoilInstalled {
			return workflow.Conflict("heat %s coil already installed", h.Number)
		}
		at := in.At
		if at.IsZero() {
			at = c.now
		}
		if at.Before(*h.CoilReceivedAt) {
			return workflow.Validation("heat %s coil cannot be installed before it was received at %s",
				h.Number, h.CoilReceivedAt.Format(time.RFC3339))
		}
		expected := h.CoilReceivedAt.Add(l.cfg.InstallationStandard)
		if h.InstallationExpectedAt != nil {
			expected = *h.InstallationExpectedAt
		}
		minutes, reasonID, err := l.checkpointDelay(c, h, catalog.CheckpointInstallation, at, expected, in.DelayReasonID)
		if err != nil {
			return err
		}
		h.CoilInstalled = true
		h.CoilInstalledAt = &at
		h.InstallationDelayMin = minutes
		h.InstallationDelayReasonID = reasonID
		return nil
	})
}

// checkpointDelay applies the delay rule to a checkpoint. A late checkpoint
// needs a reason tied to that checkpoint. A reason given for an on-time
// checkpoint is dropped.
func (l *Lifecycle) checkpointDelay(c *change, h *store.Heat, cp catalog.Checkpoint, at, expected time.Time, reasonID *int64) (int, *int64, error) {
	minutes := workflow.DelayMinutes(at.Sub(expected), 0)
	c.detail["at"] = at
	c.detail["expected"] = expected
	c.detail["delay_min"] = minutes
	if minutes == 0 {
		return 0, nil, nil
	}
	if reasonID == nil {
		return 0, nil, workflow.Validation("%s is %d min late, a delay reason is required", cp, minutes)
	}
	if !l.catalog.ReasonApplies(*reasonID, cp) {
		return 0, nil, workflow.Validation("delay reason %d does not apply to %s", *reasonID, cp)
	}
	r, _ := l.catalog.Reason(*reasonID)
	c.detail["delay_reason"] = r.Code
	c.delay = &notify.HeatDelay{
		HeatID:      h.ID,
		HeatNumber:  h.Number,
		Checkpoint:  string(cp),
		Minutes:     minutes,
		Reason:      r.Code,
		ReasonLabel: r.Label,
	}
	return minutes, reasonID, nil
}

// ValidateChecklist confirms the machine checklist and makes the heat ready
// for production.
func (l *Lifecycle) ValidateChecklist(ctx context.Context, heatID int64, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "checklist_validated", actor, func(c *change, h *store.Heat) error {
		if h.ChecklistValidated {
			return workflow.Conflict("heat %s checklist already validated", h.Number)
		}
		if h.Status != StatusInProgress {
			return workflow.OutOfOrder("heat %s is %s", h.Number, h.Status)
		}
		if !h.CoilReceived || !h.CoilInstalled {
			return workflow.OutOfOrder("heat %s: coil must be received and installed before the checklist", h.Number)
		}
		h.ChecklistValidated = true
		h.ChecklistValidatedAt = &c.now
		h.Status = StatusReadyForProduction
		return nil
	})
}

// BeginProduction puts the heat in production and its coil in use in the
// same transaction.
func (l *Lifecycle) BeginProduction(ctx context.Context, heatID int64, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "production_started", actor, func(c *change, h *store.Heat) error {
		if h.Status != StatusReadyForProduction || !h.ChecklistValidated {
			return workflow.OutOfOrder("heat %s is %s, not ready for production", h.Number, h.Status)
		}
		if h.CoilID == nil {
			return workflow.Validation("heat %s has no coil assigned", h.Number)
		}
		var err error
		c.coil, err = l.coils.MarkInUse(ctx, c.tx, *h.CoilID, actor)
		if err != nil {
			return err
		}
		h.Status = StatusInProduction
		return nil
	})
}

// Complete closes a heat once none of its pipes is still open and marks the
// coil exhausted.
func (l *Lifecycle) Complete(ctx context.Context, heatID int64, actor workflow.Actor) (*store.Heat, error) {
	return l.apply(ctx, heatID, "completed", actor, func(c *change, h *store.Heat) error {
		if h.Status != StatusInProduction {
			return workflow.OutOfOrder("heat %s is %s", h.Number, h.Status)
		}
		open, err := c.tx.CountOpenPipes(ctx, h.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return workflow.OutOfOrder("heat %s has %d pipe(s) still in production or on hold", h.Number, open)
		}
		if h.CoilID != nil {
			c.coil, err = l.coils.MarkExhausted(ctx, c.tx, *h.CoilID, actor)
			if err != nil {
				return err
			}
		}
		h.Status = StatusCompleted
		return nil
	})
}

// Cancel ends a heat for good. When no pipe was produced the coil goes back
// to stock if no other active heat holds it. The heat keeps its coil
// reference as history.
func (l *Lifecycle) Cancel(ctx context.Context, heatID int64, reason string, actor workflow.Actor) (*store.Heat, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, workflow.Validation("cancel reason is required")
	}
	return l.apply(ctx, heatID, "cancelled", actor, func(c *change, h *store.Heat) error {
		if IsTerminal(h.Status) {
			return workflow.OutOfOrder("heat %s is already %s", h.Number, h.Status)
		}
		c.detail["reason"] = reason
		h.Status = StatusCancelled
		h.CancelReason = reason
		if h.CoilID == nil {
			return nil
		}
		pipes, err := c.tx.CountPipes(ctx, h.ID)
		if err != nil {
			return err
		}
		if pipes > 0 {
			c.detail["pipes"] = pipes
			return nil
		}
		coilID := *h.CoilID
		ch, err := l.coils.Release(ctx, c.tx, coilID, h.ID, actor)
		switch workflow.KindOf(err) {
		case 0:
			if err != nil {
				return err
			}
			c.coil = ch
			c.detail["released_coil_id"] = coilID
		case workflow.KindConflict, workflow.KindOutOfOrder:
			l.logFn("heat: cancel %s: coil %d kept: %v", h.Number, coilID, err)
		default:
			return err
		}
		return nil
	})
}
