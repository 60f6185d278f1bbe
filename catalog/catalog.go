// Package catalog holds the reference data every workflow component trusts:
// the ordered production steps and the delay reasons operators may cite.
// Both are fixed at runtime. Changing them is a migration.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"logitrack/store"
	"logitrack/workflow"
)

// StepCode names one production step. The set is closed.
type StepCode string

const (
	Forming          StepCode = "forming"
	TackWelding      StepCode = "tack_welding"
	InnerWelding     StepCode = "inner_welding"
	OuterWelding     StepCode = "outer_welding"
	VisualInspection StepCode = "visual_inspection"
	Radiography      StepCode = "radiography"
	HydroTest        StepCode = "hydro_test"
	Bevelling        StepCode = "bevelling"
	Ultrasonic       StepCode = "ultrasonic"
	Dimensional      StepCode = "dimensional"
	Marking          StepCode = "marking"
	FinalInspection  StepCode = "final_inspection"
)

// stepOrder is the physical line order; index i holds step number i+1.
var stepOrder = []StepCode{
	Forming, TackWelding, InnerWelding, OuterWelding, VisualInspection, Radiography,
	HydroTest, Bevelling, Ultrasonic, Dimensional, Marking, FinalInspection,
}

// StepCount is the number of steps a pipe passes through.
const StepCount = 12

func (c StepCode) Valid() bool {
	for _, s := range stepOrder {
		if s == c {
			return true
		}
	}
	return false
}

type Checkpoint string

const (
	CheckpointReception    Checkpoint = "reception"
	CheckpointInstallation Checkpoint = "installation"
	CheckpointStep         Checkpoint = "step"
)

func (c Checkpoint) Valid() bool {
	return c == CheckpointReception || c == CheckpointInstallation || c == CheckpointStep
}

var categories = map[string]bool{
	"personnel":      true,
	"logistics":      true,
	"technical":      true,
	"quality":        true,
	"administrative": true,
	"other":          true,
}

// Step is a step definition with its standard expressed as a duration.
type Step struct {
	Number    int           `json:"number"`
	Code      StepCode      `json:"code"`
	Name      string        `json:"name"`
	Mandatory bool          `json:"mandatory"`
	Standard  time.Duration `json:"standard"`
	Color     string        `json:"color"`
	Icon      string        `json:"icon"`
}

type Catalog struct {
	steps   []Step
	reasons []store.DelayReason
	byID    map[int64]store.DelayReason
}

// New builds a catalog from raw definitions. It does not validate.
func New(defs []store.StepDefinition, reasons []store.DelayReason) *Catalog {
	c := &Catalog{byID: make(map[int64]store.DelayReason, len(reasons))}
	for _, d := range defs {
		c.steps = append(c.steps, Step{
			Number:    d.Number,
			Code:      StepCode(d.Code),
			Name:      d.Name,
			Mandatory: d.Mandatory,
			Standard:  time.Duration(d.StandardMin) * time.Minute,
			Color:     d.Color,
			Icon:      d.Icon,
		})
	}
	sort.SliceStable(c.steps, func(i, j int) bool { return c.steps[i].Number < c.steps[j].Number })
	for _, r := range reasons {
		c.reasons = append(c.reasons, r)
		c.byID[r.ID] = r
	}
	return c
}

// Load reads both reference lists from the store.
func Load(ctx context.Context, db *store.DB) (*Catalog, error) {
	defs, err := db.ListStepDefinitions(ctx)
	if err != nil {
		return nil, workflow.Persistence(fmt.Errorf("load steps: %w", err))
	}
	reasons, err := db.ListDelayReasons(ctx)
	if err != nil {
		return nil, workflow.Persistence(fmt.Errorf("load delay reasons: %w", err))
	}
	rs := make([]store.DelayReason, 0, len(reasons))
	for _, r := range reasons {
		rs = append(rs, *r)
	}
	return New(defs, rs), nil
}

// Seed inserts the default steps and delay reasons that are missing.
func Seed(ctx context.Context, db *store.DB) error {
	if err := db.SeedStepDefinitions(ctx, DefaultSteps()); err != nil {
		return fmt.Errorf("seed steps: %w", err)
	}
	if err := db.SeedDelayReasons(ctx, DefaultDelayReasons()); err != nil {
		return fmt.Errorf("seed delay reasons: %w", err)
	}
	return nil
}

// Validate checks that the steps form the contiguous sequence 1..12 in line
// order and that every delay reason names a known category and checkpoint.
// Any failure is a configuration error.
func (c *Catalog) Validate() error {
	if c == nil || len(c.steps) == 0 {
		return workflow.Configuration("step catalog is empty")
	}
	for i, s := range c.steps {
		want := i + 1
		switch {
		case i > 0 && s.Number == c.steps[i-1].Number:
			return workflow.Configuration("duplicate step number %d", s.Number)
		case s.Number != want:
			return workflow.Configuration("step sequence has a gap at %d (found %d)", want, s.Number)
		case !s.Code.Valid():
			return workflow.Configuration("unknown step code %q at %d", s.Code, s.Number)
		case i < len(stepOrder) && s.Code != stepOrder[i]:
			return workflow.Configuration("step %d is %q, want %q", s.Number, s.Code, stepOrder[i])
		case s.Standard < 0:
			return workflow.Configuration("step %d has a negative standard", s.Number)
		}
	}
	if len(c.steps) != StepCount {
		return workflow.Configuration("step catalog has %d steps, want %d", len(c.steps), StepCount)
	}
	for _, r := range c.reasons {
		if !categories[r.Category] {
			return workflow.Configuration("delay reason %q has unknown category %q", r.Code, r.Category)
		}
		if !Checkpoint(r.Checkpoint).Valid() {
			return workflow.Configuration("delay reason %q has unknown checkpoint %q", r.Code, r.Checkpoint)
		}
	}
	return nil
}

// ListSteps returns the steps ordered by number.
func (c *Catalog) ListSteps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

func (c *Catalog) Len() int { return len(c.steps) }

// Step returns the definition for number n.
func (c *Catalog) Step(n int) (Step, bool) {
	for _, s := range c.steps {
		if s.Number == n {
			return s, true
		}
	}
	return Step{}, false
}

// ListDelayReasons returns the active reasons for a checkpoint, or all active
// reasons when checkpoint is empty.
func (c *Catalog) ListDelayReasons(checkpoint Checkpoint) []store.DelayReason {
	var out []store.DelayReason
	for _, r := range c.reasons {
		if !r.Active {
			continue
		}
		if checkpoint != "" && Checkpoint(r.Checkpoint) != checkpoint {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Reason looks up a delay reason by id.
func (c *Catalog) Reason(id int64) (store.DelayReason, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// ReasonApplies reports whether the reason exists, is active and may explain
// a delay at the given checkpoint.
func (c *Catalog) ReasonApplies(id int64, checkpoint Checkpoint) bool {
	r, ok := c.byID[id]
	return ok && r.Active && Checkpoint(r.Checkpoint) == checkpoint
}
