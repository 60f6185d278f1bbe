package progression

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"logitrack/audit"
	"logitrack/catalog"
	"logitrack/config"
	"logitrack/notify"
	"logitrack/store"
	"logitrack/workflow"

	"golang.org/x/sync/errgroup"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type mockEmitter struct {
	mu    sync.Mutex
	steps []string
	pipes []string
}

func (m *mockEmitter) EmitPipeCreated(pipeID, heatID int64, number int) {}

func (m *mockEmitter) EmitStepTransitioned(pipeID, heatID int64, step int, code, oldStatus, newStatus string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, code+":"+newStatus)
}

func (m *mockEmitter) EmitPipeStatusChanged(pipeID, heatID int64, oldStatus, newStatus string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipes = append(m.pipes, oldStatus+"->"+newStatus)
}

type mockNotifier struct {
	mu        sync.Mutex
	decisions []notify.PipeDecision
	alerts    []notify.Alert
}

func (m *mockNotifier) PipeDecisionFinalized(ctx context.Context, d notify.PipeDecision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
}

func (m *mockNotifier) CriticalAlert(ctx context.Context, a notify.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
}

var (
	base   = time.Date(2026, 5, 12, 6, 0, 0, 0, time.UTC)
	welder = workflow.Actor{ID: 11, DisplayName: "Yacine M.", Role: "operator"}
	qa     = workflow.Actor{ID: 12, DisplayName: "Lina H.", Role: "inspector"}
)

type fixture struct {
	e     *Engine
	db    *store.DB
	cat   *catalog.Catalog
	em    *mockEmitter
	notes *mockNotifier
	heat  *store.Heat
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testDB(t)
	if err := catalog.Seed(ctx, db); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	cat, err := catalog.Load(ctx, db)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	f := &fixture{db: db, cat: cat, em: &mockEmitter{}, notes: &mockNotifier{}, now: base}
	f.heat = f.addHeat(t, "H-10", "in_production")
	rec := audit.NewRecorder(db, t.Logf)
	f.e = NewEngine(db, cat, rec, f.em, f.notes, t.Logf)
	f.e.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) addHeat(t *testing.T, number, status string) *store.Heat {
	t.Helper()
	ctx := context.Background()
	h := &store.Heat{Number: number, Status: status, CreatedAt: base, UpdatedAt: base}
	if err := f.db.Update(ctx, func(tx *store.Tx) error { return tx.CreateHeat(ctx, h) }); err != nil {
		t.Fatalf("add heat: %v", err)
	}
	return h
}

func (f *fixture) pipe(t *testing.T, number int) *store.Pipe {
	t.Helper()
	p, err := f.e.CreatePipe(context.Background(), f.heat.ID, NewPipe{Number: number, Diameter: 508, Length: 12, Thickness: 12.7}, welder)
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	return p
}

// pass runs step n start to finish well inside its standard.
func (f *fixture) pass(t *testing.T, pipeID int64, n int) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.e.StartStep(ctx, pipeID, n, StepInput{}, welder); err != nil {
		t.Fatalf("start step %d: %v", n, err)
	}
	f.now = f.now.Add(time.Minute)
	c := Completion{Outcome: OutcomeValidated}
	if n == f.cat.Len() {
		c.Decision = DecisionAccept
	}
	if _, err := f.e.CompleteStep(ctx, pipeID, n, c, welder); err != nil {
		t.Fatalf("complete step %d: %v", n, err)
	}
}

// advanceTo passes every step before n.
func (f *fixture) advanceTo(t *testing.T, pipeID int64, n int) {
	t.Helper()
	for s := 1; s < n; s++ {
		f.pass(t, pipeID, s)
	}
}

func (f *fixture) reason(t *testing.T, code string) int64 {
	t.Helper()
	for _, r := range f.cat.ListDelayReasons("") {
		if r.Code == code {
			return r.ID
		}
	}
	t.Fatalf("no delay reason %q", code)
	return 0
}

func (f *fixture) getPipe(t *testing.T, id int64) *store.Pipe {
	t.Helper()
	p, err := f.e.GetPipe(context.Background(), id)
	if err != nil {
		t.Fatalf("get pipe: %v", err)
	}
	return p
}

func (f *fixture) record(t *testing.T, pipeID int64, n int) *store.PipeStep {
	t.Helper()
	steps, err := f.e.ListSteps(context.Background(), pipeID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	for _, s := range steps {
		if s.StepNumber == n {
			return s
		}
	}
	return nil
}

func TestCreatePipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 1)
	if p.CurrentStep != 1 || p.Status != PipeInProduction {
		t.Errorf("pipe = %+v", p)
	}
	r := f.record(t, p.ID, 1)
	if r == nil || r.Status != StepPending || r.StepCode != string(catalog.Forming) || r.StandardMin != 30 {
		t.Errorf("first record = %+v", r)
	}
	if f.record(t, p.ID, 2) != nil {
		t.Error("record created ahead of the pointer")
	}

	if _, err := f.e.CreatePipe(ctx, f.heat.ID, NewPipe{Number: 1}, welder); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("duplicate number: err = %v, want conflict", err)
	}
	if _, err := f.e.CreatePipe(ctx, f.heat.ID, NewPipe{}, welder); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("zero number: err = %v, want validation", err)
	}
	if _, err := f.e.CreatePipe(ctx, 999, NewPipe{Number: 1}, welder); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("unknown heat: err = %v, want not found", err)
	}
	ready := f.addHeat(t, "H-11", "ready_for_production")
	if _, err := f.e.CreatePipe(ctx, ready.ID, NewPipe{Number: 1}, welder); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Errorf("heat not in production: err = %v, want out of order", err)
	}
	// Same number under another heat is fine.
	other := f.addHeat(t, "H-12", "in_production")
	if _, err := f.e.CreatePipe(ctx, other.ID, NewPipe{Number: 1}, welder); err != nil {
		t.Errorf("same number in other heat: %v", err)
	}
}

func TestDelayNeedsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 1)

	if _, err := f.e.StartStep(ctx, p.ID, 1, StepInput{}, welder); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.now = f.now.Add(40 * time.Minute)

	_, err := f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeValidated}, welder)
	if !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("no reason: err = %v, want validation", err)
	}
	wrong := f.reason(t, "rec_supplier_late")
	_, err = f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeValidated, DelayReasonID: &wrong}, welder)
	if !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("reception reason on a step: err = %v, want validation", err)
	}
	if got := f.getPipe(t, p.ID); got.CurrentStep != 1 {
		t.Fatalf("pointer moved to %d on a rejected completion", got.CurrentStep)
	}
	if r := f.record(t, p.ID, 1); r.Status != StepInProgress {
		t.Fatalf("record = %s, want in_progress", r.Status)
	}

	breakdown := f.reason(t, "step_machine_breakdown")
	s, err := f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeValidated, DelayReasonID: &breakdown, Comment: "hydraulic leak"}, welder)
	if err != nil {
		t.Fatalf("with reason: %v", err)
	}
	if s.Status != StepValidated || s.DurationMin != 40 || s.DelayMin != 10 || s.DelayReasonID == nil || *s.DelayReasonID != breakdown {
		t.Errorf("record = %+v", s)
	}
	if got := f.getPipe(t, p.ID); got.CurrentStep != 2 {
		t.Errorf("pointer = %d, want 2", got.CurrentStep)
	}
	next := f.record(t, p.ID, 2)
	if next == nil || next.Status != StepPending || next.StandardMin != 20 {
		t.Errorf("next record = %+v", next)
	}
}

func TestNonConformityBlocksUntilCorrected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 2)
	f.advanceTo(t, p.ID, 7)

	if _, err := f.e.StartStep(ctx, p.ID, 7, StepInput{}, qa); err != nil {
		t.Fatalf("start 7: %v", err)
	}
	f.now = f.now.Add(5 * time.Minute)
	if _, err := f.e.CompleteStep(ctx, p.ID, 7, Completion{Outcome: OutcomeNonConforming}, qa); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("no defect: err = %v, want validation", err)
	}
	s, err := f.e.CompleteStep(ctx, p.ID, 7, Completion{Outcome: OutcomeNonConforming, Defect: "weeping at weld seam, 210 bar"}, qa)
	if err != nil {
		t.Fatalf("non-conforming: %v", err)
	}
	if s.Status != StepNonConforming {
		t.Errorf("record = %s", s.Status)
	}
	got := f.getPipe(t, p.ID)
	if got.Status != PipeOnHold || got.CurrentStep != 7 {
		t.Errorf("pipe = %s at %d, want on_hold at 7", got.Status, got.CurrentStep)
	}
	if len(f.notes.alerts) != 1 || f.notes.alerts[0].StepCode != string(catalog.HydroTest) {
		t.Errorf("alerts = %+v", f.notes.alerts)
	}

	if _, err := f.e.StartStep(ctx, p.ID, 8, StepInput{}, welder); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Fatalf("start 8 while 7 open: err = %v, want out of order", err)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 7, Completion{Outcome: OutcomeValidated}, qa); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Errorf("validate non-conforming step: err = %v, want out of order", err)
	}
	if _, err := f.e.CorrectNonConformity(ctx, p.ID, 7, Correction{}, qa); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("blank note: err = %v, want validation", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	s, err = f.e.CorrectNonConformity(ctx, p.ID, 7, Correction{Note: "seam reground and retested"}, qa)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if s.Status != StepValidated || s.Defect == "" || s.Correction != "seam reground and retested" || s.DurationMin != 15 {
		t.Errorf("corrected record = %+v", s)
	}
	got = f.getPipe(t, p.ID)
	if got.Status != PipeInProduction || got.CurrentStep != 8 {
		t.Errorf("pipe = %s at %d, want in_production at 8", got.Status, got.CurrentStep)
	}
	if _, err := f.e.StartStep(ctx, p.ID, 8, StepInput{}, welder); err != nil {
		t.Errorf("start 8 after correction: %v", err)
	}
	if _, err := f.e.CorrectNonConformity(ctx, p.ID, 7, Correction{Note: "again"}, qa); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("correct twice: err = %v, want conflict", err)
	}
}

func TestCorrectionDelayRunsFromOriginalStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 3)
	f.e.StartStep(ctx, p.ID, 1, StepInput{}, welder)
	f.now = f.now.Add(20 * time.Minute)
	if _, err := f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeNonConforming, Defect: "ovality"}, welder); err != nil {
		t.Fatalf("non-conforming: %v", err)
	}
	f.now = f.now.Add(30 * time.Minute)

	if _, err := f.e.CorrectNonConformity(ctx, p.ID, 1, Correction{Note: "re-rolled"}, welder); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("late correction without reason: err = %v, want validation", err)
	}
	rework := f.reason(t, "step_quality_retest")
	s, err := f.e.CorrectNonConformity(ctx, p.ID, 1, Correction{Note: "re-rolled", DelayReasonID: &rework}, welder)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if s.DurationMin != 50 || s.DelayMin != 20 {
		t.Errorf("duration %d delay %d, want 50 and 20", s.DurationMin, s.DelayMin)
	}
}

func TestConcurrentCompleteSingleWriter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 4)
	f.advanceTo(t, p.ID, 4)
	if _, err := f.e.StartStep(ctx, p.ID, 4, StepInput{}, welder); err != nil {
		t.Fatalf("start 4: %v", err)
	}
	f.now = f.now.Add(10 * time.Minute)

	var g errgroup.Group
	errs := make([]error, 2)
	for i, who := range []workflow.Actor{welder, qa} {
		i, who := i, who
		g.Go(func() error {
			_, errs[i] = f.e.CompleteStep(ctx, p.ID, 4, Completion{Outcome: OutcomeValidated}, who)
			return nil
		})
	}
	g.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, workflow.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok = %d conflicts = %d, want 1 and 1", ok, conflicts)
	}

	if got := f.getPipe(t, p.ID); got.CurrentStep != 5 {
		t.Errorf("pointer = %d, want 5", got.CurrentStep)
	}
	steps, _ := f.e.ListSteps(ctx, p.ID)
	if len(steps) != 5 {
		t.Errorf("records = %d, want 5", len(steps))
	}
	entries, _ := audit.NewRecorder(f.db, nil).ListEntity(ctx, audit.EntityPipe, p.ID)
	validated := 0
	for _, e := range entries {
		if e.Action == "pipe.step_validated" {
			validated++
		}
	}
	if validated != 4 {
		t.Errorf("validated audit entries = %d, want 4", validated)
	}
}

func TestStartOnlyAtPointer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 5)
	f.advanceTo(t, p.ID, 3)

	for _, n := range []int{5, 4, 2, 1} {
		if _, err := f.e.StartStep(ctx, p.ID, n, StepInput{}, welder); !errors.Is(err, workflow.ErrOutOfOrder) {
			t.Errorf("start %d at pointer 3: err = %v, want out of order", n, err)
		}
	}
	if _, err := f.e.StartStep(ctx, p.ID, 13, StepInput{}, welder); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("start 13: err = %v, want validation", err)
	}
	if _, err := f.e.StartStep(ctx, p.ID, 3, StepInput{Offline: true}, welder); err != nil {
		t.Fatalf("start 3: %v", err)
	}
	if _, err := f.e.StartStep(ctx, p.ID, 3, StepInput{}, qa); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("start 3 twice: err = %v, want conflict", err)
	}
	if r := f.record(t, p.ID, 3); !r.Offline || r.OperatorName != "Yacine M." {
		t.Errorf("record = %+v", r)
	}
}

func TestCompleteIsNotReapplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 6)
	if _, err := f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeValidated}, welder); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Fatalf("complete before start: err = %v, want out of order", err)
	}
	f.pass(t, p.ID, 1)
	_, err := f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeValidated}, welder)
	if !errors.Is(err, workflow.ErrConflict) {
		t.Fatalf("second complete: err = %v, want conflict", err)
	}
	if got := f.getPipe(t, p.ID); got.CurrentStep != 2 {
		t.Errorf("pointer = %d, want 2", got.CurrentStep)
	}
	if steps, _ := f.e.ListSteps(ctx, p.ID); len(steps) != 2 {
		t.Errorf("records = %d, want 2", len(steps))
	}
}

func TestSkipRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 7)

	if _, err := f.e.SkipStep(ctx, p.ID, 1, "not needed", welder); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("skip mandatory: err = %v, want validation", err)
	}
	f.advanceTo(t, p.ID, 9)
	if _, err := f.e.SkipStep(ctx, p.ID, 9, " ", welder); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("skip without reason: err = %v, want validation", err)
	}
	if _, err := f.e.SkipStep(ctx, p.ID, 11, "no marking", welder); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Fatalf("skip ahead of pointer: err = %v, want out of order", err)
	}
	s, err := f.e.SkipStep(ctx, p.ID, 9, "ultrasonic covered by radiography", welder)
	if err != nil {
		t.Fatalf("skip 9: %v", err)
	}
	if s.Status != StepSkipped || s.SkipReason == "" {
		t.Errorf("record = %+v", s)
	}
	if got := f.getPipe(t, p.ID); got.CurrentStep != 10 {
		t.Errorf("pointer = %d, want 10", got.CurrentStep)
	}
	if _, err := f.e.SkipStep(ctx, p.ID, 9, "again", welder); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("skip twice: err = %v, want conflict", err)
	}

	f.pass(t, p.ID, 10)
	f.e.StartStep(ctx, p.ID, 11, StepInput{}, welder)
	if _, err := f.e.SkipStep(ctx, p.ID, 11, "busy", welder); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Errorf("skip in-progress step: err = %v, want out of order", err)
	}
	f.e.CompleteStep(ctx, p.ID, 11, Completion{Outcome: OutcomeNonConforming, Defect: "stencil smudged"}, welder)
	if len(f.notes.alerts) != 0 {
		t.Errorf("optional step raised alerts: %+v", f.notes.alerts)
	}
	if _, err := f.e.SkipStep(ctx, p.ID, 11, "marking redone at dispatch", welder); err != nil {
		t.Fatalf("skip non-conforming optional step: %v", err)
	}
	got := f.getPipe(t, p.ID)
	if got.Status != PipeInProduction || got.CurrentStep != 12 {
		t.Errorf("pipe = %s at %d, want in_production at 12", got.Status, got.CurrentStep)
	}
}

func TestFinalDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 8)
	f.advanceTo(t, p.ID, 12)

	if _, err := f.e.CompleteStep(ctx, p.ID, 5, Completion{Outcome: OutcomeValidated, Decision: DecisionAccept}, qa); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("decision before final step: err = %v, want validation", err)
	}
	f.e.StartStep(ctx, p.ID, 12, StepInput{}, qa)
	f.now = f.now.Add(5 * time.Minute)
	if _, err := f.e.CompleteStep(ctx, p.ID, 12, Completion{Outcome: OutcomeValidated}, qa); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("final step without decision: err = %v, want validation", err)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 12, Completion{Outcome: OutcomeValidated, Decision: "maybe"}, qa); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("unknown decision: err = %v, want validation", err)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 12, Completion{Outcome: OutcomeValidated, Decision: DecisionRework}, qa); err != nil {
		t.Fatalf("final step: %v", err)
	}

	got := f.getPipe(t, p.ID)
	if got.Status != PipeCompleted || got.CurrentStep != 13 || got.Decision != DecisionRework {
		t.Errorf("pipe = %+v", got)
	}
	if len(f.notes.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(f.notes.decisions))
	}
	d := f.notes.decisions[0]
	if d.PipeNumber != 8 || d.HeatNumber != "H-10" || d.Decision != DecisionRework || d.DecidedBy != "Lina H." {
		t.Errorf("decision event = %+v", d)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 12, Completion{Outcome: OutcomeValidated, Decision: DecisionAccept}, qa); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("complete final twice: err = %v, want conflict", err)
	}
	if _, err := f.e.StartStep(ctx, p.ID, 12, StepInput{}, qa); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Errorf("start on completed pipe: err = %v, want out of order", err)
	}
	if n := len(f.em.pipes); n == 0 || f.em.pipes[n-1] != "in_production->completed" {
		t.Errorf("pipe events = %v", f.em.pipes)
	}
}

func TestPointerMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 9)
	last := 1
	check := func() {
		t.Helper()
		got := f.getPipe(t, p.ID)
		if got.CurrentStep < last || got.CurrentStep > 13 {
			t.Fatalf("pointer went from %d to %d", last, got.CurrentStep)
		}
		last = got.CurrentStep
	}

	for n := 1; n <= 12; n++ {
		// Noise that must never move the pointer.
		f.e.StartStep(ctx, p.ID, n+1, StepInput{}, welder)
		f.e.CompleteStep(ctx, p.ID, n-1, Completion{Outcome: OutcomeValidated}, welder)
		check()
		if def, _ := f.cat.Step(n); def.Mandatory {
			f.e.SkipStep(ctx, p.ID, n, "try", welder)
			check()
			f.pass(t, p.ID, n)
		} else if _, err := f.e.SkipStep(ctx, p.ID, n, "optional", welder); err != nil {
			t.Fatalf("skip %d: %v", n, err)
		}
		check()
	}
	if last != 13 {
		t.Errorf("final pointer = %d, want 13", last)
	}
}

func TestScrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 10)
	if _, err := f.e.Scrap(ctx, p.ID, "cracked", qa); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Fatalf("scrap without non-conformity: err = %v, want out of order", err)
	}
	f.advanceTo(t, p.ID, 6)
	f.e.StartStep(ctx, p.ID, 6, StepInput{}, qa)
	f.e.CompleteStep(ctx, p.ID, 6, Completion{Outcome: OutcomeNonConforming, Defect: "lack of fusion"}, qa)

	if _, err := f.e.Scrap(ctx, p.ID, "", qa); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("scrap without reason: err = %v, want validation", err)
	}
	got, err := f.e.Scrap(ctx, p.ID, "repair not economical", qa)
	if err != nil {
		t.Fatalf("scrap: %v", err)
	}
	if got.Status != PipeScrapped || got.Decision != DecisionReject || got.CurrentStep != 6 {
		t.Errorf("pipe = %+v", got)
	}
	if len(f.notes.decisions) != 1 || f.notes.decisions[0].Decision != DecisionReject {
		t.Errorf("decisions = %+v", f.notes.decisions)
	}
	if _, err := f.e.CorrectNonConformity(ctx, p.ID, 6, Correction{Note: "late fix"}, qa); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Errorf("correct scrapped pipe: err = %v, want out of order", err)
	}
}

func TestHeatLeftProduction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 11)
	err := f.db.Update(ctx, func(tx *store.Tx) error {
		h, err := tx.GetHeat(ctx, f.heat.ID)
		if err != nil {
			return err
		}
		h.Status = "cancelled"
		return tx.SaveHeat(ctx, h, "in_production")
	})
	if err != nil {
		t.Fatalf("cancel heat: %v", err)
	}
	if _, err := f.e.StartStep(ctx, p.ID, 1, StepInput{}, welder); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Errorf("start on cancelled heat: err = %v, want out of order", err)
	}
}

func TestInvalidCatalogRefusesWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 12)

	defs := catalog.DefaultSteps()
	gapped := append(defs[:4:4], defs[5:]...)
	e := NewEngine(f.db, catalog.New(gapped, nil), audit.NewRecorder(f.db, nil), nil, nil, t.Logf)

	if _, err := e.CreatePipe(ctx, f.heat.ID, NewPipe{Number: 99}, welder); !errors.Is(err, workflow.ErrConfiguration) {
		t.Errorf("create: err = %v, want configuration", err)
	}
	if _, err := e.StartStep(ctx, p.ID, 1, StepInput{}, welder); !errors.Is(err, workflow.ErrConfiguration) {
		t.Errorf("start: err = %v, want configuration", err)
	}
	empty := NewEngine(f.db, catalog.New(nil, nil), nil, nil, nil, t.Logf)
	if _, err := empty.SkipStep(ctx, p.ID, 9, "x", welder); !errors.Is(err, workflow.ErrConfiguration) {
		t.Errorf("skip with empty catalog: err = %v, want configuration", err)
	}
}

func TestOfflineTimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pipe(t, 13)
	f.now = base.Add(10 * time.Minute)

	rejected := []struct {
		name string
		in   StepInput
	}{
		{"explicit time while online", StepInput{At: base.Add(5 * time.Minute)}},
		{"before the pipe existed", StepInput{At: base.Add(-time.Hour), Offline: true}},
		{"in the future", StepInput{At: base.Add(20 * time.Minute), Offline: true}},
	}
	for _, tt := range rejected {
		if _, err := f.e.StartStep(ctx, p.ID, 1, tt.in, welder); !errors.Is(err, workflow.ErrValidation) {
			t.Errorf("start step 1 %s: err = %v, want validation", tt.name, err)
		}
	}

	started := base.Add(5 * time.Minute)
	if _, err := f.e.StartStep(ctx, p.ID, 1, StepInput{At: started, Offline: true}, welder); err != nil {
		t.Fatalf("offline start: %v", err)
	}
	if r := f.record(t, p.ID, 1); !r.Offline || r.StartedAt == nil || !r.StartedAt.Equal(started) {
		t.Errorf("record = %+v", r)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 1, Completion{Outcome: OutcomeValidated}, welder); err != nil {
		t.Fatalf("complete step 1: %v", err)
	}

	f.now = base.Add(20 * time.Minute)
	for _, at := range []time.Time{base.Add(-2 * time.Hour), base.Add(9 * time.Minute)} {
		if _, err := f.e.StartStep(ctx, p.ID, 2, StepInput{At: at, Offline: true}, welder); !errors.Is(err, workflow.ErrValidation) {
			t.Errorf("start step 2 at %s before step 1 ended: err = %v, want validation", at.Format(time.Kitchen), err)
		}
	}
	if _, err := f.e.StartStep(ctx, p.ID, 2, StepInput{At: base.Add(12 * time.Minute), Offline: true}, welder); err != nil {
		t.Fatalf("start step 2: %v", err)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 2, Completion{Outcome: OutcomeValidated, At: base.Add(15 * time.Minute)}, welder); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("online completion with explicit time: err = %v, want validation", err)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 2, Completion{Outcome: OutcomeValidated, At: base.Add(11 * time.Minute), Offline: true}, welder); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("completion before start: err = %v, want validation", err)
	}
	if _, err := f.e.CompleteStep(ctx, p.ID, 2, Completion{Outcome: OutcomeNonConforming, Defect: "misaligned tack"}, qa); err != nil {
		t.Fatalf("non-conformity: %v", err)
	}

	f.now = base.Add(30 * time.Minute)
	if _, err := f.e.CorrectNonConformity(ctx, p.ID, 2, Correction{Note: "re-tacked", At: base.Add(18 * time.Minute), Offline: true}, qa); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("correction before the defect was reported: err = %v, want validation", err)
	}
	s, err := f.e.CorrectNonConformity(ctx, p.ID, 2, Correction{Note: "re-tacked"}, qa)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if s.DurationMin != 18 || s.DelayMin != 0 || !s.Offline {
		t.Errorf("corrected record = %+v", s)
	}
}
