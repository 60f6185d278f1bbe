package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"logitrack/coil"
	"logitrack/config"
	"logitrack/heat"
	"logitrack/progression"
	"logitrack/protocol"
	"logitrack/store"
	"logitrack/workflow"
)

var operator = workflow.Actor{ID: 7, DisplayName: "Karim B.", Role: "operator"}

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

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func startEngine(t *testing.T) (*Engine, *recorder) {
	t.Helper()
	now := time.Date(2026, 5, 11, 7, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	e := New(Config{AppConfig: config.Defaults(), DB: testDB(t), LogFunc: t.Logf, Clock: clock})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(e.Stop)
	rec := &recorder{}
	e.Events.Subscribe(rec.record)
	return e, rec
}

func TestEndToEnd(t *testing.T) {
	e, rec := startEngine(t)
	ctx := context.Background()

	c, err := e.Coils().Create(ctx, coil.NewCoil{Code: "C-500", Grade: "X65"}, operator)
	if err != nil {
		t.Fatalf("create coil: %v", err)
	}
	h, err := e.Heats().Create(ctx, heat.NewHeat{Number: "H-500"}, operator)
	if err != nil {
		t.Fatalf("create heat: %v", err)
	}
	steps := []func() (*store.Heat, error){
		func() (*store.Heat, error) { return e.Heats().AssignCoil(ctx, h.ID, c.ID, operator) },
		func() (*store.Heat, error) { return e.Heats().RecordCoilReceived(ctx, h.ID, heat.CheckpointInput{}, operator) },
		func() (*store.Heat, error) { return e.Heats().RecordCoilInstalled(ctx, h.ID, heat.CheckpointInput{}, operator) },
		func() (*store.Heat, error) { return e.Heats().ValidateChecklist(ctx, h.ID, operator) },
		func() (*store.Heat, error) { return e.Heats().BeginProduction(ctx, h.ID, operator) },
	}
	for i, fn := range steps {
		if _, err := fn(); err != nil {
			t.Fatalf("heat step %d: %v", i, err)
		}
	}

	p, err := e.Pipes().CreatePipe(ctx, h.ID, progression.NewPipe{Number: 1}, operator)
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	last := e.Catalog().Len()
	for n := 1; n <= last; n++ {
		if _, err := e.Pipes().StartStep(ctx, p.ID, n, progression.StepInput{}, operator); err != nil {
			t.Fatalf("start %d: %v", n, err)
		}
		in := progression.Completion{Outcome: progression.OutcomeValidated}
		if n == last {
			in.Decision = progression.DecisionAccept
		}
		if _, err := e.Pipes().CompleteStep(ctx, p.ID, n, in, operator); err != nil {
			t.Fatalf("complete %d: %v", n, err)
		}
	}
	if _, err := e.Heats().Complete(ctx, h.ID, operator); err != nil {
		t.Fatalf("complete heat: %v", err)
	}

	if got := rec.count(EventStepTransitioned); got != 2*last {
		t.Errorf("step events = %d, want %d", got, 2*last)
	}
	if got := rec.count(EventPipeDecisionFinalized); got != 1 {
		t.Errorf("decision events = %d, want 1", got)
	}
	if got := rec.count(EventHeatDelayReported); got != 0 {
		t.Errorf("delay events = %d, want 0", got)
	}
	// created, in_use, exhausted
	if got := rec.count(EventCoilStatusChanged); got != 3 {
		t.Errorf("coil events = %d, want 3", got)
	}

	board, err := e.Board().HeatBoard(ctx, h.ID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Pipes) != 1 || board.Pipes[0].Status != progression.PipeCompleted || board.Pipes[0].Decision != progression.DecisionAccept {
		t.Errorf("board = %+v", board)
	}

	pending, _ := e.DB().ListPendingOutbox(ctx, 10, 10)
	if len(pending) != 1 || pending[0].MsgType != protocol.TypePipeDecisionFinalized {
		t.Errorf("outbox = %+v", pending)
	}
	unread, _ := e.Notifications().ListUnread(ctx, 10)
	if len(unread) != 1 {
		t.Errorf("notifications = %d, want 1", len(unread))
	}

	entries, _ := e.Audit().List(ctx, 500)
	if len(entries) == 0 {
		t.Error("expected audit entries")
	}
}

func TestStartRefusesInvalidCatalog(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if _, err := LoadCatalog(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Reseeding fills missing rows but never rewrites existing ones.
	if _, err := db.ExecContext(ctx, `UPDATE step_definitions SET code='grinding' WHERE number=5`); err != nil {
		t.Fatalf("corrupt step: %v", err)
	}
	e := New(Config{AppConfig: config.Defaults(), DB: db, LogFunc: t.Logf})
	err := e.Start(ctx)
	if !errors.Is(err, workflow.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration", err)
	}
}

func TestEventBusFilterAndPanic(t *testing.T) {
	var logged int
	bus := NewEventBus(func(string, ...any) { logged++ })
	var got []EventType
	bus.Subscribe(func(Event) { panic("boom") })
	id := bus.SubscribeTypes(func(e Event) { got = append(got, e.Type) }, EventCriticalAlert)

	bus.Emit(Event{Type: EventHeatTransitioned})
	bus.Emit(Event{Type: EventCriticalAlert})
	if len(got) != 1 || got[0] != EventCriticalAlert {
		t.Errorf("got = %v", got)
	}
	if logged != 2 {
		t.Errorf("logged = %d, want 2 recovered panics", logged)
	}

	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventCriticalAlert})
	if len(got) != 1 {
		t.Errorf("unsubscribed handler still called")
	}
}

func TestEventTypeNames(t *testing.T) {
	if EventPipeDecisionFinalized.String() != "pipe-decision" {
		t.Errorf("name = %s", EventPipeDecisionFinalized)
	}
	if EventType(999).String() != "unknown" {
		t.Errorf("unknown name = %s", EventType(999))
	}
}
