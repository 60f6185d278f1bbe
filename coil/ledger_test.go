package coil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"logitrack/audit"
	"logitrack/config"
	"logitrack/store"
	"logitrack/workflow"
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
	mu      sync.Mutex
	changes []Change
}

func (m *mockEmitter) EmitCoilStatusChanged(coilID int64, code, oldStatus, newStatus string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, Change{CoilID: coilID, Code: code, From: oldStatus, To: newStatus})
}

var (
	now   = time.Date(2026, 5, 11, 7, 0, 0, 0, time.UTC)
	clerk = workflow.Actor{ID: 3, DisplayName: "Nadia S.", Role: "storekeeper"}
)

func testLedger(t *testing.T) (*Ledger, *store.DB, *mockEmitter) {
	t.Helper()
	db := testDB(t)
	em := &mockEmitter{}
	l := NewLedger(db, audit.NewRecorder(db, t.Logf), em, t.Logf)
	l.SetClock(func() time.Time { return now })
	return l, db, em
}

func TestCreateAndGet(t *testing.T) {
	l, _, em := testLedger(t)
	ctx := context.Background()

	c, err := l.Create(ctx, NewCoil{Code: " C-778 ", Thickness: 14.3, Width: 1600, Weight: 24500, Supplier: "Sider", Grade: "X70"}, clerk)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Code != "C-778" || c.Status != StatusInStock {
		t.Errorf("coil = %+v", c)
	}
	got, err := l.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CreatedByName != "Nadia S." || got.Weight != 24500 {
		t.Errorf("got = %+v", got)
	}
	if len(em.changes) != 1 || em.changes[0].To != StatusInStock {
		t.Errorf("events = %+v", em.changes)
	}

	if _, err := l.Create(ctx, NewCoil{Code: "C-778"}, clerk); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("duplicate code: err = %v, want conflict", err)
	}
	if _, err := l.Get(ctx, 999); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("missing coil: err = %v, want not found", err)
	}
}

func TestCreateValidation(t *testing.T) {
	l, _, _ := testLedger(t)
	ctx := context.Background()
	tests := []struct {
		name  string
		in    NewCoil
		actor workflow.Actor
	}{
		{"blank code", NewCoil{Code: "  "}, clerk},
		{"negative weight", NewCoil{Code: "C-1", Weight: -1}, clerk},
		{"anonymous actor", NewCoil{Code: "C-2"}, workflow.Actor{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Create(ctx, tc.in, tc.actor); !errors.Is(err, workflow.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestForwardOnlyLifecycle(t *testing.T) {
	l, _, em := testLedger(t)
	ctx := context.Background()
	c, _ := l.Create(ctx, NewCoil{Code: "C-10"}, clerk)

	if _, err := l.Transition(ctx, c.ID, StatusExhausted, clerk); !errors.Is(err, workflow.ErrOutOfOrder) {
		t.Fatalf("in_stock -> exhausted: err = %v, want out of order", err)
	}
	got, err := l.Transition(ctx, c.ID, StatusInUse, clerk)
	if err != nil {
		t.Fatalf("mark in use: %v", err)
	}
	if got.Status != StatusInUse {
		t.Errorf("status = %s", got.Status)
	}
	if _, err := l.Transition(ctx, c.ID, StatusInUse, clerk); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("in_use twice: err = %v, want conflict", err)
	}
	if _, err := l.Transition(ctx, c.ID, StatusExhausted, clerk); err != nil {
		t.Fatalf("mark exhausted: %v", err)
	}
	for _, to := range []string{StatusInUse, StatusExhausted, StatusInStock} {
		if _, err := l.Transition(ctx, c.ID, to, clerk); !errors.Is(err, workflow.ErrOutOfOrder) {
			t.Errorf("exhausted -> %s: err = %v, want out of order", to, err)
		}
	}
	if _, err := l.Transition(ctx, 4040, StatusInUse, clerk); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("unknown coil: err = %v, want not found", err)
	}
	if _, err := l.Transition(ctx, c.ID, "melted", clerk); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("unknown status: err = %v, want validation", err)
	}

	want := []string{StatusInStock, StatusInUse, StatusExhausted}
	if len(em.changes) != len(want) {
		t.Fatalf("events = %+v", em.changes)
	}
	for i, w := range want {
		if em.changes[i].To != w {
			t.Errorf("event %d to = %s, want %s", i, em.changes[i].To, w)
		}
	}
}

func bindHeat(t *testing.T, db *store.DB, coilID int64) {
	t.Helper()
	ctx := context.Background()
	err := db.Update(ctx, func(tx *store.Tx) error {
		return tx.CreateHeat(ctx, &store.Heat{Number: "H-BIND", CoilID: &coilID, Status: "in_progress", CreatedAt: now, UpdatedAt: now})
	})
	if err != nil {
		t.Fatalf("bind heat: %v", err)
	}
}

func TestReleaseRefusedWhileReferenced(t *testing.T) {
	l, db, _ := testLedger(t)
	ctx := context.Background()
	c, _ := l.Create(ctx, NewCoil{Code: "C-20"}, clerk)
	l.Transition(ctx, c.ID, StatusInUse, clerk)
	bindHeat(t, db, c.ID)

	if _, err := l.Transition(ctx, c.ID, StatusInStock, clerk); !errors.Is(err, workflow.ErrConflict) {
		t.Fatalf("release referenced coil: err = %v, want conflict", err)
	}
}

func TestReleaseIgnoresCancelledHeatsWithoutPipes(t *testing.T) {
	l, db, _ := testLedger(t)
	ctx := context.Background()
	idle, _ := l.Create(ctx, NewCoil{Code: "C-22"}, clerk)
	worked, _ := l.Create(ctx, NewCoil{Code: "C-23"}, clerk)
	for _, c := range []*store.Coil{idle, worked} {
		l.Transition(ctx, c.ID, StatusInUse, clerk)
	}
	err := db.Update(ctx, func(tx *store.Tx) error {
		for i, c := range []*store.Coil{idle, worked} {
			id := c.ID
			h := &store.Heat{Number: fmt.Sprintf("H-CXL-%d", i), CoilID: &id, Status: "cancelled", CreatedAt: now, UpdatedAt: now}
			if err := tx.CreateHeat(ctx, h); err != nil {
				return err
			}
			if c == worked {
				p := &store.Pipe{HeatID: h.ID, Number: 1, CurrentStep: 1, Status: "in_production", CreatedAt: now, UpdatedAt: now}
				if err := tx.CreatePipe(ctx, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed cancelled heats: %v", err)
	}

	if _, err := l.Transition(ctx, idle.ID, StatusInStock, clerk); err != nil {
		t.Errorf("release coil of cancelled heat: %v", err)
	}
	if _, err := l.Transition(ctx, worked.ID, StatusInStock, clerk); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("release coil that produced pipes: err = %v, want conflict", err)
	}
	if err := l.Delete(ctx, idle.ID, clerk); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("delete coil referenced by cancelled heat: err = %v, want conflict", err)
	}
}

func TestReleaseUnreferenced(t *testing.T) {
	l, _, _ := testLedger(t)
	ctx := context.Background()
	c, _ := l.Create(ctx, NewCoil{Code: "C-21"}, clerk)
	l.Transition(ctx, c.ID, StatusInUse, clerk)

	got, err := l.Transition(ctx, c.ID, StatusInStock, clerk)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if got.Status != StatusInStock {
		t.Errorf("status = %s", got.Status)
	}
	// Releasing again is a no-op.
	if _, err := l.Transition(ctx, c.ID, StatusInStock, clerk); err != nil {
		t.Errorf("second release: %v", err)
	}
}

func TestDelete(t *testing.T) {
	l, db, _ := testLedger(t)
	ctx := context.Background()
	free, _ := l.Create(ctx, NewCoil{Code: "C-30"}, clerk)
	used, _ := l.Create(ctx, NewCoil{Code: "C-31"}, clerk)
	bindHeat(t, db, used.ID)

	if err := l.Delete(ctx, used.ID, clerk); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("delete referenced: err = %v, want conflict", err)
	}
	if err := l.Delete(ctx, free.ID, clerk); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.Get(ctx, free.ID); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("deleted coil still readable: %v", err)
	}
	if err := l.Delete(ctx, free.ID, clerk); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("delete twice: err = %v, want not found", err)
	}

	entries, _ := audit.NewRecorder(db, nil).ListEntity(ctx, audit.EntityCoil, free.ID)
	if len(entries) != 2 || entries[1].Action != "coil.deleted" {
		t.Errorf("audit = %+v", entries)
	}
}
