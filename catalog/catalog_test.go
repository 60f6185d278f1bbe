package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

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

func TestSeedAndLoad(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// A second boot must not duplicate anything.
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	cat, err := Load(ctx, db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cat.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cat.Len() != StepCount {
		t.Fatalf("Len = %d, want %d", cat.Len(), StepCount)
	}
	steps := cat.ListSteps()
	for i, s := range steps {
		if s.Number != i+1 {
			t.Errorf("steps[%d].Number = %d", i, s.Number)
		}
	}
	if got := len(cat.ListDelayReasons("")); got != len(DefaultDelayReasons()) {
		t.Errorf("reasons = %d, want %d", got, len(DefaultDelayReasons()))
	}
}

func TestDefaultMandatoryFlags(t *testing.T) {
	cat := New(DefaultSteps(), nil)
	for _, s := range cat.ListSteps() {
		wantOptional := s.Code == Ultrasonic || s.Code == Marking
		if s.Mandatory == wantOptional {
			t.Errorf("step %d (%s) mandatory = %v", s.Number, s.Code, s.Mandatory)
		}
	}
	s, ok := cat.Step(6)
	if !ok || s.Code != Radiography {
		t.Errorf("Step(6) = %+v, %v", s, ok)
	}
	if s.Standard.Minutes() != 40 {
		t.Errorf("radiography standard = %v", s.Standard)
	}
	if _, ok := cat.Step(13); ok {
		t.Error("Step(13) should not exist")
	}
}

func TestValidateRejects(t *testing.T) {
	without := func(n int) []store.StepDefinition {
		var out []store.StepDefinition
		for _, d := range DefaultSteps() {
			if d.Number != n {
				out = append(out, d)
			}
		}
		return out
	}
	mutate := func(f func(defs []store.StepDefinition)) []store.StepDefinition {
		defs := DefaultSteps()
		f(defs)
		return defs
	}

	tests := []struct {
		name    string
		steps   []store.StepDefinition
		reasons []store.DelayReason
	}{
		{"empty", nil, nil},
		{"gap", without(5), nil},
		{"truncated", without(12), nil},
		{"duplicate number", mutate(func(d []store.StepDefinition) { d[4].Number = 4 }), nil},
		{"unknown code", mutate(func(d []store.StepDefinition) { d[2].Code = "galvanizing" }), nil},
		{"swapped codes", mutate(func(d []store.StepDefinition) {
			d[0].Code, d[1].Code = d[1].Code, d[0].Code
		}), nil},
		{"negative standard", mutate(func(d []store.StepDefinition) { d[3].StandardMin = -5 }), nil},
		{"bad category", DefaultSteps(), []store.DelayReason{{ID: 1, Code: "x", Category: "weather", Checkpoint: "step"}}},
		{"bad checkpoint", DefaultSteps(), []store.DelayReason{{ID: 1, Code: "x", Category: "other", Checkpoint: "shipping"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := New(tc.steps, tc.reasons).Validate()
			if !errors.Is(err, workflow.ErrConfiguration) {
				t.Fatalf("err = %v, want configuration error", err)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var c *Catalog
	if !errors.Is(c.Validate(), workflow.ErrConfiguration) {
		t.Fatal("nil catalog should be a configuration error")
	}
}

func TestDelayReasonsByCheckpoint(t *testing.T) {
	reasons := []store.DelayReason{
		{ID: 1, Code: "a", Category: "logistics", Checkpoint: "reception", Active: true},
		{ID: 2, Code: "b", Category: "technical", Checkpoint: "installation", Active: true},
		{ID: 3, Code: "c", Category: "technical", Checkpoint: "step", Active: true},
		{ID: 4, Code: "d", Category: "other", Checkpoint: "step", Active: false},
	}
	cat := New(DefaultSteps(), reasons)

	if got := cat.ListDelayReasons(CheckpointStep); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("step reasons = %+v", got)
	}
	if got := cat.ListDelayReasons(""); len(got) != 3 {
		t.Errorf("all active = %d, want 3", len(got))
	}

	tests := []struct {
		id   int64
		cp   Checkpoint
		want bool
	}{
		{1, CheckpointReception, true},
		{1, CheckpointInstallation, false},
		{2, CheckpointInstallation, true},
		{3, CheckpointStep, true},
		{4, CheckpointStep, false},
		{99, CheckpointStep, false},
	}
	for _, tc := range tests {
		if got := cat.ReasonApplies(tc.id, tc.cp); got != tc.want {
			t.Errorf("ReasonApplies(%d, %s) = %v, want %v", tc.id, tc.cp, got, tc.want)
		}
	}
}

func TestStepCodeValid(t *testing.T) {
	if !HydroTest.Valid() {
		t.Error("hydro_test should be valid")
	}
	if StepCode("painting").Valid() {
		t.Error("painting should not be valid")
	}
	if len(stepOrder) != StepCount {
		t.Errorf("stepOrder has %d entries", len(stepOrder))
	}
}
