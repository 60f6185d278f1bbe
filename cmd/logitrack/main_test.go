package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"logitrack/config"
	"logitrack/protocol"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// tempConfig writes a config pointing at a fresh SQLite file.
func tempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(dir, "logitrack.db")
	path := filepath.Join(dir, "logitrack.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "logitrack dev") || !strings.Contains(out, "commit: none") {
		t.Errorf("output = %q", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"serve", "catalog", "purge", "config", "watch", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing %q", sub)
		}
	}
}

func TestCatalogCheck(t *testing.T) {
	path := tempConfig(t)
	out, err := run(t, "catalog", "check", "--config", path)
	if err != nil {
		t.Fatalf("catalog check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "catalog ok: 12 steps") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "hydro_test") {
		t.Errorf("step table missing from output: %q", out)
	}
}

func TestPurge(t *testing.T) {
	path := tempConfig(t)
	out, err := run(t, "purge", "-c", path)
	if err != nil {
		t.Fatalf("purge: %v\n%s", err, out)
	}
	if !strings.Contains(out, "purged 0 notifications, 0 outbox messages") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.yaml")
	if _, err := run(t, "config", "init", "-c", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Messaging.EventsTopic != "logitrack.events" {
		t.Errorf("events topic = %q", cfg.Messaging.EventsTopic)
	}
	if _, err := run(t, "config", "init", "-c", path); err == nil {
		t.Error("expected refusal to overwrite")
	}
	if _, err := run(t, "config", "init", "-c", path, "--force"); err != nil {
		t.Errorf("forced init: %v", err)
	}
}

func TestPrintHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	ing := protocol.NewIngestor(&printHandler{out: buf}, protocol.StationFilter("mill-1"))
	src := protocol.Address{Role: protocol.RoleTracker, Station: "mill-1"}

	env, _ := protocol.NewEnvelope(protocol.TypeHeatDelayReported, src, &protocol.HeatDelayReported{HeatID: 4, Checkpoint: "reception", Minutes: 12, Reason: "rec_supplier_late"})
	data, _ := env.Encode()
	ing.HandleRaw(data)

	other, _ := protocol.NewEnvelope(protocol.TypeCriticalAlert, protocol.Address{Role: protocol.RoleTracker, Station: "mill-2"}, &protocol.CriticalAlert{Message: "x"})
	data, _ = other.Encode()
	ing.HandleRaw(data)

	out := buf.String()
	if !strings.Contains(out, "heat 4 reception late 12 min reason=rec_supplier_late") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "ALERT") {
		t.Errorf("filtered station printed: %q", out)
	}
}
