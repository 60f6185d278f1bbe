package logging

import "testing"

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "PRODUCTION", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		var fn LogFunc = l.Printf
		fn("logging: mode %s ok", mode)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Printf("discarded %d", 1)
	l.Sync()
}
