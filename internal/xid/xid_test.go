package xid

import (
	"strings"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := New("run")
	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("id %q missing prefix", id)
	}
}

func TestNewDoesNotRepeat(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := New("audit")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
