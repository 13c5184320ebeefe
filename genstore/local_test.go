package genstore

import (
	"testing"
	"time"
)

func TestLocalSnapshotManyIncludesAllAndZeroForMissing(t *testing.T) {
	s := NewLocal()

	keys := []string{"a", "b", "c"}
	// bump b twice -> gen=2
	s.Bump("b")
	s.Bump("b")

	got := s.SnapshotMany(keys)
	if got["a"] != 0 || got["b"] != 2 || got["c"] != 0 {
		t.Fatalf("got=%v want a=0,b=2,c=0", got)
	}
}

func TestLocalSnapshotManyDoesNotMutateInput(t *testing.T) {
	s := NewLocal()

	in := []string{"x", "y"}
	cp := append([]string(nil), in...)
	_ = s.SnapshotMany(in)
	for i := range in {
		if in[i] != cp[i] {
			t.Fatalf("input mutated at %d: %q -> %q", i, cp[i], in[i])
		}
	}
}

func TestLocalBumpIsMonotonicAndStamped(t *testing.T) {
	s := NewLocal()
	if !s.UpdatedAt("r").IsZero() {
		t.Fatalf("UpdatedAt should be zero before first bump")
	}

	before := time.Now()
	var last uint64
	for i := 0; i < 5; i++ {
		g := s.Bump("r")
		if g <= last {
			t.Fatalf("gen went backwards: %d after %d", g, last)
		}
		last = g
	}
	if s.Snapshot("r") != 5 {
		t.Fatalf("Snapshot=%d want 5", s.Snapshot("r"))
	}
	if s.UpdatedAt("r").Before(before) {
		t.Fatalf("UpdatedAt not refreshed by Bump")
	}
}
