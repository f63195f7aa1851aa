package system

import (
	"testing"
	"time"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	got := New().Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestFixedAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 12, 23, 59, 0, 0, time.FixedZone("EST", -5*3600))
	clk := NewFixed(start)
	if clk.Now().Location() != time.UTC || !clk.Now().Equal(start) {
		t.Fatalf("expected UTC instant equal to start, got %v", clk.Now())
	}
	clk.Advance(2 * time.Minute)
	if got := clk.Now().Sub(start); got != 2*time.Minute {
		t.Fatalf("expected two minutes advance, got %v", got)
	}
}
