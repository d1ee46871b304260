package timealgebra

import (
	"testing"
	"time"
)

func TestParseRecurrenceRejectsGarbage(t *testing.T) {
	if _, err := ParseRecurrence("not a cron expression"); err == nil {
		t.Fatal("expected an error for a malformed schedule")
	}
}

func TestParseRecurrenceAcceptsFiveField(t *testing.T) {
	r, err := ParseRecurrence("0 */6 * * *")
	if err != nil {
		t.Fatalf("ParseRecurrence() error = %v", err)
	}
	if r.String() != "0 */6 * * *" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestNextReturnsOrderedInstants(t *testing.T) {
	r, err := ParseRecurrence("0 0 * * *")
	if err != nil {
		t.Fatalf("ParseRecurrence() error = %v", err)
	}
	from := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	next := r.Next(from, 3)
	if len(next) != 3 {
		t.Fatalf("len(next) = %d, want 3", len(next))
	}
	for i := 1; i < len(next); i++ {
		if !next[i].After(next[i-1]) {
			t.Errorf("next[%d] = %v is not after next[%d] = %v", i, next[i], i-1, next[i-1])
		}
	}
}
