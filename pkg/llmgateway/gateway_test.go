package llmgateway

import (
	"errors"
	"testing"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

func TestValidateAndUnmarshalRejectsMalformedJSON(t *testing.T) {
	var out map[string]any
	err := validateAndUnmarshal("draft_steady_state", `{"thought": "missing close quote}`, &out)
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
	var ceErr *ceerrors.CEError
	if !errors.As(err, &ceErr) || ceErr.Kind != ceerrors.SchemaFail {
		t.Fatalf("expected SchemaFail CEError, got %v", err)
	}
}

func TestValidateAndUnmarshalAcceptsWellFormedJSON(t *testing.T) {
	var out struct {
		Thought string `json:"thought"`
		Name    string `json:"name"`
	}
	err := validateAndUnmarshal("draft_steady_state", `{"thought": "ok", "name": "pod-count"}`, &out)
	if err != nil {
		t.Fatalf("validateAndUnmarshal: %v", err)
	}
	if out.Name != "pod-count" {
		t.Errorf("Name = %q, want pod-count", out.Name)
	}
}

func TestHistoryCapsWindowAndTracksTruncation(t *testing.T) {
	h := NewHistory[string, string](2)
	h.Add("a", "")
	h.Add("b", "")
	h.Add("c", "")

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	if h.Truncated() != 1 {
		t.Fatalf("Truncated() = %d, want 1", h.Truncated())
	}
	got := h.Entries()
	if got[0].Output != "b" || got[1].Output != "c" {
		t.Errorf("Entries() = %+v, want [b c]", got)
	}
}
