package notify

import (
	"testing"

	"github.com/go-logr/logr"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

func TestNotifyNoopWithoutWebhook(t *testing.T) {
	n := New("", logr.Discard())
	// Must not panic or attempt any network call.
	n.Notify(model.CycleState{Phase: model.PhaseDone})
}

func TestSummaryLinePrefersErrorOnFail(t *testing.T) {
	line := summaryLine(model.CycleState{Phase: model.PhaseFail, Error: "boom", Summary: "ignored"})
	if line != "error: boom" {
		t.Errorf("summaryLine = %q", line)
	}
}

func TestSummaryLineUsesSummaryOnDone(t *testing.T) {
	line := summaryLine(model.CycleState{Phase: model.PhaseDone, Summary: "all steady states held"})
	if line != "all steady states held" {
		t.Errorf("summaryLine = %q", line)
	}
}

func TestSummaryLineFallsBackWhenSummaryEmpty(t *testing.T) {
	line := summaryLine(model.CycleState{Phase: model.PhaseDone})
	if line != "no summary available" {
		t.Errorf("summaryLine = %q", line)
	}
}
