// Package notify posts a best-effort Slack message when a cycle reaches
// DONE or FAIL. A notification failure is logged and swallowed: it must
// never turn a successful cycle into a failed one, per spec.md 9's
// "external collaborator concern" framing for anything beyond the core
// state machine.
package notify

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/slack-go/slack"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// Notifier posts cycle-completion messages to one Slack webhook.
type Notifier struct {
	WebhookURL string
	Log        logr.Logger
}

// New builds a Notifier. webhookURL == "" disables notification: Notify
// becomes a no-op, so wiring a Notifier is always safe even when no
// webhook has been configured.
func New(webhookURL string, log logr.Logger) *Notifier {
	return &Notifier{WebhookURL: webhookURL, Log: log}
}

// Notify posts a summary of the final CycleState. Errors are logged, not
// returned: a Slack outage must never affect the cycle's own outcome.
func (n *Notifier) Notify(state model.CycleState) {
	if n.WebhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("chaoshunter cycle %s in %s\n%s", state.Phase, state.WorkDir, summaryLine(state)),
	}
	if err := slack.PostWebhook(n.WebhookURL, msg); err != nil {
		n.Log.Error(err, "failed to post slack notification", "phase", state.Phase)
	}
}

func summaryLine(state model.CycleState) string {
	if state.Phase == model.PhaseFail {
		return fmt.Sprintf("error: %s", state.Error)
	}
	if state.Summary != "" {
		return state.Summary
	}
	return "no summary available"
}
