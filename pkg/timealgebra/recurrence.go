package timealgebra

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

// Recurrence wraps a parsed cron expression for the `--schedule` flag on
// `chaoshunter run`: the engine never runs a cycle on the standard cron
// daemon's loop, it only uses the parsed schedule to compute the next N
// cycle start times for the operator to review before committing to a
// recurring run.
type Recurrence struct {
	expr cron.Schedule
	spec string
}

// standardParser accepts the five-field form (minute hour dom month dow),
// the same subset the teacher's original flag documentation assumed.
var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseRecurrence validates spec as a five-field cron expression,
// rejecting anything malformed before a cycle is ever scheduled.
func ParseRecurrence(spec string) (Recurrence, error) {
	sched, err := standardParser.Parse(spec)
	if err != nil {
		return Recurrence{}, ceerrors.New(ceerrors.Internal, "timealgebra", "parse_recurrence",
			fmt.Errorf("invalid --schedule %q: %w", spec, err))
	}
	return Recurrence{expr: sched, spec: spec}, nil
}

// String returns the original cron expression.
func (r Recurrence) String() string { return r.spec }

// Next returns the first n scheduled instants strictly after from, in
// order. Used to print an operator-facing preview of an upcoming
// recurring run; the engine's own loop still just sleeps until each one
// and re-invokes Run.
func (r Recurrence) Next(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	cur := from
	for i := 0; i < n; i++ {
		cur = r.expr.Next(cur)
		out = append(out, cur)
	}
	return out
}
