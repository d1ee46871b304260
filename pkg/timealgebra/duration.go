// Package timealgebra implements C4, the Time & Schedule Algebra: parsing
// and formatting human durations, and the sweep-merge grouping algorithm
// that turns a flat set of (grace_period, duration) tasks into the nested
// Serial/Parallel/Suspend tree the Experiment Compiler (C9) renders.
package timealgebra

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tokenRe = regexp.MustCompile(`([0-9]+)([smhd])`)

// ParseSeconds parses a concatenated duration string ("2m30s", "1h", "0")
// into whole seconds. The literal "0" is accepted as a special case
// meaning zero duration.
func ParseSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	matches := tokenRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("timealgebra: invalid duration %q", s)
	}

	// Reject trailing garbage: the matched tokens must cover the whole
	// string, otherwise something like "5mx" would silently parse as 5m.
	var consumed int
	for _, m := range matches {
		consumed += len(m[0])
	}
	if consumed != len(s) {
		return 0, fmt.Errorf("timealgebra: invalid duration %q", s)
	}

	total := 0
	for _, m := range matches {
		value, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("timealgebra: invalid duration %q: %w", s, err)
		}
		switch m[2] {
		case "s":
			total += value
		case "m":
			total += value * 60
		case "h":
			total += value * 3600
		case "d":
			total += value * 86400
		}
	}
	return total, nil
}

// Format emits the canonical "XdYhZmWs" representation, eliding zero
// components. A zero duration formats as "0".
func Format(seconds int) string {
	if seconds <= 0 {
		return "0"
	}

	d := seconds / 86400
	seconds %= 86400
	h := seconds / 3600
	seconds %= 3600
	m := seconds / 60
	s := seconds % 60

	var b strings.Builder
	if d > 0 {
		fmt.Fprintf(&b, "%dd", d)
	}
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if s > 0 {
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}
