package model

import "github.com/google/uuid"

// NewRecordID mints a disambiguation suffix for a history record (an
// Analysis, a Reconfiguration) or a fresh work_dir name, per spec.md 5's
// "every cycle has a disjoint work_dir" rule: collisions are avoided by
// construction rather than by a retry-on-conflict loop.
func NewRecordID() string {
	return uuid.NewString()
}
