// Package lease implements the engine's external reservation collaborator:
// a thin advisory lock over Redis guarding one (context, namespace,
// project) triple before a cycle is allowed to acquire a work_dir,
// per spec.md 5's shared-resource policy. The lock itself is not part of
// CycleState and the engine never blocks inside it waiting for an owner
// to release — acquisition either succeeds immediately or the caller is
// told the triple is already owned.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

// releaseScript deletes the key only if it still holds the token that
// acquired it, so a lease owner never releases a lock it no longer holds
// (e.g. after its TTL expired and a different process acquired it).
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Manager grants advisory leases over a redis client.
type Manager struct {
	Client *redis.Client
	TTL    time.Duration
}

// New builds a Manager from an address, matching the addr/db pairing
// go-redis's own examples use for a single-node client.
func New(addr string, db int, ttl time.Duration) *Manager {
	return &Manager{
		Client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		TTL:    ttl,
	}
}

// Lease is one held reservation; Release is a no-op once called more
// than once.
type Lease struct {
	mgr   *Manager
	key   string
	token string
}

// key derives the reservation's Redis key from the triple spec.md 5 names
// as the unit of exclusivity.
func key(clusterContext, namespace, project string) string {
	return fmt.Sprintf("chaoshunter:lease:%s:%s:%s", clusterContext, namespace, project)
}

// Acquire attempts to reserve (clusterContext, namespace, project) for
// TTL, returning a ValidationFail-classified error if another process
// already holds it. The caller must call Release before (or promptly
// after) the cycle it guards completes; letting the TTL expire on a
// still-running cycle is a configuration error, not a correctness bug —
// the lease is advisory, not a distributed mutex over the cluster itself.
func (m *Manager) Acquire(ctx context.Context, clusterContext, namespace, project string) (*Lease, error) {
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	k := key(clusterContext, namespace, project)

	ok, err := m.Client.SetNX(ctx, k, token, m.TTL).Result()
	if err != nil {
		return nil, ceerrors.New(ceerrors.TransientInfra, "lease", "acquire", err)
	}
	if !ok {
		return nil, ceerrors.New(ceerrors.ValidationFail, "lease", "acquire",
			fmt.Errorf("(%s, %s, %s) is already reserved by another cycle", clusterContext, namespace, project))
	}
	return &Lease{mgr: m, key: k, token: token}, nil
}

// Release drops the lease if this Manager still holds it.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.mgr.Client.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil {
		return ceerrors.New(ceerrors.TransientInfra, "lease", "release", err)
	}
	return nil
}

// Close releases the underlying redis client's connection pool.
func (m *Manager) Close() error {
	return m.Client.Close()
}
