// Package ownership broadcasts final slot assignments to the cluster's
// masters.
package ownership

import (
	"context"

	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	"github.com/JSONOrona/redis-shard/internal/topology"
)

// Propagator announces a slot's new owner to every master independently,
// collecting per-node outcomes instead of failing fast. One unreachable
// master must not block the migration; its stale view is reported so an
// operator can reconcile later.
type Propagator struct {
	client nodeclient.Client
}

func NewPropagator(client nodeclient.Client) *Propagator {
	return &Propagator{client: client}
}

// Announce assigns slot to destID on every given master, including the
// migration's own source and destination. The result maps node id to the
// command outcome, nil for success. An empty master set is a no-op success.
func (p *Propagator) Announce(ctx context.Context, masters []topology.Node, slot uint16, destID string) map[string]error {
	results := make(map[string]error, len(masters))
	for _, master := range masters {
		results[master.ID] = p.client.SetSlotOwner(ctx, master.Addr(), slot, destID)
	}
	return results
}
