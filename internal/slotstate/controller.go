// Package slotstate drives the two-sided importing/migrating handshake for
// one slot.
package slotstate

import (
	"context"

	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	"github.com/JSONOrona/redis-shard/internal/topology"
)

// Controller marks slots importing or migrating on the two endpoints of a
// migration, and clears those flags on rollback.
//
// The controller does not enforce call order. Callers must set the
// importing flag on the destination before the migrating flag on the
// source; reversing the order opens a window where a slot has a migrating
// source but no importing destination, and clients following redirects see
// inconsistent errors.
type Controller struct {
	client nodeclient.Client
}

func NewController(client nodeclient.Client) *Controller {
	return &Controller{client: client}
}

// BeginImport marks slot as importing on the destination, crediting
// sourceID as the current owner. Must precede BeginMigrate.
func (c *Controller) BeginImport(ctx context.Context, dest topology.Node, slot uint16, sourceID string) error {
	return c.client.SetSlotImporting(ctx, dest.Addr(), slot, sourceID)
}

// BeginMigrate marks slot as migrating on the source, crediting destID as
// the new owner.
func (c *Controller) BeginMigrate(ctx context.Context, source topology.Node, slot uint16, destID string) error {
	return c.client.SetSlotMigrating(ctx, source.Addr(), slot, destID)
}

// ClearStable clears any importing/migrating flag for slot on the node,
// restoring the stable state. It is the rollback primitive for migrations
// aborted before ownership was reassigned; it guarantees nothing beyond
// clearing the local flags.
func (c *Controller) ClearStable(ctx context.Context, node topology.Node, slot uint16) error {
	return c.client.ClearSlotState(ctx, node.Addr(), slot)
}
