// Package nodeclient issues single administrative or data commands to
// cluster nodes over the Redis serialization protocol. Every call is one
// blocking round trip on its own connection.
package nodeclient

import (
	"context"
	"time"
)

// Client is the capability boundary the migration protocol needs from the
// cluster: send one command to one address, get a typed reply or a failure.
//
// Errors are classified: a node that cannot be reached (or times out)
// yields *errors.ConnectivityError, a node that rejects the command yields
// *errors.CommandError.
type Client interface {
	// MyID returns the node id of the node at addr.
	MyID(ctx context.Context, addr string) (string, error)

	// Nodes returns the raw CLUSTER NODES payload from the node at addr.
	Nodes(ctx context.Context, addr string) (string, error)

	// Meet tells the node at addr to handshake with peer so gossip
	// propagates cluster membership.
	Meet(ctx context.Context, addr, peerIP string, peerPort int) error

	// SetSlotImporting marks slot as importing on the destination,
	// crediting sourceID as the current owner.
	SetSlotImporting(ctx context.Context, addr string, slot uint16, sourceID string) error

	// SetSlotMigrating marks slot as migrating on the source, crediting
	// destID as the new owner.
	SetSlotMigrating(ctx context.Context, addr string, slot uint16, destID string) error

	// SetSlotOwner assigns slot to ownerID on the node at addr.
	SetSlotOwner(ctx context.Context, addr string, slot uint16, ownerID string) error

	// ClearSlotState clears any importing/migrating flag for slot on the
	// node at addr, restoring the stable state.
	ClearSlotState(ctx context.Context, addr string, slot uint16) error

	// CountKeysInSlot returns the number of keys resident in slot on the
	// node at addr.
	CountKeysInSlot(ctx context.Context, addr string, slot uint16) (int, error)

	// KeysInSlot returns up to limit key names resident in slot.
	KeysInSlot(ctx context.Context, addr string, slot uint16, limit int) ([]string, error)

	// MoveKey atomically moves one key from the node at addr to the
	// destination host:port, with a per-key timeout. Moving a key that is
	// already absent is treated as success.
	MoveKey(ctx context.Context, addr, destHost string, destPort int, key string, timeout time.Duration) error
}
