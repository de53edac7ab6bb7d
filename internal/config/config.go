// Package config holds the immutable run configuration and the logger
// constructor.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/JSONOrona/redis-shard/internal/hash"
	rserr "github.com/JSONOrona/redis-shard/pkg/errors"
)

// Run describes one migration run. The four coordinates (source,
// destination, slot range) fully determine it; nothing is persisted across
// runs. The value is built once by the CLI layer and never mutated.
type Run struct {
	// SourceAddr is the host:port of the node currently owning the slots.
	SourceAddr string

	// DestAddr is the host:port of the node receiving the slots.
	DestAddr string

	// SlotStart and SlotEnd bound the migrated range, inclusive.
	SlotStart uint16
	SlotEnd   uint16

	// MoveTimeout bounds each per-key move command.
	MoveTimeout time.Duration

	// CommandTimeout bounds each administrative command round trip.
	CommandTimeout time.Duration

	// StatusAddr, if set, serves /status and /metrics during the run.
	StatusAddr string
}

// Validate checks the run coordinates before any node is contacted.
func (r Run) Validate() error {
	if _, _, err := net.SplitHostPort(r.SourceAddr); err != nil {
		return fmt.Errorf("source address %q: %w", r.SourceAddr, err)
	}
	if _, _, err := net.SplitHostPort(r.DestAddr); err != nil {
		return fmt.Errorf("destination address %q: %w", r.DestAddr, err)
	}
	if r.SourceAddr == r.DestAddr {
		return fmt.Errorf("source and destination are the same node: %s", r.SourceAddr)
	}
	if r.SlotStart > r.SlotEnd || r.SlotEnd >= hash.SlotCount {
		return fmt.Errorf("%w: %d-%d", rserr.ErrInvalidSlotRange, r.SlotStart, r.SlotEnd)
	}
	return nil
}

// DestHostPort splits the destination address for commands that take host
// and port separately.
func (r Run) DestHostPort() (string, int, error) {
	host, portStr, err := net.SplitHostPort(r.DestAddr)
	if err != nil {
		return "", 0, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("destination port %q: %w", portStr, err)
	}
	return host, port, nil
}
