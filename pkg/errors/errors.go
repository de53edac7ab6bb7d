// Package errors defines the error kinds shared across the resharding tool.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for cluster commands.
var (
	// ErrNodeNotFound indicates an expected node id or address is absent
	// from the discovered topology.
	ErrNodeNotFound = errors.New("node not found in topology")

	// ErrInvalidSlotRange indicates a slot range outside [0, 16383] or
	// with start greater than end.
	ErrInvalidSlotRange = errors.New("invalid slot range")

	// ErrStopped indicates the run was stopped between slots.
	ErrStopped = errors.New("migration stopped")
)

// ConnectivityError reports a node that could not be reached or timed out.
type ConnectivityError struct {
	Addr string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("node %s unreachable: %v", e.Addr, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// CommandError reports a command the node accepted on the wire but rejected,
// e.g. SETSLOT with a bad precondition. Reason is the node's error line.
type CommandError struct {
	Addr    string
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("node %s rejected %q: %s", e.Addr, e.Command, e.Reason)
}

// PartialMigrationError reports a slot whose key transfer stopped partway.
// The counts are preserved so an operator knows exactly how much repair the
// slot needs.
type PartialMigrationError struct {
	Slot          uint16
	KeysMoved     int
	KeysRemaining int
	Cause         error
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("slot %d partially migrated: %d moved, %d remaining: %v",
		e.Slot, e.KeysMoved, e.KeysRemaining, e.Cause)
}

func (e *PartialMigrationError) Unwrap() error { return e.Cause }

// NotFoundError reports an address that resolved to no live node id.
type NotFoundError struct {
	Addr string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no node with address %s: %v", e.Addr, ErrNodeNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNodeNotFound }

// IsConnectivity reports whether err is, or wraps, a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsCommand reports whether err is, or wraps, a CommandError.
func IsCommand(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
