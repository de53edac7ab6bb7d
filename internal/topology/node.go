// Package topology builds point-in-time snapshots of cluster membership
// from the nodes' own view of the cluster.
package topology

import (
	"fmt"
)

type Role int

const (
	RoleMaster Role = iota
	RoleReplica
)

func (r Role) String() string {
	if r == RoleMaster {
		return "master"
	}
	return "replica"
}

// Node is one cluster member as reported by CLUSTER NODES. Identity is the
// ID; the address is mutable metadata that may change across restarts.
type Node struct {
	ID          string
	IP          string
	Port        int
	ClusterPort int

	Role     Role
	MasterID string

	Myself bool
	Linked bool
}

func (n Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.IP, n.Port)
}

func (n Node) IsMaster() bool {
	return n.Role == RoleMaster
}
