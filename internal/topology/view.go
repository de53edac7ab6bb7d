package topology

import (
	"context"
	"time"

	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	rserr "github.com/JSONOrona/redis-shard/pkg/errors"
)

// View is a read-only snapshot of cluster membership as of FetchedAt. It
// may be stale by the time later commands run; id lookups racing with
// membership changes are the caller's problem to tolerate.
type View struct {
	Nodes     []Node
	FetchedAt time.Time
}

// Discover queries the node at entryAddr for its view of the cluster.
func Discover(ctx context.Context, client nodeclient.Client, entryAddr string) (*View, error) {
	payload, err := client.Nodes(ctx, entryAddr)
	if err != nil {
		return nil, err
	}
	nodes, err := ParseNodes(payload)
	if err != nil {
		return nil, err
	}
	return &View{Nodes: nodes, FetchedAt: time.Now()}, nil
}

// ResolveID maps a host:port to the id of the node currently at that
// address. Addresses are the human input; ids are what slot-state commands
// need.
func (v *View) ResolveID(addr string) (string, error) {
	for _, node := range v.Nodes {
		if node.Addr() == addr {
			return node.ID, nil
		}
	}
	return "", &rserr.NotFoundError{Addr: addr}
}

// NodeByAddr returns the node currently at addr.
func (v *View) NodeByAddr(addr string) (Node, error) {
	for _, node := range v.Nodes {
		if node.Addr() == addr {
			return node, nil
		}
	}
	return Node{}, &rserr.NotFoundError{Addr: addr}
}

// NodeByID returns the node with the given id.
func (v *View) NodeByID(id string) (Node, bool) {
	for _, node := range v.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// Masters returns every master in the snapshot.
func (v *View) Masters() []Node {
	var masters []Node
	for _, node := range v.Nodes {
		if node.IsMaster() {
			masters = append(masters, node)
		}
	}
	return masters
}
