package topology

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseNodes parses a CLUSTER NODES payload into nodes. Each line is
//
//	<id> <ip:port@cport> <flags> <master> <ping-sent> <pong-recv> <epoch> <link-state> [<slot> ...]
//
// Slot assignments are ignored here; the migration protocol reads slot
// residency with COUNTKEYSINSLOT rather than trusting the gossip view.
func ParseNodes(payload string) ([]Node, error) {
	var nodes []Node
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		node, err := parseNodeLine(line)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseNodeLine(line string) (Node, error) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return Node{}, fmt.Errorf("cluster nodes line: expected 8 fields, got %d: %q", len(fields), line)
	}

	node := Node{ID: fields[0]}

	addr := fields[1]
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		cport, err := strconv.Atoi(addr[at+1:])
		if err != nil {
			return Node{}, fmt.Errorf("cluster nodes line: bad cluster port in %q", addr)
		}
		node.ClusterPort = cport
		addr = addr[:at]
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Node{}, fmt.Errorf("cluster nodes line: bad address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Node{}, fmt.Errorf("cluster nodes line: bad port %q", portStr)
	}
	node.IP = host
	node.Port = port

	node.Role = RoleMaster
	for _, flag := range strings.Split(fields[2], ",") {
		switch flag {
		case "myself":
			node.Myself = true
		case "master":
			node.Role = RoleMaster
		case "replica", "slave":
			node.Role = RoleReplica
		}
	}

	if fields[3] != "-" {
		node.MasterID = fields[3]
	}

	node.Linked = fields[7] == "connected"

	return node, nil
}
