// Package clustertest runs small in-process cluster nodes speaking just
// enough of the cluster protocol for migration tests: CLUSTER
// MYID/NODES/MEET/SETSLOT/COUNTKEYSINSLOT/GETKEYSINSLOT and MIGRATE.
package clustertest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/redcon"
)

// Cluster is a registry of fake nodes. All nodes appear in every node's
// CLUSTER NODES view, and MIGRATE delivers keys between nodes in process.
// It also keeps a global command log so tests can assert cross-node
// ordering.
type Cluster struct {
	mu    sync.Mutex
	nodes []*Node
	log   []string
}

// NewCluster starts n nodes on loopback and stops them when the test ends.
func NewCluster(t *testing.T, n int) *Cluster {
	t.Helper()

	c := &Cluster{}
	for i := 0; i < n; i++ {
		node, err := c.startNode()
		if err != nil {
			t.Fatalf("start fake node %d: %v", i, err)
		}
		c.nodes = append(c.nodes, node)
	}
	t.Cleanup(c.StopAll)
	return c
}

func (c *Cluster) Node(i int) *Node {
	return c.nodes[i]
}

// Commands returns the global command log, one entry per received command,
// formatted "<nodeID> <command...>".
func (c *Cluster) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

// CommandIndex returns the log position of the first command received by
// node that contains substr, or -1.
func (c *Cluster) CommandIndex(node *Node, substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := node.id + " "
	for i, entry := range c.log {
		if strings.HasPrefix(entry, prefix) && strings.Contains(entry, substr) {
			return i
		}
	}
	return -1
}

func (c *Cluster) StopAll() {
	c.mu.Lock()
	nodes := append([]*Node(nil), c.nodes...)
	c.mu.Unlock()
	for _, node := range nodes {
		node.Stop()
	}
}

func (c *Cluster) record(node *Node, args []string) {
	c.mu.Lock()
	c.log = append(c.log, node.id+" "+strings.Join(args, " "))
	c.mu.Unlock()
}

func (c *Cluster) nodeByHostPort(host string, port int) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, node := range c.nodes {
		if node.host == host && node.port == port {
			return node
		}
	}
	return nil
}

func (c *Cluster) nodesText() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var builder strings.Builder
	for _, node := range c.nodes {
		builder.WriteString(fmt.Sprintf("%s %s:%d@%d master - 0 0 0 connected\n",
			node.id, node.host, node.port, node.port+10000))
	}
	return builder.String()
}

type failRule struct {
	substr string
	msg    string
}

type dropRule struct {
	substr string
	nth    int
	seen   int
}

// Node is one fake cluster node backed by a redcon server.
type Node struct {
	cluster *Cluster
	id      string
	host    string
	port    int
	server  *redcon.Server
	ln      net.Listener

	mu        sync.Mutex
	keys      map[uint16]map[string]string
	importing map[uint16]string
	migrating map[uint16]string
	owners    map[uint16]string
	fails     []failRule
	drops     []*dropRule
}

func (c *Cluster) startNode() (*Node, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return nil, err
	}
	port, _ := strconv.Atoi(portStr)

	node := &Node{
		cluster:   c,
		id:        generateNodeID(),
		host:      host,
		port:      port,
		ln:        ln,
		keys:      make(map[uint16]map[string]string),
		importing: make(map[uint16]string),
		migrating: make(map[uint16]string),
		owners:    make(map[uint16]string),
	}

	node.server = redcon.NewServer(ln.Addr().String(), node.handleCommand, nil, nil)
	go node.server.Serve(ln)

	return node, nil
}

func generateNodeID() string {
	b := make([]byte, 20)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func (n *Node) ID() string { return n.id }

func (n *Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.host, n.port)
}

// Stop closes the node's listener. The node stays in the cluster's
// membership view, so commands addressed to it fail like an unreachable
// peer.
func (n *Node) Stop() {
	if n.server != nil {
		n.server.Close()
	}
	n.ln.Close()
}

// SeedSlot places keys into a slot directly, bypassing key hashing, so
// tests control slot residency exactly.
func (n *Node) SeedSlot(slot uint16, keys ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.keys[slot] == nil {
		n.keys[slot] = make(map[string]string)
	}
	for _, key := range keys {
		n.keys[slot][key] = "value-" + key
	}
}

// KeysInSlot returns the keys currently resident in slot, sorted.
func (n *Node) KeysInSlot(slot uint16) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sortedKeysLocked(slot)
}

// Owner returns the node id assigned to slot via SETSLOT NODE.
func (n *Node) Owner(slot uint16) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.owners[slot]
}

// Importing returns the source id credited on an importing slot, "" if the
// slot is stable.
func (n *Node) Importing(slot uint16) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.importing[slot]
}

// Migrating returns the destination id credited on a migrating slot.
func (n *Node) Migrating(slot uint16) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.migrating[slot]
}

// FailWhen makes the node reject any command containing substr with an
// error reply.
func (n *Node) FailWhen(substr, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fails = append(n.fails, failRule{substr: substr, msg: msg})
}

// DropWhen makes the node close the connection without replying on the
// nth (1-based) command containing substr, simulating a mid-command
// connection loss.
func (n *Node) DropWhen(substr string, nth int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drops = append(n.drops, &dropRule{substr: substr, nth: nth})
}

func (n *Node) sortedKeysLocked(slot uint16) []string {
	keys := make([]string, 0, len(n.keys[slot]))
	for key := range n.keys[slot] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) receiveKey(slot uint16, key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.keys[slot] == nil {
		n.keys[slot] = make(map[string]string)
	}
	n.keys[slot][key] = value
}

func (n *Node) handleCommand(conn redcon.Conn, cmd redcon.Command) {
	args := make([]string, 0, len(cmd.Args))
	for _, arg := range cmd.Args {
		args = append(args, string(arg))
	}
	if len(args) == 0 {
		conn.WriteError("ERR empty command")
		return
	}

	n.cluster.record(n, args)

	joined := strings.Join(args, " ")

	n.mu.Lock()
	for _, rule := range n.drops {
		if strings.Contains(joined, rule.substr) {
			rule.seen++
			if rule.seen == rule.nth {
				n.mu.Unlock()
				conn.Close()
				return
			}
		}
	}
	for _, rule := range n.fails {
		if strings.Contains(joined, rule.substr) {
			msg := rule.msg
			n.mu.Unlock()
			conn.WriteError(msg)
			return
		}
	}
	n.mu.Unlock()

	switch strings.ToUpper(args[0]) {
	case "CLUSTER":
		n.handleCluster(conn, args[1:])
	case "MIGRATE":
		n.handleMigrate(conn, args[1:])
	default:
		conn.WriteError("ERR unknown command '" + args[0] + "'")
	}
}

func (n *Node) handleCluster(conn redcon.Conn, args []string) {
	if len(args) == 0 {
		conn.WriteError("ERR wrong number of arguments for 'cluster' command")
		return
	}

	switch strings.ToUpper(args[0]) {
	case "MYID":
		conn.WriteBulkString(n.id)

	case "NODES":
		conn.WriteBulkString(n.cluster.nodesText())

	case "MEET":
		if len(args) < 3 {
			conn.WriteError("ERR wrong number of arguments for 'cluster meet' command")
			return
		}
		conn.WriteString("OK")

	case "SETSLOT":
		n.handleSetSlot(conn, args[1:])

	case "COUNTKEYSINSLOT":
		slot, ok := parseSlot(conn, args, 2)
		if !ok {
			return
		}
		n.mu.Lock()
		count := len(n.keys[slot])
		n.mu.Unlock()
		conn.WriteInt(count)

	case "GETKEYSINSLOT":
		slot, ok := parseSlot(conn, args, 3)
		if !ok {
			return
		}
		limit, err := strconv.Atoi(args[2])
		if err != nil || limit < 0 {
			conn.WriteError("ERR Invalid count")
			return
		}
		n.mu.Lock()
		keys := n.sortedKeysLocked(slot)
		n.mu.Unlock()
		if len(keys) > limit {
			keys = keys[:limit]
		}
		conn.WriteArray(len(keys))
		for _, key := range keys {
			conn.WriteBulkString(key)
		}

	default:
		conn.WriteError("ERR unknown subcommand '" + args[0] + "'")
	}
}

func (n *Node) handleSetSlot(conn redcon.Conn, args []string) {
	if len(args) < 2 {
		conn.WriteError("ERR wrong number of arguments for 'cluster setslot' command")
		return
	}
	slotNum, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil || slotNum >= 16384 {
		conn.WriteError("ERR Invalid slot")
		return
	}
	slot := uint16(slotNum)

	n.mu.Lock()
	defer n.mu.Unlock()

	switch strings.ToUpper(args[1]) {
	case "IMPORTING":
		if len(args) < 3 {
			conn.WriteError("ERR wrong number of arguments")
			return
		}
		n.importing[slot] = args[2]
		conn.WriteString("OK")
	case "MIGRATING":
		if len(args) < 3 {
			conn.WriteError("ERR wrong number of arguments")
			return
		}
		n.migrating[slot] = args[2]
		conn.WriteString("OK")
	case "NODE":
		if len(args) < 3 {
			conn.WriteError("ERR wrong number of arguments")
			return
		}
		n.owners[slot] = args[2]
		delete(n.importing, slot)
		delete(n.migrating, slot)
		conn.WriteString("OK")
	case "STABLE":
		delete(n.importing, slot)
		delete(n.migrating, slot)
		conn.WriteString("OK")
	default:
		conn.WriteError("ERR Invalid CLUSTER SETSLOT action or number of arguments")
	}
}

// handleMigrate moves one key to the destination node in process. The real
// protocol serializes and restores the value over a second connection; the
// fake only needs the observable effect.
func (n *Node) handleMigrate(conn redcon.Conn, args []string) {
	if len(args) < 5 {
		conn.WriteError("ERR wrong number of arguments for 'migrate' command")
		return
	}
	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		conn.WriteError("ERR Invalid port")
		return
	}
	key := args[2]

	dest := n.cluster.nodeByHostPort(host, port)
	if dest == nil {
		conn.WriteError("ERR Target instance not known")
		return
	}

	n.mu.Lock()
	var (
		found bool
		slot  uint16
		value string
	)
	for s, keys := range n.keys {
		if v, ok := keys[key]; ok {
			found, slot, value = true, s, v
			delete(keys, key)
			break
		}
	}
	n.mu.Unlock()

	if !found {
		conn.WriteString("NOKEY")
		return
	}

	dest.receiveKey(slot, key, value)
	conn.WriteString("OK")
}

func parseSlot(conn redcon.Conn, args []string, want int) (uint16, bool) {
	if len(args) != want {
		conn.WriteError("ERR wrong number of arguments")
		return 0, false
	}
	slot, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil || slot >= 16384 {
		conn.WriteError("ERR Invalid slot")
		return 0, false
	}
	return uint16(slot), true
}
