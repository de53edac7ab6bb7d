package topology

import (
	"strings"
	"testing"
)

const sampleNodes = "" +
	"07c37dfeb235213a872192d90877d0cd55635b91 127.0.0.1:7000@17000 myself,master - 0 1426238316232 2 connected 0-5460\n" +
	"67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1 127.0.0.1:7001@17001 master - 0 1426238316232 2 connected 5461-10922\n" +
	"e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca 127.0.0.1:7002@17002 slave 67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1 0 1426238317239 4 connected\n"

func TestParseNodes(t *testing.T) {
	nodes, err := ParseNodes(sampleNodes)
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}

	first := nodes[0]
	if first.ID != "07c37dfeb235213a872192d90877d0cd55635b91" {
		t.Errorf("unexpected id: %s", first.ID)
	}
	if first.Addr() != "127.0.0.1:7000" {
		t.Errorf("unexpected addr: %s", first.Addr())
	}
	if first.ClusterPort != 17000 {
		t.Errorf("unexpected cluster port: %d", first.ClusterPort)
	}
	if !first.Myself {
		t.Error("expected myself flag on first node")
	}
	if !first.IsMaster() {
		t.Error("expected first node to be a master")
	}
	if !first.Linked {
		t.Error("expected first node to be connected")
	}

	replica := nodes[2]
	if replica.Role != RoleReplica {
		t.Errorf("expected replica role, got %s", replica.Role)
	}
	if replica.MasterID != "67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1" {
		t.Errorf("unexpected master id: %s", replica.MasterID)
	}
}

func TestParseNodesSkipsBlankLines(t *testing.T) {
	nodes, err := ParseNodes("\n" + sampleNodes + "\n\n")
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(nodes))
	}
}

func TestParseNodesRejectsShortLines(t *testing.T) {
	_, err := ParseNodes("abc 127.0.0.1:7000 master -\n")
	if err == nil {
		t.Fatal("expected error for truncated line")
	}
	if !strings.Contains(err.Error(), "expected 8 fields") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseNodesWithoutClusterPort(t *testing.T) {
	nodes, err := ParseNodes("abcdef 10.0.0.5:6379 master - 0 0 0 connected\n")
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	if nodes[0].Port != 6379 || nodes[0].ClusterPort != 0 {
		t.Errorf("unexpected ports: %d %d", nodes[0].Port, nodes[0].ClusterPort)
	}
}

func TestViewResolveID(t *testing.T) {
	nodes, err := ParseNodes(sampleNodes)
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	view := &View{Nodes: nodes}

	id, err := view.ResolveID("127.0.0.1:7001")
	if err != nil {
		t.Fatalf("ResolveID failed: %v", err)
	}
	if id != "67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1" {
		t.Errorf("unexpected id: %s", id)
	}

	if _, err := view.ResolveID("127.0.0.1:9999"); err == nil {
		t.Error("expected NotFoundError for unknown address")
	}
}

func TestViewMasters(t *testing.T) {
	nodes, err := ParseNodes(sampleNodes)
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	view := &View{Nodes: nodes}

	masters := view.Masters()
	if len(masters) != 2 {
		t.Fatalf("expected 2 masters, got %d", len(masters))
	}
	for _, master := range masters {
		if !master.IsMaster() {
			t.Errorf("node %s is not a master", master.ID)
		}
	}
}
