package ownership_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JSONOrona/redis-shard/internal/clustertest"
	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	"github.com/JSONOrona/redis-shard/internal/ownership"
	"github.com/JSONOrona/redis-shard/internal/topology"
	rserr "github.com/JSONOrona/redis-shard/pkg/errors"
)

func asNode(t *testing.T, n *clustertest.Node) topology.Node {
	t.Helper()
	host, portStr, err := net.SplitHostPort(n.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return topology.Node{ID: n.ID(), IP: host, Port: port, Role: topology.RoleMaster}
}

func TestAnnounceAllMasters(t *testing.T) {
	cluster := clustertest.NewCluster(t, 3)
	masters := []topology.Node{
		asNode(t, cluster.Node(0)),
		asNode(t, cluster.Node(1)),
		asNode(t, cluster.Node(2)),
	}

	propagator := ownership.NewPropagator(nodeclient.NewRESPClient(time.Second))
	results := propagator.Announce(context.Background(), masters, 100, "new-owner")

	require.Len(t, results, 3)
	for id, err := range results {
		require.NoError(t, err, "master %s", id)
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, "new-owner", cluster.Node(i).Owner(100))
	}
}

func TestAnnounceSurvivesUnreachableMaster(t *testing.T) {
	cluster := clustertest.NewCluster(t, 3)
	masters := []topology.Node{
		asNode(t, cluster.Node(0)),
		asNode(t, cluster.Node(1)),
		asNode(t, cluster.Node(2)),
	}
	cluster.Node(1).Stop()

	propagator := ownership.NewPropagator(nodeclient.NewRESPClient(200 * time.Millisecond))
	results := propagator.Announce(context.Background(), masters, 100, "new-owner")

	require.Len(t, results, 3)
	require.NoError(t, results[masters[0].ID])
	require.Error(t, results[masters[1].ID])
	require.True(t, rserr.IsConnectivity(results[masters[1].ID]))
	require.NoError(t, results[masters[2].ID])

	// Reachable masters converge even though one is down.
	require.Equal(t, "new-owner", cluster.Node(0).Owner(100))
	require.Equal(t, "new-owner", cluster.Node(2).Owner(100))
}

func TestAnnounceEmptyMasterSet(t *testing.T) {
	propagator := ownership.NewPropagator(nodeclient.NewRESPClient(time.Second))
	results := propagator.Announce(context.Background(), nil, 100, "new-owner")
	require.Empty(t, results)
}
