package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	"github.com/JSONOrona/redis-shard/internal/topology"
)

var nodesAddr string

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List cluster members as seen by one node",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := nodeclient.NewRESPClient(5 * time.Second)
		view, err := topology.Discover(cmd.Context(), client, nodesAddr)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tADDRESS\tROLE\tLINK")
		for _, node := range view.Nodes {
			link := "disconnected"
			if node.Linked {
				link = "connected"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", node.ID, node.Addr(), node.Role, link)
		}
		return w.Flush()
	},
}

func init() {
	nodesCmd.Flags().StringVar(&nodesAddr, "addr", "127.0.0.1:6379", "host:port of any cluster node")
	rootCmd.AddCommand(nodesCmd)
}
