package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "redis-shard",
	Short: "Live slot resharding for Redis-protocol clusters",
	Long: `redis-shard moves ownership of a range of hash slots from one cluster
node to another while the cluster keeps serving, driving the
IMPORTING/MIGRATING handshake, per-key transfer and ownership broadcast
for every slot in the range.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
