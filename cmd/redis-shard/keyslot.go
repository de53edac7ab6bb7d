package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JSONOrona/redis-shard/internal/hash"
)

var keyslotCmd = &cobra.Command{
	Use:   "keyslot <key>",
	Short: "Print the hash slot a key belongs to",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		fmt.Println(hash.KeySlot(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(keyslotCmd)
}
