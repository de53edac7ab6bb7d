package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JSONOrona/redis-shard/internal/config"
	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	"github.com/JSONOrona/redis-shard/internal/orchestrator"
	"github.com/JSONOrona/redis-shard/internal/report"
	"github.com/JSONOrona/redis-shard/pkg/retry"
)

var migrateFlags struct {
	source         string
	dest           string
	from           uint16
	to             uint16
	moveTimeout    time.Duration
	commandTimeout time.Duration
	statusAddr     string
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move a slot range from a source node to a destination node",
	RunE:  runMigrate,
}

func init() {
	flags := migrateCmd.Flags()
	flags.StringVar(&migrateFlags.source, "source", "", "host:port of the node currently owning the slots")
	flags.StringVar(&migrateFlags.dest, "dest", "", "host:port of the node receiving the slots")
	flags.Uint16Var(&migrateFlags.from, "from", 0, "first slot of the range (inclusive)")
	flags.Uint16Var(&migrateFlags.to, "to", 0, "last slot of the range (inclusive)")
	flags.DurationVar(&migrateFlags.moveTimeout, "move-timeout", 5*time.Second, "timeout per key move")
	flags.DurationVar(&migrateFlags.commandTimeout, "command-timeout", 5*time.Second, "timeout per administrative command")
	flags.StringVar(&migrateFlags.statusAddr, "status-addr", "", "optional address serving /status and /metrics during the run")
	migrateCmd.MarkFlagRequired("source")
	migrateCmd.MarkFlagRequired("dest")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Run{
		SourceAddr:     migrateFlags.source,
		DestAddr:       migrateFlags.dest,
		SlotStart:      migrateFlags.from,
		SlotEnd:        migrateFlags.to,
		MoveTimeout:    migrateFlags.moveTimeout,
		CommandTimeout: migrateFlags.commandTimeout,
		StatusAddr:     migrateFlags.statusAddr,
	}

	logger, err := config.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := nodeclient.NewRESPClient(cfg.CommandTimeout)
	orch, err := orchestrator.New(cfg, client, retry.Default(), logger)
	if err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		statusServer := report.NewServer(cfg.StatusAddr)
		go statusServer.Start()
		defer statusServer.Stop()
		orch.OnSlotDone = statusServer.Record
	}

	// SIGINT/SIGTERM stop the run between slots; the slot in flight is
	// finished first.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, runErr := orch.Run(ctx)

	failed := 0
	for _, result := range results {
		if result.Completed() {
			fmt.Fprintf(os.Stdout, "slot %d: completed, %d keys moved\n",
				result.Slot, result.KeysMoved)
		} else {
			failed++
			fmt.Fprintf(os.Stdout, "slot %d: FAILED at %s (%d moved, %d remaining): %v\n",
				result.Slot, result.Stage, result.KeysMoved, result.KeysRemaining, result.Err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run aborted after %d slots: %w", len(results), runErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d slots failed", failed, len(results))
	}

	fmt.Fprintf(os.Stdout, "all %d slots migrated to %s\n", len(results), cfg.DestAddr)
	return nil
}
