// Package orchestrator sequences the slot migration protocol: mark the
// endpoints importing and migrating, move the resident keys, then announce
// the new owner to every master, slot by slot across the requested range.
package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JSONOrona/redis-shard/internal/config"
	"github.com/JSONOrona/redis-shard/internal/keymover"
	"github.com/JSONOrona/redis-shard/internal/metrics"
	"github.com/JSONOrona/redis-shard/internal/nodeclient"
	"github.com/JSONOrona/redis-shard/internal/ownership"
	"github.com/JSONOrona/redis-shard/internal/slotstate"
	"github.com/JSONOrona/redis-shard/internal/topology"
	rserr "github.com/JSONOrona/redis-shard/pkg/errors"
	"github.com/JSONOrona/redis-shard/pkg/retry"
)

// Stage identifies how far a slot's state machine progressed.
type Stage int

const (
	StageImport Stage = iota
	StageMigrate
	StageKeyTransfer
	StageOwnership
)

func (s Stage) String() string {
	switch s {
	case StageImport:
		return "import"
	case StageMigrate:
		return "migrate"
	case StageKeyTransfer:
		return "key-transfer"
	case StageOwnership:
		return "ownership"
	default:
		return "unknown"
	}
}

// SlotResult is the outcome of one slot's migration attempt. Err == nil
// means the slot completed; otherwise Stage names the step that failed and
// the key counts describe how much repair the slot needs.
type SlotResult struct {
	Slot          uint16
	Stage         Stage
	KeysMoved     int
	KeysRemaining int
	Err           error

	// Propagation maps master node id to its SETSLOT NODE outcome, nil for
	// success. Only set once the slot reached the ownership stage.
	Propagation map[string]error
}

// Completed reports whether every step of the slot's sequence succeeded.
func (r SlotResult) Completed() bool {
	return r.Err == nil
}

// StaleMasters lists masters that did not acknowledge the new owner and
// still route the slot to the source.
func (r SlotResult) StaleMasters() []string {
	var stale []string
	for id, err := range r.Propagation {
		if err != nil {
			stale = append(stale, id)
		}
	}
	return stale
}

// Orchestrator runs one migration pass. All remote commands are issued
// sequentially; there is no concurrency to race the two endpoints' slot
// state transitions.
type Orchestrator struct {
	cfg        config.Run
	client     nodeclient.Client
	controller *slotstate.Controller
	mover      *keymover.Mover
	propagator *ownership.Propagator
	logger     *zap.Logger

	// OnSlotDone, if set, observes each slot's result as it is produced.
	OnSlotDone func(SlotResult)
}

// New validates cfg and builds an orchestrator on top of the given client.
// The policy governs per-key move attempts; retry.Default() means every
// command is attempted exactly once.
func New(cfg config.Run, client nodeclient.Client, policy retry.Policy, logger *zap.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	moveTimeout := cfg.MoveTimeout
	if moveTimeout <= 0 {
		moveTimeout = nodeclient.DefaultTimeout
	}
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		controller: slotstate.NewController(client),
		mover:      keymover.NewMover(client, moveTimeout, policy),
		propagator: ownership.NewPropagator(client),
		logger:     logger,
	}, nil
}

// Run executes one pass over the configured slot range and returns the
// per-slot outcomes in slot order. A slot's failure halts that slot only;
// the loop advances regardless, so one bad slot cannot lose the progress of
// hundreds of good ones. Cancellation is honored between slots: the current
// slot finishes, the next is not started, and the results so far are
// returned alongside ErrStopped.
//
// Re-invoking Run starts a fresh pass that re-derives current key counts;
// nothing resumes from a saved offset.
func (o *Orchestrator) Run(ctx context.Context) ([]SlotResult, error) {
	source, dest, masters, err := o.prepare(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]SlotResult, 0, int(o.cfg.SlotEnd)-int(o.cfg.SlotStart)+1)
	for slot := int(o.cfg.SlotStart); slot <= int(o.cfg.SlotEnd); slot++ {
		select {
		case <-ctx.Done():
			o.logger.Warn("stopping between slots",
				zap.Int("next_slot", slot),
				zap.Int("slots_done", len(results)))
			return results, rserr.ErrStopped
		default:
		}

		result := o.migrateSlot(ctx, uint16(slot), source, dest, masters)
		o.observe(result)
		results = append(results, result)
	}

	return results, nil
}

// prepare resolves the endpoints and performs the one-time meet step. Slot
// state commands addressed to an unknown peer id are meaningless, so the
// destination must be part of the source's membership view before any slot
// work begins.
func (o *Orchestrator) prepare(ctx context.Context) (source, dest topology.Node, masters []topology.Node, err error) {
	destHost, destPort, err := o.cfg.DestHostPort()
	if err != nil {
		return topology.Node{}, topology.Node{}, nil, err
	}

	if err := o.client.Meet(ctx, o.cfg.SourceAddr, destHost, destPort); err != nil {
		return topology.Node{}, topology.Node{}, nil, err
	}

	view, err := topology.Discover(ctx, o.client, o.cfg.SourceAddr)
	if err != nil {
		return topology.Node{}, topology.Node{}, nil, err
	}

	source, err = view.NodeByAddr(o.cfg.SourceAddr)
	if err != nil {
		return topology.Node{}, topology.Node{}, nil, err
	}
	dest, err = view.NodeByAddr(o.cfg.DestAddr)
	if err != nil {
		return topology.Node{}, topology.Node{}, nil, err
	}

	o.logger.Info("endpoints resolved",
		zap.String("source_id", source.ID),
		zap.String("dest_id", dest.ID),
		zap.Int("masters", len(view.Masters())))

	return source, dest, view.Masters(), nil
}

// migrateSlot drives one slot through
// import -> migrate -> key transfer -> ownership. The importing flag is set
// on the destination before the migrating flag on the source so there is
// never a migrating source without an importing destination.
func (o *Orchestrator) migrateSlot(ctx context.Context, slot uint16, source, dest topology.Node, masters []topology.Node) SlotResult {
	result := SlotResult{Slot: slot}

	if err := o.controller.BeginImport(ctx, dest, slot, source.ID); err != nil {
		result.Stage, result.Err = StageImport, err
		return result
	}

	if err := o.controller.BeginMigrate(ctx, source, slot, dest.ID); err != nil {
		// No key has moved yet, so the import flag can be rolled back.
		if clearErr := o.controller.ClearStable(ctx, dest, slot); clearErr != nil {
			o.logger.Warn("rollback of import flag failed",
				zap.Uint16("slot", slot), zap.Error(clearErr))
		}
		result.Stage, result.Err = StageMigrate, err
		return result
	}

	moved, err := o.mover.MigrateSlot(ctx, source, dest, slot)
	result.KeysMoved = moved
	if err != nil {
		var partial *rserr.PartialMigrationError
		if errors.As(err, &partial) {
			result.KeysRemaining = partial.KeysRemaining
		}
		result.Stage, result.Err = StageKeyTransfer, err
		return result
	}

	// Every key enumerated for this slot is confirmed moved, so the source
	// holds nothing and ownership may be reassigned.
	result.Propagation = o.propagator.Announce(ctx, masters, slot, dest.ID)
	result.Stage = StageOwnership
	return result
}

func (o *Orchestrator) observe(result SlotResult) {
	if result.Completed() {
		metrics.SlotsProcessed.WithLabelValues("completed").Inc()
		o.logger.Info("slot migrated",
			zap.Uint16("slot", result.Slot),
			zap.Int("keys_moved", result.KeysMoved),
			zap.Strings("stale_masters", result.StaleMasters()))
	} else {
		metrics.SlotsProcessed.WithLabelValues("failed").Inc()
		o.logger.Error("slot migration failed",
			zap.Uint16("slot", result.Slot),
			zap.String("stage", result.Stage.String()),
			zap.Int("keys_moved", result.KeysMoved),
			zap.Int("keys_remaining", result.KeysRemaining),
			zap.Error(result.Err))
	}

	if o.OnSlotDone != nil {
		o.OnSlotDone(result)
	}
}
