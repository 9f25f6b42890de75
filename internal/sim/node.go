package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/overclock/internal/commit"
	"github.com/roach88/overclock/internal/config"
	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/engine"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
	"github.com/roach88/overclock/internal/upgrade"
)

var (
	_ engine.Machine           = (*Node)(nil)
	_ engine.InstantCapable    = (*Node)(nil)
	_ engine.CompletionCounter = (*Node)(nil)
	_ upgrade.Holder           = (*Node)(nil)
)

// Network is the shared pool a node flushes output to and draws pooled
// energy from. pool.Memory and pool.Redis implement it.
type Network interface {
	Sink(ctx context.Context) resolve.Sink
	EnergySource(ctx context.Context) energy.Source
}

// Spec describes a node to build.
type Spec struct {
	ID          string
	MachineType string

	// Recipes is the node's recipe book. The first recipe whose inputs are
	// all present for one repetition is the current recipe.
	Recipes []ir.RecipeUnit

	// Inputs is one unlimited slot per stack.
	Inputs []ir.Stack

	// Output is the initial content of the output slot.
	Output ir.Stack

	// Energy is the initial content of the local buffer.
	Energy float64

	Cards []upgrade.Card
}

// Node is a processing node with a native single-unit progress tracker.
//
// Not safe for concurrent use; the driver owns it.
type Node struct {
	id          string
	machineType string
	recipes     []ir.RecipeUnit
	inputs      []*Slot
	output      *Slot
	local       *energy.Buffer
	inv         *upgrade.Inventory
	cfg         config.Config
	registry    *upgrade.Registry
	logger      *slog.Logger
	committer   *commit.Committer

	overflow resolve.Sink
	pooled   energy.Source

	progress  int64
	completed int64
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithNodeLogger sets the node's logger. Defaults to slog.Default().
func WithNodeLogger(l *slog.Logger) NodeOption {
	return func(n *Node) {
		n.logger = l
	}
}

// WithRegistry sets the registry the node's inventory comes from.
// Defaults to upgrade.DefaultRegistry().
func WithRegistry(r *upgrade.Registry) NodeOption {
	return func(n *Node) {
		n.registry = r
	}
}

// NewNode builds a node and installs its cards.
func NewNode(spec Spec, cfg config.Config, opts ...NodeOption) (*Node, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("node id is required")
	}
	n := &Node{
		id:          spec.ID,
		machineType: spec.MachineType,
		recipes:     spec.Recipes,
		cfg:         cfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.registry == nil {
		n.registry = upgrade.DefaultRegistry()
	}
	n.committer = commit.New(commit.WithLogger(n.logger))

	inv, err := n.registry.NewInventory(spec.MachineType)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", spec.ID, err)
	}
	n.inv = inv
	for _, c := range spec.Cards {
		if err := n.inv.Install(c); err != nil {
			return nil, fmt.Errorf("node %s: %w", spec.ID, err)
		}
	}

	for _, st := range spec.Inputs {
		n.inputs = append(n.inputs, NewSlot(st, ir.Unbounded))
	}
	n.output = NewSlot(spec.Output, n.slotLimit())
	n.local = energy.NewBuffer(spec.Energy, n.energyCapacity())
	return n, nil
}

// Connect attaches the node to a shared pool. Overflow output goes to the
// pool's sink and pooled energy backs the local buffer.
func (n *Node) Connect(ctx context.Context, net Network) {
	n.overflow = net.Sink(ctx)
	n.pooled = net.EnergySource(ctx)
}

// ID implements engine.Machine.
func (n *Node) ID() string { return n.id }

// MachineType returns the registry machine type.
func (n *Node) MachineType() string { return n.machineType }

// Recipe implements engine.Machine.
func (n *Node) Recipe() (ir.RecipeUnit, bool) {
	containers := n.Inputs()
	for _, r := range n.recipes {
		if !r.Valid() {
			continue
		}
		ready := true
		for _, req := range r.Inputs {
			if commit.Available(containers, req) < req.Count {
				ready = false
				break
			}
		}
		if ready {
			return r, true
		}
	}
	return ir.RecipeUnit{}, false
}

// Inputs implements engine.Machine.
func (n *Node) Inputs() []commit.Container {
	out := make([]commit.Container, len(n.inputs))
	for i, s := range n.inputs {
		out[i] = s
	}
	return out
}

// Output implements engine.Machine.
func (n *Node) Output() resolve.Sink { return n.output }

// Overflow implements engine.Machine. It is nil until the node is
// connected to a pool.
func (n *Node) Overflow() resolve.Sink { return n.overflow }

// Energy implements engine.Machine.
func (n *Node) Energy() energy.Ledger {
	return energy.Ledger{Local: n.local, Pooled: n.pooled}
}

// Progress implements engine.Machine.
func (n *Node) Progress() int64 { return n.progress }

// ResetProgress implements engine.InstantCapable.
func (n *Node) ResetProgress() { n.progress = 0 }

// Upgrades implements upgrade.Holder.
func (n *Node) Upgrades() *upgrade.Inventory { return n.inv }

// Completed implements engine.CompletionCounter: the number of units the
// native logic completed.
func (n *Node) Completed() int64 { return n.completed }

// OutputStack returns the output slot contents.
func (n *Node) OutputStack() ir.Stack { return n.output.Stack() }

// OutputLimit returns the output slot limit.
func (n *Node) OutputLimit() int64 { return n.output.Limit() }

// InputStacks returns the input slot contents in slot order.
func (n *Node) InputStacks() []ir.Stack {
	out := make([]ir.Stack, len(n.inputs))
	for i, s := range n.inputs {
		out[i] = s.Stack()
	}
	return out
}

// StoredEnergy returns the local buffer contents.
func (n *Node) StoredEnergy() float64 { return n.local.Stored() }

// EnergyCapacity returns the local buffer capacity.
func (n *Node) EnergyCapacity() float64 { return n.local.Capacity() }

// Charge adds energy to the local buffer and returns what was accepted.
func (n *Node) Charge(amount float64) float64 {
	return n.local.Insert(amount, false)
}

// Install adds an upgrade card and applies its effect on the slot limit and
// the energy buffer.
func (n *Node) Install(c upgrade.Card) error {
	if err := n.inv.Install(c); err != nil {
		return fmt.Errorf("node %s: %w", n.id, err)
	}
	n.refresh()
	return nil
}

// Remove takes an upgrade card out. It reports whether one was installed.
func (n *Node) Remove(c upgrade.Card) bool {
	if !n.inv.Remove(c) {
		return false
	}
	n.refresh()
	return true
}

func (n *Node) refresh() {
	n.output.SetLimit(n.slotLimit())
	n.local.SetCapacity(n.energyCapacity())
}

func (n *Node) slotLimit() int64 {
	return upgrade.SlotCapacity(n.inv, n.cfg.BaseSlot(), n.cfg.SlotLimit())
}

func (n *Node) energyCapacity() float64 {
	return upgrade.EnergyCapacity(n.inv, n.cfg.EnergyBuffer(), n.cfg.SuperEnergyBufferAE())
}

// Tick runs the node's native step logic: progress advances by one while a
// recipe is ready and its output fits, and a unit completes when progress
// reaches the recipe's step count. It reports whether a unit completed.
func (n *Node) Tick() bool {
	recipe, ok := n.Recipe()
	if !ok {
		n.progress = 0
		return false
	}
	if n.output.TryInsert(recipe.Output, true) > 0 {
		return false
	}

	n.progress++
	if n.progress < max(recipe.Steps, 1) {
		return false
	}

	out := n.committer.Commit(commit.Target{
		Inputs:  n.Inputs(),
		Primary: n.output,
		Energy:  n.Energy(),
	}, recipe, 1)
	if out.Committed == 0 {
		// Stalled one step short of completion until energy arrives.
		n.progress--
		n.logger.Debug("native unit stalled",
			"node_id", n.id,
			"recipe", recipe.ID,
			"reason", string(out.Reason),
		)
		return false
	}

	n.progress = 0
	n.completed++
	return true
}

// FlushToPool moves the output slot into the pool. Only accelerated nodes
// connected to a pool flush. It returns the number of items moved.
func (n *Node) FlushToPool() int64 {
	if n.overflow == nil {
		return 0
	}
	if _, ok := n.inv.AccelerationTier(); !ok {
		return 0
	}
	st := n.output.Stack()
	if st.IsEmpty() {
		return 0
	}
	left := n.overflow.TryInsert(st, false)
	moved := n.output.Take(st.Count - left)
	if moved > 0 {
		n.logger.Debug("output flushed to pool",
			"node_id", n.id,
			"kind", string(st.Kind),
			"count", moved,
		)
	}
	return moved
}

// StoredItems returns the total item count held in the node's slots.
func (n *Node) StoredItems() int64 {
	var total int64
	for _, s := range n.inputs {
		total = addClamp(total, s.Stack().Count)
	}
	return addClamp(total, n.output.Stack().Count)
}

// CanDismantle reports whether the node may be broken. A node holding more
// items than the break protection threshold refuses unless forced.
func (n *Node) CanDismantle(force bool) bool {
	if force {
		return true
	}
	return n.StoredItems() <= n.cfg.BreakProtectionThreshold()
}

func addClamp(a, b int64) int64 {
	if b > 0 && a > ir.Unbounded-b {
		return ir.Unbounded
	}
	return a + b
}
