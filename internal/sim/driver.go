package sim

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/overclock/internal/engine"
)

// Driver steps a set of nodes through the engine, in the order they were
// added.
type Driver struct {
	engine *engine.Engine
	nodes  []*Node
	logger *slog.Logger
	steps  int64
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// NewDriver creates a driver over e.
func NewDriver(e *engine.Engine, opts ...Option) *Driver {
	d := &Driver{engine: e, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add registers a node. Node IDs must be unique.
func (d *Driver) Add(n *Node) error {
	if d.Node(n.ID()) != nil {
		return fmt.Errorf("duplicate node id %q", n.ID())
	}
	d.nodes = append(d.nodes, n)
	return nil
}

// Remove drops a node and its engine session.
func (d *Driver) Remove(id string) bool {
	i := slices.IndexFunc(d.nodes, func(n *Node) bool { return n.ID() == id })
	if i < 0 {
		return false
	}
	d.nodes = slices.Delete(d.nodes, i, i+1)
	d.engine.Forget(id)
	return true
}

// Node returns the node with the given ID, or nil.
func (d *Driver) Node(id string) *Node {
	for _, n := range d.nodes {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

// Nodes returns the registered nodes.
func (d *Driver) Nodes() []*Node {
	return slices.Clone(d.nodes)
}

// Steps returns the number of completed driver steps.
func (d *Driver) Steps() int64 {
	return d.steps
}

// Step advances every node by one step.
func (d *Driver) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, n := range d.nodes {
		decision := d.engine.BeginStep(ctx, n)
		if decision == engine.Native {
			n.Tick()
		}
		d.engine.EndStep(ctx, n)
		n.FlushToPool()
	}
	d.steps++
	return nil
}

// Run advances every node by steps steps, stopping early if ctx is done.
func (d *Driver) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := d.Step(ctx); err != nil {
			return fmt.Errorf("step %d: %w", d.steps+1, err)
		}
	}
	d.logger.Debug("run complete", "steps", steps, "nodes", len(d.nodes))
	return nil
}
