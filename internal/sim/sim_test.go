package sim

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/overclock/internal/config"
	"github.com/roach88/overclock/internal/engine"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/pool"
	"github.com/roach88/overclock/internal/upgrade"
)

const (
	silicon        ir.Kind = "ae2:silicon"
	printedSilicon ir.Kind = "ae2:printed_silicon"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func siliconRecipe() ir.RecipeUnit {
	return ir.RecipeUnit{
		ID:     "ae2:inscriber/printed_silicon",
		Inputs: []ir.Requirement{{Accepts: []ir.Kind{silicon}, Count: 1}},
		Output: ir.Stack{Kind: printedSilicon, Count: 1},
		Energy: 10,
		Steps:  2,
	}
}

func newNode(t *testing.T, material int64, stored float64, cards ...upgrade.Card) *Node {
	t.Helper()
	n, err := NewNode(Spec{
		ID:          "node-1",
		MachineType: upgrade.MachineInscriber,
		Recipes:     []ir.RecipeUnit{siliconRecipe()},
		Inputs:      []ir.Stack{{Kind: silicon, Count: material}},
		Energy:      stored,
		Cards:       cards,
	}, config.Default(), WithNodeLogger(discard))
	require.NoError(t, err)
	return n
}

func newEngine() *engine.Engine {
	return engine.New(
		engine.WithLogger(discard),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-sim")),
	)
}

func TestSlot_InsertAndWithdraw(t *testing.T) {
	s := NewSlot(ir.Stack{}, 10)

	assert.Equal(t, int64(0), s.TryInsert(ir.Stack{Kind: silicon, Count: 4}, true))
	assert.True(t, s.Stack().IsEmpty(), "simulate must not change the slot")

	assert.Equal(t, int64(2), s.TryInsert(ir.Stack{Kind: silicon, Count: 12}, false))
	assert.Equal(t, int64(10), s.QuantityOf(silicon))

	assert.Equal(t, int64(3), s.TryInsert(ir.Stack{Kind: printedSilicon, Count: 3}, false),
		"slot holding another kind rejects everything")

	assert.Equal(t, int64(4), s.Withdraw(silicon, 4, false))
	assert.Equal(t, int64(0), s.Withdraw(printedSilicon, 4, false))
	assert.Equal(t, int64(6), s.Withdraw(silicon, 100, true))
	assert.Equal(t, int64(6), s.QuantityOf(silicon))
}

func TestSlot_LoweredLimitKeepsItems(t *testing.T) {
	s := NewSlot(ir.Stack{Kind: silicon, Count: 100}, 200)
	s.SetLimit(64)

	assert.Equal(t, int64(100), s.QuantityOf(silicon))
	assert.Equal(t, int64(5), s.TryInsert(ir.Stack{Kind: silicon, Count: 5}, false))
	assert.Equal(t, int64(64), s.Take(64))
	assert.Equal(t, int64(36), s.QuantityOf(silicon))
}

func TestNewNode_Errors(t *testing.T) {
	_, err := NewNode(Spec{MachineType: upgrade.MachineInscriber}, config.Default())
	assert.Error(t, err)

	_, err = NewNode(Spec{ID: "n", MachineType: "unknown:machine"}, config.Default())
	assert.ErrorContains(t, err, "not registered")

	_, err = NewNode(Spec{
		ID:          "n",
		MachineType: upgrade.MachineInscriber,
		Cards:       []upgrade.Card{upgrade.CardParallel2, upgrade.CardParallel8},
	}, config.Default())
	assert.ErrorIs(t, err, upgrade.ErrFamilyOccupied)
}

func TestNode_Recipe(t *testing.T) {
	n := newNode(t, 1, 100)
	r, ok := n.Recipe()
	require.True(t, ok)
	assert.Equal(t, "ae2:inscriber/printed_silicon", r.ID)

	empty := newNode(t, 0, 100)
	_, ok = empty.Recipe()
	assert.False(t, ok)
}

func TestNode_TickCompletesUnit(t *testing.T) {
	n := newNode(t, 3, 100)

	assert.False(t, n.Tick())
	assert.Equal(t, int64(1), n.Progress())

	assert.True(t, n.Tick())
	assert.Equal(t, int64(0), n.Progress())
	assert.Equal(t, int64(1), n.Completed())
	assert.Equal(t, ir.Stack{Kind: printedSilicon, Count: 1}, n.OutputStack())
	assert.Equal(t, int64(2), n.InputStacks()[0].Count)
	assert.InDelta(t, 90.0, n.StoredEnergy(), 1e-9)
}

func TestNode_TickStallsWithoutEnergy(t *testing.T) {
	n := newNode(t, 3, 5)

	n.Tick()
	assert.False(t, n.Tick())
	assert.Equal(t, int64(1), n.Progress(), "progress holds one short of completion")
	assert.Equal(t, int64(0), n.Completed())

	n.Charge(10)
	assert.True(t, n.Tick())
}

func TestNode_TickStallsOnFullOutput(t *testing.T) {
	n, err := NewNode(Spec{
		ID:          "node-1",
		MachineType: upgrade.MachineInscriber,
		Recipes:     []ir.RecipeUnit{siliconRecipe()},
		Inputs:      []ir.Stack{{Kind: silicon, Count: 5}},
		Output:      ir.Stack{Kind: printedSilicon, Count: 64},
		Energy:      100,
	}, config.Default(), WithNodeLogger(discard))
	require.NoError(t, err)

	assert.False(t, n.Tick())
	assert.Equal(t, int64(0), n.Progress())
}

func TestNode_CardEffects(t *testing.T) {
	cfg := config.Default()
	cfg.CapacityCardSlotLimit = 4096
	cfg.SuperEnergyCardBufferFE = 20_000

	n, err := NewNode(Spec{ID: "n", MachineType: upgrade.MachineInscriber, Energy: 50_000}, cfg, WithNodeLogger(discard))
	require.NoError(t, err)
	assert.Equal(t, int64(64), n.OutputLimit())
	assert.InDelta(t, cfg.EnergyBuffer(), n.EnergyCapacity(), 1e-9)
	assert.InDelta(t, cfg.EnergyBuffer(), n.StoredEnergy(), 1e-9)

	require.NoError(t, n.Install(upgrade.CardCapacity))
	require.NoError(t, n.Install(upgrade.CardSuperEnergy))
	assert.Equal(t, int64(4096), n.OutputLimit())
	assert.InDelta(t, 10_000.0, n.EnergyCapacity(), 1e-9)

	assert.True(t, n.Remove(upgrade.CardCapacity))
	assert.False(t, n.Remove(upgrade.CardCapacity))
	assert.Equal(t, int64(64), n.OutputLimit())

	assert.ErrorIs(t, n.Install(upgrade.CardSuperEnergy), upgrade.ErrCardLimit)
}

func TestNode_CanDismantle(t *testing.T) {
	cfg := config.Default()
	cfg.BreakProtectionItemThreshold = 10

	small, err := NewNode(Spec{
		ID:          "small",
		MachineType: upgrade.MachineInscriber,
		Inputs:      []ir.Stack{{Kind: silicon, Count: 10}},
	}, cfg)
	require.NoError(t, err)
	assert.True(t, small.CanDismantle(false))

	big, err := NewNode(Spec{
		ID:          "big",
		MachineType: upgrade.MachineInscriber,
		Inputs:      []ir.Stack{{Kind: silicon, Count: 8}},
		Output:      ir.Stack{Kind: printedSilicon, Count: 3},
	}, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(11), big.StoredItems())
	assert.False(t, big.CanDismantle(false))
	assert.True(t, big.CanDismantle(true))
}

func TestNode_FlushToPool(t *testing.T) {
	ctx := context.Background()
	net := pool.NewMemory(-1, 0)

	plain, err := NewNode(Spec{
		ID:          "plain",
		MachineType: upgrade.MachineInscriber,
		Output:      ir.Stack{Kind: printedSilicon, Count: 5},
	}, config.Default())
	require.NoError(t, err)
	plain.Connect(ctx, net)
	assert.Equal(t, int64(0), plain.FlushToPool(), "unaccelerated nodes keep their output")

	fast, err := NewNode(Spec{
		ID:          "fast",
		MachineType: upgrade.MachineInscriber,
		Output:      ir.Stack{Kind: printedSilicon, Count: 5},
		Cards:       []upgrade.Card{upgrade.CardParallel8},
	}, config.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(0), fast.FlushToPool(), "not connected")

	fast.Connect(ctx, net)
	assert.Equal(t, int64(5), fast.FlushToPool())
	assert.True(t, fast.OutputStack().IsEmpty())

	got, err := net.Quantity(ctx, printedSilicon)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}

func TestNode_PooledEnergy(t *testing.T) {
	n := newNode(t, 3, 0)
	n.Connect(context.Background(), pool.NewMemory(-1, 100))

	n.Tick()
	assert.True(t, n.Tick(), "pooled energy covers the unit")
	assert.InDelta(t, 0.0, n.StoredEnergy(), 1e-9)
}

func TestDriver_AcceleratedRun(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, 10, 1000, upgrade.CardParallel8)

	d := NewDriver(newEngine(), WithLogger(discard))
	require.NoError(t, d.Add(n))

	require.NoError(t, d.Run(ctx, 2))

	assert.Equal(t, int64(2), d.Steps())
	assert.Equal(t, int64(1), n.Completed())
	assert.Equal(t, ir.Stack{Kind: printedSilicon, Count: 8}, n.OutputStack())
	assert.Equal(t, int64(2), n.InputStacks()[0].Count)
	assert.InDelta(t, 920.0, n.StoredEnergy(), 1e-9)
}

func TestDriver_InstantRun(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, 10, 1000, upgrade.CardParallel8, upgrade.CardOverclock)

	d := NewDriver(newEngine(), WithLogger(discard))
	require.NoError(t, d.Add(n))
	require.NoError(t, d.Step(ctx))

	assert.Equal(t, int64(0), n.Completed(), "native logic is skipped")
	assert.Equal(t, int64(0), n.Progress())
	assert.Equal(t, ir.Stack{Kind: printedSilicon, Count: 8}, n.OutputStack())

	require.NoError(t, d.Step(ctx))
	assert.Equal(t, int64(10), n.OutputStack().Count)
	assert.Equal(t, int64(0), n.InputStacks()[0].Count)
}

func TestDriver_UnacceleratedRun(t *testing.T) {
	n := newNode(t, 10, 1000)
	d := NewDriver(newEngine(), WithLogger(discard))
	require.NoError(t, d.Add(n))

	require.NoError(t, d.Run(context.Background(), 4))
	assert.Equal(t, int64(2), n.Completed())
	assert.Equal(t, int64(2), n.OutputStack().Count)
}

func TestDriver_AddRemove(t *testing.T) {
	e := newEngine()
	d := NewDriver(e, WithLogger(discard))
	n := newNode(t, 10, 1000, upgrade.CardParallel2)

	require.NoError(t, d.Add(n))
	assert.Error(t, d.Add(n))
	assert.Same(t, n, d.Node("node-1"))
	assert.Len(t, d.Nodes(), 1)

	require.NoError(t, d.Step(context.Background()))
	_, ok := e.Session("node-1")
	assert.True(t, ok)

	assert.True(t, d.Remove("node-1"))
	assert.False(t, d.Remove("node-1"))
	assert.Nil(t, d.Node("node-1"))
	_, ok = e.Session("node-1")
	assert.False(t, ok)
}

func TestDriver_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(newEngine(), WithLogger(discard))
	require.NoError(t, d.Add(newNode(t, 10, 1000)))

	err := d.Run(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), d.Steps())
}

func TestDriver_SingleStepRecipeIsAccelerated(t *testing.T) {
	recipe := siliconRecipe()
	recipe.Steps = 1
	n, err := NewNode(Spec{
		ID:          "node-1",
		MachineType: upgrade.MachineInscriber,
		Recipes:     []ir.RecipeUnit{recipe},
		Inputs:      []ir.Stack{{Kind: silicon, Count: 20}},
		Energy:      1000,
		Cards:       []upgrade.Card{upgrade.CardParallel8},
	}, config.Default(), WithNodeLogger(discard))
	require.NoError(t, err)

	rec := engine.NewMemoryRecorder()
	e := engine.New(
		engine.WithLogger(discard),
		engine.WithRecorder(rec),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-sim")),
	)
	d := NewDriver(e, WithLogger(discard))
	require.NoError(t, d.Add(n))
	require.NoError(t, d.Run(context.Background(), 2))

	var extras int64
	for _, ev := range rec.Events() {
		assert.NotEqual(t, ir.EventExpired, ev.Kind)
		if ev.Kind == ir.EventExtra {
			extras += ev.Committed
		}
	}
	assert.Equal(t, int64(14), extras)
	assert.Equal(t, int64(2), n.Completed())
	assert.Equal(t, ir.Stack{Kind: printedSilicon, Count: 16}, n.OutputStack())
	assert.Equal(t, int64(4), n.InputStacks()[0].Count)
	assert.InDelta(t, 840.0, n.StoredEnergy(), 1e-9)
}

func TestDriver_SplitEnergyFundsWholePlan(t *testing.T) {
	ctx := context.Background()
	net := pool.NewMemory(-1, 50)
	n := newNode(t, 20, 50, upgrade.CardParallel8)
	n.Connect(ctx, net)

	d := NewDriver(newEngine(), WithLogger(discard))
	require.NoError(t, d.Add(n))
	require.NoError(t, d.Run(ctx, 2))

	assert.Equal(t, int64(1), n.Completed())
	assert.Equal(t, int64(12), n.InputStacks()[0].Count, "one native unit plus seven extras")
	assert.InDelta(t, 20.0, n.StoredEnergy(), 1e-9)

	pooled, err := net.Energy(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pooled, 1e-9)

	flushed, err := net.Quantity(ctx, printedSilicon)
	require.NoError(t, err)
	assert.Equal(t, int64(8), flushed+n.OutputStack().Count)
}
