package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/overclock/internal/commit"
	"github.com/roach88/overclock/internal/config"
	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
	"github.com/roach88/overclock/internal/upgrade"
)

const (
	silicon        ir.Kind = "silicon"
	printedSilicon ir.Kind = "printed_silicon"
)

// bin is a single-kind input container.
type bin struct {
	kind ir.Kind
	qty  int64
}

func (b *bin) QuantityOf(k ir.Kind) int64 {
	if k != b.kind {
		return 0
	}
	return b.qty
}

func (b *bin) Withdraw(k ir.Kind, amount int64, simulate bool) int64 {
	if k != b.kind || amount <= 0 {
		return 0
	}
	n := min(b.qty, amount)
	if !simulate {
		b.qty -= n
	}
	return n
}

// slot is a single-stack output sink with a limit.
type slot struct {
	kind     ir.Kind
	count    int64
	limit    int64
	onInsert func()
}

func (s *slot) TryInsert(st ir.Stack, simulate bool) int64 {
	if st.Count <= 0 {
		return 0
	}
	if s.count > 0 && s.kind != st.Kind {
		return st.Count
	}
	n := max(min(s.limit-s.count, st.Count), 0)
	if !simulate && n > 0 {
		s.kind = st.Kind
		s.count += n
		if s.onInsert != nil {
			s.onInsert()
		}
	}
	return st.Count - n
}

// host is a minimal processing node. Its native logic advances progress by
// one per tick and completes a unit when progress reaches recipe.Steps.
type host struct {
	id       string
	inv      *upgrade.Inventory
	recipe   ir.RecipeUnit
	noRecipe bool
	in       *bin
	out      *slot
	overflow *slot
	local    *energy.Buffer
	pooled   *energy.Buffer
	progress int64
}

func (h *host) ID() string { return h.id }

func (h *host) Recipe() (ir.RecipeUnit, bool) {
	if h.noRecipe {
		return ir.RecipeUnit{}, false
	}
	return h.recipe, true
}

func (h *host) Inputs() []commit.Container { return []commit.Container{h.in} }
func (h *host) Output() resolve.Sink       { return h.out }

func (h *host) Overflow() resolve.Sink {
	if h.overflow == nil {
		return nil
	}
	return h.overflow
}

func (h *host) Energy() energy.Ledger {
	l := energy.Ledger{Local: h.local}
	if h.pooled != nil {
		l.Pooled = h.pooled
	}
	return l
}

func (h *host) Progress() int64              { return h.progress }
func (h *host) Upgrades() *upgrade.Inventory { return h.inv }

func (h *host) tick() {
	if h.noRecipe || h.in.qty < 1 || h.local.Stored() < h.recipe.Energy {
		return
	}
	h.progress++
	if h.progress >= h.recipe.Steps {
		h.in.Withdraw(silicon, 1, false)
		h.local.Extract(h.recipe.Energy, false)
		h.out.TryInsert(h.recipe.Output, false)
		h.progress = 0
	}
}

// instantHost lets the engine reset its progress.
type instantHost struct {
	*host
	resets int
}

func (h *instantHost) ResetProgress() {
	h.progress = 0
	h.resets++
}

// countingHost completes a unit every step and counts completions.
type countingHost struct {
	*host
	completed int64
}

func (h *countingHost) Completed() int64 { return h.completed }

func (h *countingHost) tick() {
	before := h.out.count
	h.host.tick()
	if h.out.count > before {
		h.completed++
	}
}

type markedHost struct {
	*host
	reset int64
}

func (h *markedHost) ResetValue() int64 { return h.reset }

func siliconRecipe() ir.RecipeUnit {
	return ir.RecipeUnit{
		ID:     "inscriber/printed_silicon",
		Inputs: []ir.Requirement{{Accepts: []ir.Kind{silicon}, Count: 1}},
		Output: ir.Stack{Kind: printedSilicon, Count: 1},
		Energy: 10,
		Steps:  2,
	}
}

func newHost(t *testing.T, material int64, stored float64, outLimit int64, cards ...upgrade.Card) *host {
	t.Helper()
	inv := upgrade.NewInventory(upgrade.DefaultSlots)
	for _, c := range cards {
		require.NoError(t, inv.Install(c))
	}
	return &host{
		id:     "node-1",
		inv:    inv,
		recipe: siliconRecipe(),
		in:     &bin{kind: silicon, qty: material},
		out:    &slot{limit: outLimit},
		local:  energy.NewBuffer(stored, 1e9),
	}
}

func newTestEngine(rec Recorder) *Engine {
	cfg := config.Default()
	cfg.ParallelCardMaxMultiplier = 4
	return New(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRecorder(rec),
		WithConfig(cfg),
		WithRunIDGenerator(NewFixedGenerator("run-test")),
	)
}

// step runs one host step the way a driver would.
func step(e *Engine, m Machine, tick func()) Decision {
	ctx := context.Background()
	d := e.BeginStep(ctx, m)
	if d == Native {
		tick()
	}
	e.EndStep(ctx, m)
	return d
}

func kinds(events []ir.StepEvent) []ir.EventKind {
	out := make([]ir.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}
