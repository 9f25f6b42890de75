package commit

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/ir"
)

// bin is a container holding counts per kind.
type bin map[ir.Kind]int64

func (b bin) QuantityOf(k ir.Kind) int64 { return b[k] }

func (b bin) Withdraw(k ir.Kind, amount int64, simulate bool) int64 {
	got := min(amount, b[k])
	if !simulate {
		b[k] -= got
	}
	return got
}

// slot is a sink with a fixed capacity for a single kind.
type slot struct {
	kind     ir.Kind
	count    int64
	capacity int64
}

func (s *slot) TryInsert(stack ir.Stack, simulate bool) int64 {
	if s.count > 0 && stack.Kind != s.kind {
		return stack.Count
	}
	accepted := min(stack.Count, s.capacity-s.count)
	if !simulate {
		s.kind = stack.Kind
		s.count += accepted
	}
	return stack.Count - accepted
}

// flaky accepts in simulate mode but rejects real inserts.
type flaky struct{}

func (flaky) TryInsert(stack ir.Stack, simulate bool) int64 {
	if simulate {
		return 0
	}
	return stack.Count
}

var press = ir.RecipeUnit{
	ID:     "silicon_press",
	Inputs: []ir.Requirement{{Accepts: []ir.Kind{"ae2:silicon"}, Count: 1}},
	Output: ir.Stack{Kind: "ae2:silicon_print", Count: 1},
	Energy: 10,
}

func quietCommitter() *Committer {
	return New(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
}

func TestCommit_ExactConsumptionAndProduction(t *testing.T) {
	in := bin{"ae2:silicon": 20}
	out := &slot{capacity: 64}
	local := energy.NewBuffer(1000, 1000)

	res := quietCommitter().Commit(Target{
		Inputs:  []Container{in},
		Primary: out,
		Energy:  energy.Ledger{Local: local},
	}, press, 5)

	assert.Equal(t, int64(5), res.Committed)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.Equal(t, int64(15), in["ae2:silicon"])
	assert.Equal(t, int64(5), out.count)
	assert.InDelta(t, 950, local.Stored(), 1e-9)
	assert.Equal(t, 50.0, res.Energy)
	assert.Equal(t, int64(5), res.Consumed)
	assert.Equal(t, int64(5), res.Produced)
	assert.False(t, res.Aborted())
}

func TestCommit_OverflowGoesToSecondary(t *testing.T) {
	in := bin{"ae2:silicon": 20}
	primary := &slot{capacity: 3}
	network := &slot{capacity: 1000}

	res := quietCommitter().Commit(Target{
		Inputs:    []Container{in},
		Primary:   primary,
		Secondary: network,
		Energy:    energy.Ledger{Local: energy.NewBuffer(1000, 1000)},
	}, press, 8)

	assert.Equal(t, int64(8), res.Committed)
	assert.Equal(t, int64(3), res.Produced)
	assert.Equal(t, int64(5), res.Overflowed)
	assert.Equal(t, int64(0), res.Stranded)
	assert.Equal(t, int64(3), primary.count)
	assert.Equal(t, int64(5), network.count)
}

func TestCommit_AbortsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name   string
		in     bin
		out    *slot
		stored float64
		p      int64
		reason Reason
	}{
		{"insufficient material", bin{"ae2:silicon": 2}, &slot{capacity: 64}, 1000, 3, ReasonInsufficientMaterial},
		{"output full", bin{"ae2:silicon": 20}, &slot{capacity: 2}, 1000, 3, ReasonOutputRejected},
		{"insufficient energy", bin{"ae2:silicon": 20}, &slot{capacity: 64}, 29, 3, ReasonInsufficientEnergy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.in["ae2:silicon"]
			local := energy.NewBuffer(tt.stored, 1000)

			res := quietCommitter().Commit(Target{
				Inputs:  []Container{tt.in},
				Primary: tt.out,
				Energy:  energy.Ledger{Local: local},
			}, press, tt.p)

			assert.Equal(t, tt.reason, res.Reason)
			assert.True(t, res.Aborted())
			assert.Equal(t, int64(0), res.Committed)
			assert.Equal(t, before, tt.in["ae2:silicon"], "material untouched")
			assert.Equal(t, int64(0), tt.out.count, "output untouched")
			assert.InDelta(t, tt.stored, local.Stored(), 1e-9, "energy untouched")
		})
	}
}

func TestCommit_EmptyPlan(t *testing.T) {
	in := bin{"ae2:silicon": 20}
	res := quietCommitter().Commit(Target{Inputs: []Container{in}}, press, 0)
	assert.Equal(t, ReasonEmptyPlan, res.Reason)
	assert.Equal(t, int64(20), in["ae2:silicon"])

	res = quietCommitter().Commit(Target{Inputs: []Container{in}}, ir.RecipeUnit{}, 3)
	assert.Equal(t, ReasonEmptyPlan, res.Reason)
}

func TestCommit_DrainsInStableOrder(t *testing.T) {
	recipe := ir.RecipeUnit{
		ID:     "mixed",
		Inputs: []ir.Requirement{{Accepts: []ir.Kind{"a", "b"}, Count: 2}},
		Output: ir.Stack{Kind: "out", Count: 1},
	}
	first := bin{"a": 1, "b": 3}
	second := bin{"a": 5}

	res := quietCommitter().Commit(Target{
		Inputs:  []Container{first, second},
		Primary: &slot{capacity: 64},
	}, recipe, 3)

	require.Equal(t, int64(3), res.Committed)
	assert.Equal(t, int64(6), res.Consumed)
	// First container drains "a" then "b" before the second is touched.
	assert.Equal(t, int64(0), first["a"])
	assert.Equal(t, int64(0), first["b"])
	assert.Equal(t, int64(3), second["a"])
}

func TestCommit_StrandedOutputIsReported(t *testing.T) {
	var logs bytes.Buffer
	c := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	in := bin{"ae2:silicon": 10}

	res := c.Commit(Target{
		Inputs:  []Container{in},
		Primary: flaky{},
		Energy:  energy.Ledger{Local: energy.NewBuffer(100, 100)},
	}, press, 4)

	assert.Equal(t, int64(0), res.Committed)
	assert.Equal(t, int64(4), res.Stranded)
	assert.Equal(t, ReasonOutputRejected, res.Reason)
	assert.False(t, res.Aborted(), "material was already consumed")
	assert.Contains(t, logs.String(), "output stranded")
}

func TestCommit_MultiUnitOutput(t *testing.T) {
	recipe := ir.RecipeUnit{
		ID:     "dust",
		Inputs: []ir.Requirement{{Accepts: []ir.Kind{"ore"}, Count: 1}},
		Output: ir.Stack{Kind: "dust", Count: 2},
		Energy: 1,
	}
	out := &slot{capacity: 7}
	res := quietCommitter().Commit(Target{
		Inputs:  []Container{bin{"ore": 10}},
		Primary: out,
		Energy:  energy.Ledger{Local: energy.NewBuffer(100, 100)},
	}, recipe, 3)

	assert.Equal(t, int64(3), res.Committed)
	assert.Equal(t, int64(6), out.count)
}

func TestAvailable(t *testing.T) {
	req := ir.Requirement{Accepts: []ir.Kind{"a", "b"}, Count: 1}
	assert.Equal(t, int64(9), Available([]Container{bin{"a": 1, "b": 3}, bin{"a": 5, "c": 100}}, req))
	assert.Equal(t, int64(0), Available(nil, req))
	assert.Equal(t, ir.Unbounded, Available([]Container{bin{"a": ir.Unbounded}, bin{"b": 1}}, req))
}
