package resolve

import "github.com/roach88/overclock/internal/ir"

// Supply is the material available for one recipe input.
type Supply struct {
	Available int64
	PerUnit   int64
}

// Request is a resource snapshot plus the requested acceleration factor.
type Request struct {
	Factor   int64
	Inputs   []Supply
	Output   ir.Stack
	Sink     Sink
	Energy   float64
	UnitCost float64
}

// Resolve computes the batch plan for a request.
//
// A non-positive factor, a request without inputs, or any input with no
// available material or a non-positive requirement yields an empty plan.
func Resolve(req Request) ir.BatchPlan {
	empty := ir.BatchPlan{Requested: req.Factor, UnitCost: req.UnitCost, Bound: ir.BoundNone}
	if req.Factor <= 0 || len(req.Inputs) == 0 {
		return empty
	}

	material := ir.Unbounded
	for _, in := range req.Inputs {
		if in.Available <= 0 || in.PerUnit <= 0 {
			return empty
		}
		material = min(material, MaterialLimit(in.Available, in.PerUnit))
	}

	energy := EnergyLimit(req.Energy, req.UnitCost)

	// The output search never needs to look past what the other limits
	// already allow.
	output := OutputLimit(req.Sink, req.Output, min(req.Factor, material, energy))

	return Combine(req.Factor, req.UnitCost, ir.Limits{Material: material, Output: output, Energy: energy})
}

// Combine applies the bucket effect to limits that were already measured:
// the resolved count is the smallest of the factor and the three limits.
func Combine(factor int64, unitCost float64, limits ir.Limits) ir.BatchPlan {
	resolved := max(min(factor, limits.Material, limits.Output, limits.Energy), 0)

	plan := ir.BatchPlan{
		Requested: factor,
		Resolved:  resolved,
		UnitCost:  unitCost,
		TotalCost: float64(resolved) * unitCost,
		Limits:    limits,
	}
	plan.Bound = boundOf(plan)
	return plan
}

// ResolveSingle resolves a recipe with exactly one input.
func ResolveSingle(factor, materialAvail, perUnit int64, sink Sink, unitOutput ir.Stack, energyAvail, unitCost float64) ir.BatchPlan {
	return Resolve(Request{
		Factor:   factor,
		Inputs:   []Supply{{Available: materialAvail, PerUnit: perUnit}},
		Output:   unitOutput,
		Sink:     sink,
		Energy:   energyAvail,
		UnitCost: unitCost,
	})
}

// boundOf names the binding constraint. The output limit is searched below
// the other three, so it only binds when none of them does.
func boundOf(p ir.BatchPlan) ir.Bound {
	switch p.Resolved {
	case p.Requested:
		return ir.BoundFactor
	case p.Limits.Material:
		return ir.BoundMaterial
	case p.Limits.Energy:
		return ir.BoundEnergy
	case p.Limits.Output:
		return ir.BoundOutput
	}
	return ir.BoundNone
}
