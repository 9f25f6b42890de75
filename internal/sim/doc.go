// Package sim is a reference host for the engine: processing nodes with
// input and output slots, a local energy buffer, an upgrade inventory and a
// native single-unit progress tracker, plus a driver that steps them.
//
// A node's native step logic knows nothing about acceleration. The driver
// wraps it between Engine.BeginStep and Engine.EndStep, which is the only
// place the engine gets to supplement it:
//
//	for each node:
//	    d := engine.BeginStep(ctx, node)
//	    if d == engine.Native {
//	        node.Tick()
//	    }
//	    engine.EndStep(ctx, node)
//	    node.FlushToPool()
package sim
