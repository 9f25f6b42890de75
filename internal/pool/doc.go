// Package pool implements the shared network pool.
//
// The pool is the secondary output sink that takes what a node's own output
// slot cannot hold, and the pooled energy source the ledger falls back to
// when a node's local buffer is short. Several nodes, possibly on several
// hosts, draw on the same pool.
//
// Two implementations share one contract:
//   - Memory: in-process, for a single simulation.
//   - Redis: shared across processes. Every check-and-modify runs as one Lua
//     script, so a simulate call and the modulate call that follows see the
//     same rules and concurrent nodes cannot overdraw.
//
// The Sink and EnergySource adapters plug either into resolve and energy.
// Their contracts have no error return, so a Redis failure degrades to the
// conservative answer: nothing inserted, nothing extracted.
package pool
