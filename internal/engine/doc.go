// Package engine implements the step-phase synchronizer.
//
// The host simulation owns a per-node progress counter that completes one
// unit at a time. The engine cannot replace that loop, only observe and
// supplement it. Each host step calls BeginStep before the host runs its own
// logic and EndStep after.
//
// PHASES:
//
//	IDLE ──BeginStep──▶ ARMED ──EndStep (edge)──▶ COMMITTING ──▶ IDLE
//	                      │
//	                      └──EndStep (no edge)──▶ IDLE
//
// On the acceleration path BeginStep resolves a plan against the current
// resources and caches it. The host then completes its own unit. EndStep
// detects the completion edge (progress went from a non-reset value to the
// reset value) and commits the remaining resolved−1 repetitions. Before every
// chunk of extras the engine resolves again against fresh resources, since
// the host's own unit already consumed some of them.
//
// On the instant path (overclock card) BeginStep commits the whole plan at
// once, resets the host progress and tells the host to skip its own logic.
//
// Failures never raise. A zero plan or aborted commit leaves the host to run
// unmodified; a shortfall in the middle of extras keeps what was committed.
//
// CONCURRENCY:
//
// The engine is single-writer. One goroutine drives all nodes. The only
// concurrency-control primitive is the per-node reentrancy Guard, which makes
// nested BeginStep/EndStep calls triggered by commit callbacks no-ops.
//
// Every transition is stamped with a seq from the logical Clock and handed to
// the Recorder (journal, metrics, in-memory trace).
package engine
