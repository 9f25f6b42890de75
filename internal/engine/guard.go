package engine

import "sync"

// Guard is the per-node reentrancy guard.
//
// Committing extras inserts output and withdraws material, which may fire
// host callbacks that re-enter the step logic of the same node. While a node
// is inside Enter/Leave, Active reports true and the engine ignores nested
// BeginStep/EndStep calls for it.
type Guard struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]bool)}
}

// Enter marks nodeID as committing. It returns false if the node is already
// inside the guard, in which case the caller must not call Leave.
func (g *Guard) Enter(nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active[nodeID] {
		return false
	}
	g.active[nodeID] = true
	return true
}

// Leave clears the mark set by Enter.
func (g *Guard) Leave(nodeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.active, nodeID)
}

// Active reports whether nodeID is inside the guard.
func (g *Guard) Active(nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.active[nodeID]
}

// Size returns the number of nodes inside the guard.
func (g *Guard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.active)
}
