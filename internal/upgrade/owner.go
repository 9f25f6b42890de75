package upgrade

// MaxOwnerDepth bounds the owner walk so a cyclic host graph terminates.
const MaxOwnerDepth = 4

// Holder is implemented by anything that carries an upgrade inventory.
type Holder interface {
	Upgrades() *Inventory
}

// EntityProvider is implemented by wrappers around a block entity.
type EntityProvider interface {
	BlockEntity() any
}

// HostProvider is implemented by parts and menus that delegate to a host.
type HostProvider interface {
	Host() any
}

// Strategy maps a target to the next object to inspect.
type Strategy func(target any) (next any, ok bool)

// ViaEntity follows EntityProvider.
func ViaEntity(target any) (any, bool) {
	if p, ok := target.(EntityProvider); ok {
		return p.BlockEntity(), true
	}
	return nil, false
}

// ViaHost follows HostProvider.
func ViaHost(target any) (any, bool) {
	if p, ok := target.(HostProvider); ok {
		return p.Host(), true
	}
	return nil, false
}

// DefaultStrategies is the order in which owners are looked up.
var DefaultStrategies = []Strategy{ViaEntity, ViaHost}

// FindInventory walks from target to the first Holder reachable through the
// strategies, depth first, at most MaxOwnerDepth hops away. With no
// strategies given, DefaultStrategies are used.
func FindInventory(target any, strategies ...Strategy) (*Inventory, bool) {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return findInventory(target, 0, strategies)
}

func findInventory(target any, depth int, strategies []Strategy) (*Inventory, bool) {
	if target == nil || depth > MaxOwnerDepth {
		return nil, false
	}
	if h, ok := target.(Holder); ok {
		if inv := h.Upgrades(); inv != nil {
			return inv, true
		}
	}
	for _, s := range strategies {
		next, ok := s(target)
		if !ok {
			continue
		}
		if inv, found := findInventory(next, depth+1, strategies); found {
			return inv, true
		}
	}
	return nil, false
}
