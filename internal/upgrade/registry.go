package upgrade

import (
	"fmt"
	"slices"
)

// Machine types known to accept overclock cards.
const (
	MachineInscriber       = "ae2:inscriber"
	MachineExInscriber     = "expatternprovider:ex_inscriber"
	MachineCircuitCutter   = "expatternprovider:circuit_cutter"
	MachineReactionChamber = "advanced_ae:reaction_chamber"
	MachineCircuitEtcher   = "ae2cs:circuit_etcher"
	MachinePulverizer      = "ae2cs:crystal_pulverizer"
	MachineAggregator      = "ae2cs:crystal_aggregator"
	MachineEntropyChamber  = "ae2cs:entropy_variation_reaction_chamber"
)

type machineEntry struct {
	slots int
	cards []Card
}

// Registry maps machine types to the cards they accept.
type Registry struct {
	machines map[string]machineEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{machines: make(map[string]machineEntry)}
}

// DefaultRegistry registers every known machine type with the full card set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range []string{
		MachineInscriber,
		MachineExInscriber,
		MachineCircuitCutter,
		MachineReactionChamber,
		MachineCircuitEtcher,
		MachinePulverizer,
		MachineAggregator,
		MachineEntropyChamber,
	} {
		r.Allow(m, DefaultSlots, AllCards...)
	}
	return r
}

// Allow registers cards for a machine type. Repeated calls add to the set.
func (r *Registry) Allow(machineType string, slots int, cards ...Card) {
	e := r.machines[machineType]
	if slots > 0 {
		e.slots = slots
	}
	for _, c := range cards {
		if !slices.Contains(e.cards, c) {
			e.cards = append(e.cards, c)
		}
	}
	r.machines[machineType] = e
}

// Accepts reports whether a machine type accepts a card.
func (r *Registry) Accepts(machineType string, c Card) bool {
	return slices.Contains(r.machines[machineType].cards, c)
}

// NewInventory creates an empty inventory for a registered machine type.
func (r *Registry) NewInventory(machineType string) (*Inventory, error) {
	e, ok := r.machines[machineType]
	if !ok {
		return nil, fmt.Errorf("machine type %q is not registered", machineType)
	}
	return NewInventory(e.slots, e.cards...), nil
}

// MachineTypes returns the registered machine types, sorted.
func (r *Registry) MachineTypes() []string {
	out := make([]string, 0, len(r.machines))
	for m := range r.machines {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
