package upgrade

import (
	"errors"
	"fmt"
	"slices"
)

// MaxCards is the number of copies of one card a node may carry.
const MaxCards = 1

// DefaultSlots is the upgrade slot count of a standard machine.
const DefaultSlots = 4

var (
	// ErrUnknownCard is returned for an unrecognized card identifier.
	ErrUnknownCard = errors.New("unknown upgrade card")

	// ErrNotAccepted is returned when the machine does not accept the card.
	ErrNotAccepted = errors.New("card not accepted by machine")

	// ErrFamilyOccupied is returned when another tier of the same exclusive
	// family is already installed.
	ErrFamilyOccupied = errors.New("exclusive card family already occupied")

	// ErrCardLimit is returned when the card is already installed MaxCards times.
	ErrCardLimit = errors.New("card limit reached")

	// ErrNoFreeSlot is returned when every upgrade slot is taken.
	ErrNoFreeSlot = errors.New("no free upgrade slot")
)

// Inventory is the set of upgrade cards installed on one node.
//
// Not safe for concurrent use; it is owned by the host's step loop.
type Inventory struct {
	slots    int
	accepted []Card
	cards    []Card
}

// NewInventory creates an inventory with the given slot count that accepts
// the listed cards. An empty list accepts every card.
func NewInventory(slots int, accepted ...Card) *Inventory {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Inventory{slots: slots, accepted: slices.Clone(accepted)}
}

// Accepts reports whether the machine takes this card at all.
func (inv *Inventory) Accepts(c Card) bool {
	return len(inv.accepted) == 0 || slices.Contains(inv.accepted, c)
}

// Install adds a card, enforcing acceptance, the per-card limit, family
// exclusivity and the slot count, in that order.
func (inv *Inventory) Install(c Card) error {
	if _, err := ParseCard(string(c)); err != nil {
		return err
	}
	if !inv.Accepts(c) {
		return fmt.Errorf("install %s: %w", c, ErrNotAccepted)
	}
	if inv.Count(c) >= MaxCards {
		return fmt.Errorf("install %s: %w", c, ErrCardLimit)
	}
	for _, existing := range inv.cards {
		if existing.Family() == c.Family() {
			return fmt.Errorf("install %s: %w by %s", c, ErrFamilyOccupied, existing)
		}
	}
	if len(inv.cards) >= inv.slots {
		return fmt.Errorf("install %s: %w", c, ErrNoFreeSlot)
	}
	inv.cards = append(inv.cards, c)
	return nil
}

// Remove takes one copy of the card out. It reports whether one was found.
func (inv *Inventory) Remove(c Card) bool {
	i := slices.Index(inv.cards, c)
	if i < 0 {
		return false
	}
	inv.cards = slices.Delete(inv.cards, i, i+1)
	return true
}

// Count returns how many copies of the card are installed.
func (inv *Inventory) Count(c Card) int {
	n := 0
	for _, existing := range inv.cards {
		if existing == c {
			n++
		}
	}
	return n
}

// Has reports whether the card is installed.
func (inv *Inventory) Has(c Card) bool {
	return inv.Count(c) > 0
}

// Installed returns the installed cards in install order.
func (inv *Inventory) Installed() []Card {
	return slices.Clone(inv.cards)
}

// AccelerationTier returns the installed acceleration tier, scanning from
// the highest tier down.
func (inv *Inventory) AccelerationTier() (AccelerationTier, bool) {
	if inv == nil {
		return TierNone, false
	}
	for _, t := range tiersDescending {
		if inv.Has(t.Card()) {
			return t, true
		}
	}
	return TierNone, false
}

// Instant reports whether the node completes its whole batch at step start.
func (inv *Inventory) Instant() bool {
	return inv != nil && inv.Has(CardOverclock)
}

// Multiplier returns the acceleration factor of the installed tier, or 1.
func (inv *Inventory) Multiplier(maxFactor int64) int64 {
	t, _ := inv.AccelerationTier()
	return t.Multiplier(maxFactor)
}
