package upgrade

import "fmt"

// Card is an upgrade card identifier.
type Card string

const (
	CardParallel2    Card = "parallel_card"
	CardParallel8    Card = "parallel_card_8x"
	CardParallel64   Card = "parallel_card_64x"
	CardParallel1024 Card = "parallel_card_1024x"
	CardParallelMax  Card = "parallel_card_max"

	// CardOverclock completes the whole batch at step start.
	CardOverclock Card = "overclock_card"

	// CardSuperEnergy expands the local energy buffer.
	CardSuperEnergy Card = "super_energy_card"

	// CardCapacity expands the output slot limit.
	CardCapacity Card = "capacity_card"
)

// AllCards lists every card in catalog order.
var AllCards = []Card{
	CardParallel2,
	CardParallel8,
	CardParallel64,
	CardParallel1024,
	CardParallelMax,
	CardCapacity,
	CardSuperEnergy,
	CardOverclock,
}

// Family groups mutually exclusive cards.
type Family string

// FamilyAcceleration is the exclusive family of parallel tiers.
const FamilyAcceleration Family = "acceleration"

// AccelerationTier is the installed tier of the acceleration family.
type AccelerationTier int

const (
	TierNone AccelerationTier = iota
	Factor2
	Factor8
	Factor64
	Factor1024
	Unbounded
)

// tiersDescending is the scan order used when reading an inventory.
var tiersDescending = []AccelerationTier{Unbounded, Factor1024, Factor64, Factor8, Factor2}

// Multiplier returns the acceleration factor of the tier. The Unbounded tier
// uses maxFactor, clamped to at least 2. TierNone is 1.
func (t AccelerationTier) Multiplier(maxFactor int64) int64 {
	switch t {
	case Factor2:
		return 2
	case Factor8:
		return 8
	case Factor64:
		return 64
	case Factor1024:
		return 1024
	case Unbounded:
		return max(maxFactor, 2)
	}
	return 1
}

// Card returns the card that installs this tier.
func (t AccelerationTier) Card() Card {
	switch t {
	case Factor2:
		return CardParallel2
	case Factor8:
		return CardParallel8
	case Factor64:
		return CardParallel64
	case Factor1024:
		return CardParallel1024
	case Unbounded:
		return CardParallelMax
	}
	return ""
}

func (t AccelerationTier) String() string {
	switch t {
	case Factor2:
		return "2x"
	case Factor8:
		return "8x"
	case Factor64:
		return "64x"
	case Factor1024:
		return "1024x"
	case Unbounded:
		return "max"
	}
	return "none"
}

// Tier returns the acceleration tier a card installs, if any.
func (c Card) Tier() (AccelerationTier, bool) {
	for _, t := range tiersDescending {
		if t.Card() == c {
			return t, true
		}
	}
	return TierNone, false
}

// Family returns the exclusive family the card belongs to.
func (c Card) Family() Family {
	if _, ok := c.Tier(); ok {
		return FamilyAcceleration
	}
	return Family(c)
}

// ParseCard validates a card identifier.
func ParseCard(s string) (Card, error) {
	for _, c := range AllCards {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCard, s)
}
