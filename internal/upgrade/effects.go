package upgrade

// EnergyCapacity returns the local buffer capacity of a node: base, or
// superBuffer when a super energy card is installed and superBuffer is
// larger.
func EnergyCapacity(inv *Inventory, base, superBuffer float64) float64 {
	if inv != nil && inv.Has(CardSuperEnergy) {
		return max(base, superBuffer)
	}
	return base
}

// SlotCapacity returns the output slot limit of a node: base, or slotLimit
// when a capacity card is installed and slotLimit is larger.
func SlotCapacity(inv *Inventory, base, slotLimit int64) int64 {
	if inv != nil && inv.Has(CardCapacity) {
		return max(base, slotLimit)
	}
	return base
}
