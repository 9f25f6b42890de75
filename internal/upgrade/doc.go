// Package upgrade models the upgrade cards a processing node can carry.
//
// Cards come in families. The acceleration family has five tiers
// (2x, 8x, 64x, 1024x and max) of which at most one may be installed at a
// time; Inventory.Install rejects a second tier with ErrFamilyOccupied.
// Every other card is its own family. Each card may be installed at most
// MaxCards times per node.
//
// Hosts rarely carry their upgrades directly. FindInventory walks from a host
// object to the owner of its upgrade inventory through a prioritized list of
// Strategy functions, bounded by MaxOwnerDepth. A host whose owner cannot be
// found simply has no upgrades.
package upgrade
