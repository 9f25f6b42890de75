package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holder struct{ inv *Inventory }

func (h holder) Upgrades() *Inventory { return h.inv }

type part struct{ host any }

func (p part) Host() any { return p.host }

type menu struct{ entity any }

func (m menu) BlockEntity() any { return m.entity }

// loop points at itself through Host.
type loop struct{}

func (l *loop) Host() any { return l }

func TestFindInventory_Direct(t *testing.T) {
	inv := NewInventory(DefaultSlots)
	got, ok := FindInventory(holder{inv})
	require.True(t, ok)
	assert.Same(t, inv, got)
}

func TestFindInventory_ThroughDelegates(t *testing.T) {
	inv := NewInventory(DefaultSlots)
	target := menu{entity: part{host: holder{inv}}}

	got, ok := FindInventory(target)
	require.True(t, ok)
	assert.Same(t, inv, got)
}

func TestFindInventory_DepthBound(t *testing.T) {
	inv := NewInventory(DefaultSlots)

	// Holder exactly MaxOwnerDepth hops away is found.
	var target any = holder{inv}
	for i := 0; i < MaxOwnerDepth; i++ {
		target = part{host: target}
	}
	_, ok := FindInventory(target)
	assert.True(t, ok)

	// One more hop is too far.
	_, ok = FindInventory(part{host: target})
	assert.False(t, ok)
}

func TestFindInventory_CycleTerminates(t *testing.T) {
	_, ok := FindInventory(&loop{})
	assert.False(t, ok)
}

func TestFindInventory_UnknownHost(t *testing.T) {
	_, ok := FindInventory(struct{}{})
	assert.False(t, ok)
	_, ok = FindInventory(nil)
	assert.False(t, ok)
	_, ok = FindInventory(holder{nil})
	assert.False(t, ok)
}

func TestFindInventory_CustomStrategies(t *testing.T) {
	inv := NewInventory(DefaultSlots)
	target := menu{entity: holder{inv}}

	_, ok := FindInventory(target, ViaHost)
	assert.False(t, ok, "ViaHost alone cannot see through a menu")

	_, ok = FindInventory(target, ViaEntity)
	assert.True(t, ok)
}
