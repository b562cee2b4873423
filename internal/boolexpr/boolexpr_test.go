package boolexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartConstructorsFoldConstants(t *testing.T) {
	b := NewBuilder()

	require.Equal(t, b.Const(false), b.Not(b.Const(true)))
	require.Equal(t, b.Literal(-3), b.Not(b.Var(3)))
	x := b.Var(5)
	require.Equal(t, x, b.Not(b.Not(x)))

	y := b.Var(7)
	assert.Equal(t, y, b.And(b.Const(true), y))
	assert.Equal(t, b.Const(false), b.And(b.Const(false), y))
	assert.Equal(t, y, b.Or(b.Const(false), y))
	assert.Equal(t, b.Const(true), b.Or(b.Const(true), y))
}

func TestAndOrCommuteToSameHandle(t *testing.T) {
	b := NewBuilder()
	x, y := b.Var(1), b.Var(2)

	assert.Equal(t, b.And(x, y), b.And(y, x))
	assert.Equal(t, b.Or(x, y), b.Or(y, x))
	assert.Equal(t, b.Eq(x, y), b.Eq(y, x))
}

func TestHashConsingDeduplicates(t *testing.T) {
	b := NewBuilder()
	x, y := b.Var(1), b.Var(2)

	a1 := b.And(x, y)
	a2 := b.And(x, y)
	assert.Equal(t, a1, a2)
	assert.Equal(t, 3, b.Created(), "x, y, and(x,y) should be the only distinct nodes")
}

func TestEqSelfIsTrue(t *testing.T) {
	b := NewBuilder()
	x := b.Var(4)
	assert.Equal(t, b.Const(true), b.Eq(x, x))
}

func TestResetClearsArena(t *testing.T) {
	// Invariant: refcount/arena balance. Building and releasing a fact's
	// expressions must bring the arena back to empty, mirroring
	// nr_bool_created == nr_bool_destroyed at the end of build().
	b := NewBuilder()
	x, y := b.Var(1), b.Var(2)
	_ = b.Implies(x, y)
	require.Greater(t, b.Created(), 0)

	b.Reset()
	assert.Equal(t, 0, b.Created())

	// The arena is fully reusable after Reset.
	z := b.Var(1)
	assert.Equal(t, 1, int(z))
}

func TestStringRendersWithNamer(t *testing.T) {
	b := NewBuilder()
	x := b.Var(1)
	y := b.Var(2)
	e := b.And(x, b.Not(y))

	names := map[int]string{1: "A", 2: "B"}
	s := b.String(e, func(v int) string { return names[v] })
	assert.Equal(t, "(A && !B)", s)
}
