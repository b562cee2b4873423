package clausebuild

import (
	"strings"
	"testing"

	"github.com/satconf/satconfig/internal/kconfig"
	"github.com/satconf/satconfig/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	clauses [][]int
}

func (f *fakeEngine) AddClause(lits ...int) {
	cp := make([]int, len(lits))
	copy(cp, lits)
	f.clauses = append(f.clauses, cp)
}

func (f *fakeEngine) has(lits ...int) bool {
	for _, c := range f.clauses {
		if sameClause(c, lits) {
			return true
		}
	}
	return false
}

func sameClause(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

func parseTable(t *testing.T, src string) *kconfig.SymbolTable {
	t.Helper()
	table, err := kconfig.ParseReader(strings.NewReader(src), "test")
	require.NoError(t, err)
	return table
}

func TestBuildPinsTrueVarUnitClause(t *testing.T) {
	table := parseTable(t, "config A\n\tbool \"A\"\n")
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	assert.True(t, eng.has(lay.TrueVar()))
}

func TestBuildEmitsTristateConsistency(t *testing.T) {
	table := parseTable(t, "config A\n\ttristate \"A\"\n")
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	a, _ := table.Lookup("A")
	mVar, ok := lay.SymM(a)
	require.True(t, ok)
	yVar := lay.SymY(a)
	assert.True(t, eng.has(-mVar, yVar), "m -> y clause must be present")
}

func TestBuildTiesUnconditionalPromptToTrueVar(t *testing.T) {
	table := parseTable(t, "config A\n\tbool \"A\"\n")
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	a, _ := table.Lookup("A")
	pv := lay.PromptVar(a.Prompts()[0])
	tv := lay.TrueVar()
	assert.True(t, eng.has(-pv, tv))
	assert.True(t, eng.has(pv, -tv))
}

func TestBuildChoiceValuesAreMutuallyExclusive(t *testing.T) {
	table := parseTable(t, `
choice
	prompt "Pick one"
config A
	bool "A"
config B
	bool "B"
endchoice
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	a, _ := table.Lookup("A")
	bb, _ := table.Lookup("B")
	assert.True(t, eng.has(-lay.SymY(a), -lay.SymY(bb)))
}

func TestBuildNonOptionalChoiceRequiresSelectionWhenVisible(t *testing.T) {
	table := parseTable(t, `
choice
	prompt "Pick one"
config A
	bool "A"
config B
	bool "B"
endchoice
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	var choiceSym *kconfig.Symbol
	for _, s := range table.Symbols() {
		if s.IsChoice() {
			choiceSym = s
		}
	}
	require.NotNil(t, choiceSym)
	a, _ := table.Lookup("A")
	bb, _ := table.Lookup("B")
	pv := lay.PromptVar(choiceSym.Prompts()[0])
	assert.True(t, eng.has(-pv, lay.SymY(a), lay.SymY(bb)))
}

func TestBuildAllocatesAuxVarsForCompoundSelectConditions(t *testing.T) {
	table := parseTable(t, `
config GATE
	bool "Gate"

config A
	bool "A"
	select B if GATE

config B
	bool "B"
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	assert.Greater(t, b.NumVars(), lay.NumVars(), "a non-trivial select condition must allocate a Tseitin auxiliary variable")
}

func TestBuildSelectForcesTargetOn(t *testing.T) {
	table := parseTable(t, `
config GATE
	bool "Gate"

config A
	bool "A"
	select B if GATE

config B
	bool "B"
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	bSym, _ := table.Lookup("B")
	selectedVar := lay.SymSelected(bSym)
	assert.True(t, eng.has(-selectedVar, lay.SymY(bSym)))
}

func TestBuildTristateConsistencyRestrictsModuleVariables(t *testing.T) {
	table := parseTable(t, `
config MODULES
	bool "Enable loadable module support"

config A
	tristate "A"
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	a, _ := table.Lookup("A")
	modules, _ := table.Lookup("MODULES")
	mVar, ok := lay.SymM(a)
	require.True(t, ok)
	assert.True(t, eng.has(-mVar, lay.SymY(modules)), "m(A) must imply y(MODULES)")
}

func TestBuildDependsOnModRestrictsOwnerToAtMostModule(t *testing.T) {
	table := parseTable(t, `
config A
	tristate "A"
	depends on m
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	a, _ := table.Lookup("A")
	yVar := lay.SymY(a)
	mVar, ok := lay.SymM(a)
	require.True(t, ok)
	pv := lay.PromptVar(a.Prompts()[0])
	// prompt visibility <-> (y -> m), encoded via an aux var since the
	// antecedent and consequent are both plain symbol literals.
	assert.Greater(t, b.NumVars(), lay.NumVars())
	aux := lay.NumVars() // the first Tseitin auxiliary: the (!y || m) node
	assert.True(t, eng.has(-aux, -yVar, mVar), "the aux variable must imply y -> m")
	assert.True(t, eng.has(-pv, aux), "a visible prompt must imply y -> m")
}

func TestBuildPinsSelectedFalseForSymbolsNobodySelects(t *testing.T) {
	table := parseTable(t, `
config GATE
	bool "Gate"

config A
	bool "A"
	select B if GATE

config B
	bool "B"
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	gate, _ := table.Lookup("GATE")
	a, _ := table.Lookup("A")
	assert.True(t, eng.has(-lay.SymSelected(gate)), "GATE is never a select target")
	assert.True(t, eng.has(-lay.SymSelected(a)), "A is never a select target")

	bSym, _ := table.Lookup("B")
	assert.False(t, eng.has(-lay.SymSelected(bSym)), "B is a select target and must stay free to be tied to its cause")
}

func TestBuildDefaultDoesNotFireWhenSymbolIsSelected(t *testing.T) {
	// Mirrors spec.md §8 scenario E: a select must be able to override a
	// plain, unconditional default rather than fight it to UNSAT.
	table := parseTable(t, `
config X
	bool
	default n

config Y
	bool
	select X
	default y
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	x, _ := table.Lookup("X")
	selectedX := lay.SymSelected(x)
	found := false
	for _, c := range eng.clauses {
		for _, lit := range c {
			if lit == selectedX || lit == -selectedX {
				found = true
			}
		}
	}
	assert.True(t, found, "X's default-active encoding must reference selected(X), or X=n and Y's select of X contradict")
	dv := lay.DefaultVar(x.Defaults()[0])
	assert.True(t, eng.has(-dv, -selectedX), "X's default can only be active while X is not selected")
}

func TestBuildChoiceDefaultForcesNamedValueOn(t *testing.T) {
	table := parseTable(t, `
choice
	prompt "Pick one"
	default B
config A
	bool "A"
config B
	bool "B"
endchoice
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	var choiceSym *kconfig.Symbol
	for _, s := range table.Symbols() {
		if s.IsChoice() {
			choiceSym = s
		}
	}
	require.NotNil(t, choiceSym)
	require.Len(t, choiceSym.Defaults(), 1)

	bSym, _ := table.Lookup("B")
	defaultVar := lay.DefaultVar(choiceSym.Defaults()[0])
	assert.True(t, eng.has(-defaultVar, lay.SymY(bSym)), "an active choice default must force its named value on")
}

func TestBuildDefaultCascadeFirstApplicableWins(t *testing.T) {
	table := parseTable(t, `
config MODULES
	bool "Enable loadable module support"

config DRIVER
	tristate "Driver"
	default m if MODULES
	default y
`)
	lay := layout.Build(table)
	eng := &fakeEngine{}
	b := NewBuilder(table, lay, eng)
	require.NoError(t, b.Build())

	driver, _ := table.Lookup("DRIVER")
	require.Len(t, driver.Defaults(), 2)
	// Each default gets its own "active" and "value" clauses recorded
	// as Facts tied to DRIVER.
	count := 0
	for _, f := range b.Facts {
		if f.Symbol == driver && f.Label == "default active (first applicable)" {
			count++
		}
	}
	assert.Equal(t, 2, count)

	// The second default can only be active when the first one's
	// condition (MODULES) is false: its "active" literal is defined as an
	// AND that includes !y(MODULES).
	modules, _ := table.Lookup("MODULES")
	dv2 := lay.DefaultVar(driver.Defaults()[1])
	gated := false
	for _, c := range eng.clauses {
		if len(c) != 2 || (c[0] != -dv2 && c[1] != -dv2) {
			continue
		}
		l := c[0]
		if l == -dv2 {
			l = c[1]
		}
		if eng.has(-l, -lay.SymY(modules)) {
			gated = true
		}
	}
	assert.True(t, gated, "the later default must be gated on the earlier default's condition being false")
}
