// Package layout assigns SAT variable numbers to every symbol, prompt,
// and default property spec.md's VariableLayout component describes.
// It owns no Boolean algebra of its own: internal/exprlower and
// internal/clausebuild consume the numbers it hands out.
package layout

import "github.com/satconf/satconfig/internal/kconfig"

// Layout is the allocated SAT variable space for one configuration
// table: a pinned TRUE_VAR, then per bool/tristate symbol a y bit
// (plus an m bit for tristate symbols), an "assumed" bit and a
// "selected" bit, and one bit per prompt/default property.
type Layout struct {
	trueVar int

	symY        map[*kconfig.Symbol]int
	symM        map[*kconfig.Symbol]int
	symAssumed  map[*kconfig.Symbol]int
	symSelected map[*kconfig.Symbol]int

	promptVar  map[*kconfig.Property]int
	defaultVar map[*kconfig.Property]int

	next int
}

// Build walks table in declaration order and allocates every symbol's
// variable block deterministically, so two Builds of the same table
// produce identical numbering.
func Build(table *kconfig.SymbolTable) *Layout {
	l := &Layout{
		symY:        make(map[*kconfig.Symbol]int),
		symM:        make(map[*kconfig.Symbol]int),
		symAssumed:  make(map[*kconfig.Symbol]int),
		symSelected: make(map[*kconfig.Symbol]int),
		promptVar:   make(map[*kconfig.Property]int),
		defaultVar:  make(map[*kconfig.Property]int),
		next:        1,
	}
	l.trueVar = l.alloc()

	for _, sym := range table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		sym.SATBase = l.next
		l.symY[sym] = l.alloc()
		if sym.IsTristate() {
			l.symM[sym] = l.alloc()
		}
		l.symAssumed[sym] = l.alloc()
		l.symSelected[sym] = l.alloc()

		for _, p := range sym.Prompts() {
			p.SATVar = l.alloc()
			l.promptVar[p] = p.SATVar
		}
		for _, d := range sym.Defaults() {
			d.SATVar = l.alloc()
			l.defaultVar[d] = d.SATVar
		}
	}
	return l
}

func (l *Layout) alloc() int {
	v := l.next
	l.next++
	return v
}

// NumVars returns the next unallocated SAT variable index: the highest
// index handed out plus one, which is one more than the number of
// variables allocated, since variable 0 is never used.
func (l *Layout) NumVars() int { return l.next }

// TrueVar returns the variable pinned true by a unit clause, standing
// in for BoolExpr's CONST(true) leaf at the CNF level.
func (l *Layout) TrueVar() int { return l.trueVar }

// SymY returns s's y variable.
func (l *Layout) SymY(s *kconfig.Symbol) int {
	v, ok := l.symY[s]
	if !ok {
		panic("layout: symbol has no y variable: " + s.Name)
	}
	return v
}

// SymM returns s's m variable and whether it has one (only tristate
// symbols do; bool symbols are always m=false).
func (l *Layout) SymM(s *kconfig.Symbol) (int, bool) {
	v, ok := l.symM[s]
	return v, ok
}

// SymAssumed returns s's "currently under assumption" variable.
func (l *Layout) SymAssumed(s *kconfig.Symbol) int {
	v, ok := l.symAssumed[s]
	if !ok {
		panic("layout: symbol has no assumed variable: " + s.Name)
	}
	return v
}

// SymSelected returns s's "selected by some other symbol" variable.
func (l *Layout) SymSelected(s *kconfig.Symbol) int {
	v, ok := l.symSelected[s]
	if !ok {
		panic("layout: symbol has no selected variable: " + s.Name)
	}
	return v
}

// PromptVar returns p's visibility variable.
func (l *Layout) PromptVar(p *kconfig.Property) int {
	v, ok := l.promptVar[p]
	if !ok {
		panic("layout: property has no prompt variable")
	}
	return v
}

// DefaultVar returns p's "this default is the active one" variable.
func (l *Layout) DefaultVar(p *kconfig.Property) int {
	v, ok := l.defaultVar[p]
	if !ok {
		panic("layout: property has no default variable")
	}
	return v
}

// Describe renders a variable (its absolute value; sign is the
// caller's concern) as a human-readable name for diagnostics, e.g.
// "y(DRIVER)", or "prompt(Driver)" using the prompt's text; default
// properties carry no text and render as "default()". It scans the
// allocation tables, so
// it is meant for rendering small UNSAT cores, not hot-path use.
func (l *Layout) Describe(v int) string {
	if v < 0 {
		v = -v
	}
	if v == l.trueVar {
		return "TRUE_VAR"
	}
	for s, sv := range l.symY {
		if sv == v {
			return "y(" + s.Name + ")"
		}
	}
	for s, sv := range l.symM {
		if sv == v {
			return "m(" + s.Name + ")"
		}
	}
	for s, sv := range l.symAssumed {
		if sv == v {
			return "assumed(" + s.Name + ")"
		}
	}
	for s, sv := range l.symSelected {
		if sv == v {
			return "selected(" + s.Name + ")"
		}
	}
	for p, pv := range l.promptVar {
		if pv == v {
			return "prompt(" + p.Text + ")"
		}
	}
	for p, pv := range l.defaultVar {
		if pv == v {
			return "default(" + p.Text + ")"
		}
	}
	return "aux"
}
