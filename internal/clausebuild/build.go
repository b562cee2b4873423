package clausebuild

import (
	"github.com/pkg/errors"

	"github.com/satconf/satconfig/internal/boolexpr"
	"github.com/satconf/satconfig/internal/exprlower"
	"github.com/satconf/satconfig/internal/kconfig"
	"github.com/satconf/satconfig/internal/layout"
)

// Fact labels one group of emitted clauses. Builder appends Facts in
// emission order; a Fact is not linked to clause indices or literals,
// and the Driver's UNSAT report does not read Facts.
type Fact struct {
	Label  string
	Symbol *kconfig.Symbol // nil for facts not tied to one symbol
}

// Builder compiles a parsed SymbolTable's properties into CNF clauses
// against a SAT engine, following the ClauseBuilder rules: tristate
// consistency, prompt visibility, default cascading, select
// propagation, justification, and choice exclusivity. Only the
// Driver's assumption literals are meant to be toggled per solve; every
// clause Builder emits is a structural invariant of the configuration
// it was built from.
type Builder struct {
	table *kconfig.SymbolTable
	lay   *layout.Layout
	bx    *boolexpr.Builder
	lo    *exprlower.Lowerer
	ts    *Tseitin
	eng   Clauser

	Facts []Fact
}

// NewBuilder returns a Builder that will emit clauses against eng for
// the symbols in table, using the SAT variables lay already allocated.
func NewBuilder(table *kconfig.SymbolTable, lay *layout.Layout, eng Clauser) *Builder {
	bx := boolexpr.NewBuilder()
	lo := exprlower.New(bx, lay)
	ts := NewTseitin(bx, eng, lay.TrueVar(), lay.NumVars())
	return &Builder{table: table, lay: lay, bx: bx, lo: lo, ts: ts, eng: eng}
}

// modulesYVar returns the SAT variable for MODULES' y bit, or 0 if no
// MODULES symbol was declared (in which case no symbol can resolve to
// "m" at all, since nothing pins sym_m(MODULES) meaningful either).
func (b *Builder) modulesYVar() int {
	modules := b.table.Modules()
	if modules == nil || !modules.IsBoolOrTristate() {
		return 0
	}
	return b.lay.SymY(modules)
}

// NumVars returns the next unallocated SAT variable index once Build
// has run (one more than the count of layout variables plus Tseitin
// auxiliaries, since variable 0 is never used).
func (b *Builder) NumVars() int { return b.ts.NextVar() }

// Build emits the TRUE_VAR unit clause plus every per-symbol,
// select, justification, and choice clause for table.
func (b *Builder) Build() error {
	b.eng.AddClause(b.lay.TrueVar())
	b.Facts = append(b.Facts, Fact{Label: "TRUE_VAR pinned true"})

	for _, sym := range b.table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		b.tristateConsistency(sym)
		if err := b.promptVisibility(sym); err != nil {
			return err
		}
		if sym.IsChoice() {
			// A choice block's own defaults cascade against its values'
			// selected/prompt state, not its own — handled by choices().
			continue
		}
		if err := b.defaultCascade(sym); err != nil {
			return err
		}
	}
	if err := b.selects(); err != nil {
		return err
	}
	b.justification()
	return b.choices()
}

func (b *Builder) assertIff(v int, body boolexpr.Ref, label string, sym *kconfig.Symbol) {
	l := b.ts.Literal(body)
	b.eng.AddClause(-v, l)
	b.eng.AddClause(v, -l)
	b.Facts = append(b.Facts, Fact{Label: label, Symbol: sym})
}

func (b *Builder) assertImplies(antecedent, consequent boolexpr.Ref, label string, sym *kconfig.Symbol) {
	la := b.ts.Literal(antecedent)
	lc := b.ts.Literal(consequent)
	b.eng.AddClause(-la, lc)
	b.Facts = append(b.Facts, Fact{Label: label, Symbol: sym})
}

// tristateConsistency pins m -> y for every tristate symbol (a symbol
// configured as exactly "m" is always at least "on") and m -> y(MODULES)
// (nothing can be a module unless module support itself is enabled).
func (b *Builder) tristateConsistency(sym *kconfig.Symbol) {
	mVar, ok := b.lay.SymM(sym)
	if !ok {
		return
	}
	yVar := b.lay.SymY(sym)
	b.eng.AddClause(-mVar, yVar)
	b.Facts = append(b.Facts, Fact{Label: "tristate consistency: m implies y", Symbol: sym})

	if mv := b.modulesYVar(); mv != 0 {
		b.eng.AddClause(-mVar, mv)
		b.Facts = append(b.Facts, Fact{Label: "tristate consistency: m implies MODULES", Symbol: sym})
	} else {
		b.eng.AddClause(-mVar)
		b.Facts = append(b.Facts, Fact{Label: "tristate consistency: no MODULES, m is false", Symbol: sym})
	}
}

func (b *Builder) promptVisibility(sym *kconfig.Symbol) error {
	for _, p := range sym.Prompts() {
		vis, err := b.lowerVisibilityFor(p.Visibility, sym)
		if err != nil {
			return err
		}
		b.assertIff(b.lay.PromptVar(p), vis.Y, "prompt visibility", sym)
	}
	return nil
}

// notSelectedNorPrompted is the starting "cond" of a default cascade:
// no other symbol has selected sym, and none of sym's own prompts is
// currently visible.
func (b *Builder) notSelectedNorPrompted(sym *kconfig.Symbol) boolexpr.Ref {
	cond := b.bx.Not(b.bx.Var(b.lay.SymSelected(sym)))
	for _, p := range sym.Prompts() {
		cond = b.bx.And(cond, b.bx.Not(b.bx.Var(b.lay.PromptVar(p))))
	}
	return cond
}

// defaultCascade ties each default property's "active" variable to
// "sym isn't selected or prompt-visible, its own condition holds, and
// no earlier-declared default's condition did", then ties an active
// default to the symbol's actual value. When no default ever becomes
// active, the symbol implicitly defaults to n.
func (b *Builder) defaultCascade(sym *kconfig.Symbol) error {
	defs := sym.Defaults()
	if len(defs) == 0 {
		return nil
	}
	cond := b.notSelectedNorPrompted(sym)
	for _, d := range defs {
		vis, err := b.lowerVisibilityFor(d.Visibility, sym)
		if err != nil {
			return err
		}
		active := b.bx.And(cond, vis.Y)
		v := b.lay.DefaultVar(d)
		b.assertIff(v, active, "default active (first applicable)", sym)
		cond = b.bx.And(cond, b.bx.Not(vis.Y))

		val, err := b.lo.Lower(d.Expr)
		if err != nil {
			return err
		}
		activeLit := b.bx.Var(v)
		yEq := b.bx.Eq(b.bx.Var(b.lay.SymY(sym)), val.Y)
		b.assertImplies(activeLit, yEq, "default value (y bit)", sym)
		if mVar, ok := b.lay.SymM(sym); ok {
			mEq := b.bx.Eq(b.bx.Var(mVar), val.M)
			b.assertImplies(activeLit, mEq, "default value (m bit)", sym)
		}
	}
	b.assertImplies(cond, b.bx.Not(b.bx.Var(b.lay.SymY(sym))), "default implicit off", sym)
	return nil
}

// selects accumulates, per select target, the disjunction of every
// "subject is on and the select's condition holds" cause, ties that to
// the target's selected variable, and forces the target on when
// selected is true.
func (b *Builder) selects() error {
	type accum struct {
		target *kconfig.Symbol
		expr   boolexpr.Ref
	}
	idx := make(map[*kconfig.Symbol]int)
	var order []*accum

	for _, sym := range b.table.Symbols() {
		for _, sel := range sym.Selects() {
			target := sel.Expr.Sym
			if target == nil || !target.IsBoolOrTristate() {
				continue
			}
			subjectY := b.bx.Var(b.lay.SymY(sym))
			vis, err := b.lowerVisibilityFor(sel.Visibility, sym)
			if err != nil {
				return err
			}
			cause := b.bx.And(subjectY, vis.Y)
			if i, ok := idx[target]; ok {
				order[i].expr = b.bx.Or(order[i].expr, cause)
			} else {
				idx[target] = len(order)
				order = append(order, &accum{target: target, expr: cause})
			}
		}
	}
	for _, a := range order {
		v := b.lay.SymSelected(a.target)
		b.assertIff(v, a.expr, "select accumulation", a.target)
		b.eng.AddClause(-v, b.lay.SymY(a.target))
		b.Facts = append(b.Facts, Fact{Label: "select forces target on", Symbol: a.target})
	}

	// A symbol nobody ever selects still has a selected variable
	// (layout allocates one uniformly), but nothing above ties it to
	// anything: left alone it is a free variable that would let
	// justification() below be satisfied vacuously by just setting it
	// true. Pin it false so "selected" only ever means what its name
	// says.
	for _, sym := range b.table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		if _, ok := idx[sym]; ok {
			continue
		}
		b.eng.AddClause(-b.lay.SymSelected(sym))
		b.Facts = append(b.Facts, Fact{Label: "never selected: selected is false", Symbol: sym})
	}
	return nil
}

// justification requires that a symbol configured on have a reason: a
// visible prompt, an active default, or a selecting symbol. Note that
// sym_assumed(s) plays no part here — it is pure Driver bookkeeping
// (a marker bit the Driver pins via assumption to record that it is
// deliberately overriding s), not a structural justification: a direct
// driver assumption that a dependency forbids is correctly reported as
// UnsatisfiableAssumptions, not quietly let through.
func (b *Builder) justification() {
	for _, sym := range b.table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		reason := b.bx.Var(b.lay.SymSelected(sym))
		for _, p := range sym.Prompts() {
			reason = b.bx.Or(reason, b.bx.Var(b.lay.PromptVar(p)))
		}
		for _, d := range sym.Defaults() {
			reason = b.bx.Or(reason, b.bx.Var(b.lay.DefaultVar(d)))
		}
		b.assertImplies(b.bx.Var(b.lay.SymY(sym)), reason, "justification: on implies justified", sym)
	}
}

// choices enforces mutual exclusion between a choice block's values,
// "at least one" when the choice is visible and non-optional, and the
// choice's own default cascade (if any).
func (b *Builder) choices() error {
	for _, sym := range b.table.Symbols() {
		if !sym.IsChoice() {
			continue
		}
		values := sym.ChoiceValues()
		for i := 0; i < len(values); i++ {
			for j := i + 1; j < len(values); j++ {
				b.eng.AddClause(-b.lay.SymY(values[i]), -b.lay.SymY(values[j]))
			}
		}
		if len(values) > 1 {
			b.Facts = append(b.Facts, Fact{Label: "choice mutual exclusion", Symbol: sym})
		}

		if err := b.choiceDefaultCascade(sym); err != nil {
			return err
		}

		if sym.IsOptional() || len(values) == 0 {
			continue
		}
		atLeastOne := make([]int, 0, len(values)+1)
		if prompts := sym.Prompts(); len(prompts) > 0 {
			atLeastOne = append(atLeastOne, -b.lay.PromptVar(prompts[0]))
		}
		for _, v := range values {
			atLeastOne = append(atLeastOne, b.lay.SymY(v))
		}
		b.eng.AddClause(atLeastOne...)
		b.Facts = append(b.Facts, Fact{Label: "non-optional choice requires a selection when visible", Symbol: sym})
	}
	return nil
}

// choiceDefaultCascade implements the choice variant of defaultCascade:
// cond starts as "none of the choice's values is already selected or
// visibly prompted", and an active default forces the value it names
// on, rather than binding the block's own y/m bits.
func (b *Builder) choiceDefaultCascade(choice *kconfig.Symbol) error {
	defs := choice.Defaults()
	if len(defs) == 0 {
		return nil
	}
	anyChosen := b.bx.Const(false)
	for _, v := range choice.ChoiceValues() {
		term := b.bx.Var(b.lay.SymSelected(v))
		for _, p := range v.Prompts() {
			term = b.bx.Or(term, b.bx.Var(b.lay.PromptVar(p)))
		}
		anyChosen = b.bx.Or(anyChosen, term)
	}
	cond := b.bx.Not(anyChosen)

	for _, d := range defs {
		vis, err := b.lowerVisibilityFor(d.Visibility, choice)
		if err != nil {
			return err
		}
		active := b.bx.And(cond, vis.Y)
		v := b.lay.DefaultVar(d)
		b.assertIff(v, active, "choice default active (first applicable)", choice)
		cond = b.bx.And(cond, b.bx.Not(vis.Y))

		chosen := d.Expr.Sym
		if chosen == nil || !chosen.IsBoolOrTristate() {
			return errors.Errorf("choice default in %q does not name a value symbol", choice.Name)
		}
		b.assertImplies(b.bx.Var(v), b.bx.Var(b.lay.SymY(chosen)), "choice default forces value on", choice)
	}
	return nil
}

func (b *Builder) lowerVisibility(vis *kconfig.Expr) (exprlower.Pair, error) {
	if vis == nil {
		return exprlower.Pair{Y: b.bx.Const(true), M: b.bx.Const(false)}, nil
	}
	return b.lo.Lower(vis)
}

// lowerVisibilityFor is lowerVisibility with one special case: a bare
// "depends on m" (or "select X if m") on a tristate symbol owner does
// not mean "unconditionally active" the way the generic m sentinel
// would lower everywhere else — it restricts owner to n or m, i.e.
// sym_y(owner) -> sym_m(owner).
func (b *Builder) lowerVisibilityFor(vis *kconfig.Expr, owner *kconfig.Symbol) (exprlower.Pair, error) {
	if vis != nil && vis.Tag == kconfig.ExprSymbol && vis.Sym == kconfig.SymMod && owner.IsTristate() {
		ownerY := b.bx.Var(b.lay.SymY(owner))
		ownerM, _ := b.lay.SymM(owner)
		return exprlower.Pair{
			Y: b.bx.Implies(ownerY, b.bx.Var(ownerM)),
			M: b.bx.Const(false),
		}, nil
	}
	return b.lowerVisibility(vis)
}
