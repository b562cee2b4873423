// Package clausebuild lowers a parsed configuration table into CNF
// clauses: the Tseitin transform over internal/boolexpr's arena, and
// the ClauseBuilder rules spec.md describes (tristate consistency,
// prompt visibility, default cascading, select propagation,
// justification, and choice exclusivity) built on top of it.
package clausebuild

import "github.com/satconf/satconfig/internal/boolexpr"

// Clauser is the minimal interface the Tseitin encoder needs from the
// SAT engine: streaming, already-terminated clause addition.
type Clauser interface {
	AddClause(lits ...int)
}

// Tseitin lowers BoolExpr trees into CNF clauses, allocating one fresh
// auxiliary variable per distinct AND/OR/EQ node (hash-consing means a
// node reused across many facts is encoded once and cached).
type Tseitin struct {
	b       *boolexpr.Builder
	engine  Clauser
	trueVar int
	nextVar int
	cache   map[boolexpr.Ref]int
}

// NewTseitin returns an encoder that starts allocating fresh auxiliary
// variables at firstAuxVar (the caller's layout.Layout.NumVars()).
func NewTseitin(b *boolexpr.Builder, engine Clauser, trueVar, firstAuxVar int) *Tseitin {
	return &Tseitin{
		b:       b,
		engine:  engine,
		trueVar: trueVar,
		nextVar: firstAuxVar,
		cache:   make(map[boolexpr.Ref]int),
	}
}

// NextVar returns the next unallocated variable index, i.e. one more
// than the highest variable index in use once encoding is finished.
func (t *Tseitin) NextVar() int { return t.nextVar }

// Literal returns the signed DIMACS literal equivalent to r, emitting
// defining clauses for any compound subexpression not already encoded.
func (t *Tseitin) Literal(r boolexpr.Ref) int {
	switch t.b.Tag(r) {
	case boolexpr.TagConst:
		if t.b.ConstValue(r) {
			return t.trueVar
		}
		return -t.trueVar
	case boolexpr.TagLiteral:
		return t.b.LiteralValue(r)
	case boolexpr.TagNot:
		return -t.Literal(t.b.Operand(r))
	default:
		if v, ok := t.cache[r]; ok {
			return v
		}
		v := t.alloc()
		t.cache[r] = v
		switch t.b.Tag(r) {
		case boolexpr.TagAnd:
			a, c := t.b.Operands(r)
			t.defineAnd(v, t.Literal(a), t.Literal(c))
		case boolexpr.TagOr:
			a, c := t.b.Operands(r)
			t.defineOr(v, t.Literal(a), t.Literal(c))
		case boolexpr.TagEq:
			a, c := t.b.Operands(r)
			t.defineEq(v, t.Literal(a), t.Literal(c))
		default:
			panic("clausebuild: unknown BoolExpr tag")
		}
		return v
	}
}

func (t *Tseitin) alloc() int {
	v := t.nextVar
	t.nextVar++
	return v
}

// defineAnd emits v <-> (a && c): (!v||a) (!v||c) (v||!a||!c)
func (t *Tseitin) defineAnd(v, a, c int) {
	t.engine.AddClause(-v, a)
	t.engine.AddClause(-v, c)
	t.engine.AddClause(v, -a, -c)
}

// defineOr emits v <-> (a || c): (!v||a||c) (v||!a) (v||!c)
func (t *Tseitin) defineOr(v, a, c int) {
	t.engine.AddClause(-v, a, c)
	t.engine.AddClause(v, -a)
	t.engine.AddClause(v, -c)
}

// defineEq emits v <-> (a == c) as the compact 4-clause encoding, never
// decomposed into a pair of implications:
//
//	(!v||!a||c) (!v||a||!c) (v||a||c) (v||!a||!c)
func (t *Tseitin) defineEq(v, a, c int) {
	t.engine.AddClause(-v, -a, c)
	t.engine.AddClause(-v, a, -c)
	t.engine.AddClause(v, a, c)
	t.engine.AddClause(v, -a, -c)
}
