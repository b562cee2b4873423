// Package satengine wraps gini's raw CNF-level interface behind the
// DIMACS-style signed-integer literal convention internal/clausebuild
// and internal/layout already use, so callers never touch a z.Lit
// directly.
package satengine

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// Outcome is the result of a Solve call.
type Outcome int

const (
	Unknown Outcome = iota
	Satisfiable
	Unsatisfiable
)

// Engine is a façade over *gini.Gini restricted to the operations the
// configuration solver needs: streaming clause/assumption addition by
// plain int literals, incremental assumption scopes, and post-solve
// value/conflict queries.
type Engine struct {
	g        *gini.Gini
	nClauses int
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{g: gini.New()}
}

// AddClause adds lits as a single disjunctive clause. A positive int n
// is the literal for variable n; -n is its negation.
func (e *Engine) AddClause(lits ...int) {
	for _, l := range lits {
		e.g.Add(z.Dimacs2Lit(l))
	}
	e.g.Add(0)
	e.nClauses++
}

// NumClauses returns the number of clauses added so far, for the
// driver's progress summary.
func (e *Engine) NumClauses() int {
	return e.nClauses
}

// Assume pins each of lits true for the next Solve call only, the way
// driving assumptions (overlay values, random-policy choices) are
// applied without baking them into the clause set.
func (e *Engine) Assume(lits ...int) {
	for _, l := range lits {
		e.g.Assume(z.Dimacs2Lit(l))
	}
}

// Test pushes a new incremental assumption scope and reports whether
// the formula is satisfiable under everything assumed so far,
// including assumptions pushed in enclosing scopes.
func (e *Engine) Test() Outcome {
	result, _ := e.g.Test(nil)
	return fromGini(result)
}

// Untest pops the innermost assumption scope pushed by Test.
func (e *Engine) Untest() Outcome {
	return fromGini(e.g.Untest())
}

// Solve runs a full solve under whatever assumptions are currently in
// effect.
func (e *Engine) Solve() Outcome {
	return fromGini(e.g.Solve())
}

// Value returns the solved truth value of variable v. Only meaningful
// after a Satisfiable outcome.
func (e *Engine) Value(v int) bool {
	return e.g.Value(z.Dimacs2Lit(v))
}

// Why returns the literals gini cites as a reason for the last
// Unsatisfiable outcome, as signed ints in the same convention as
// AddClause/Assume.
func (e *Engine) Why() []int {
	whys := e.g.Why(nil)
	out := make([]int, len(whys))
	for i, w := range whys {
		out[i] = w.Dimacs()
	}
	return out
}

func fromGini(result int) Outcome {
	switch result {
	case 1:
		return Satisfiable
	case -1:
		return Unsatisfiable
	default:
		return Unknown
	}
}
