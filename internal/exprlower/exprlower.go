// Package exprlower lowers the configuration language's tristate
// expression AST (internal/kconfig's Expr) into pairs of Boolean
// formulas over internal/boolexpr's hash-consed arena, the shape
// spec.md's ExprLower component describes. Every tristate value n/m/y
// is represented as a (Y, M) pair: Y is true whenever the expression is
// "on" (evaluates to m or y), M is true only when it evaluates to
// exactly m. M implies Y by construction in every rule below, matching
// the symbol-level sym_y/sym_m invariant internal/layout allocates.
package exprlower

import (
	"errors"

	"github.com/satconf/satconfig/internal/boolexpr"
	"github.com/satconf/satconfig/internal/kconfig"
	"github.com/satconf/satconfig/internal/layout"
)

// ErrUnknownComparison is returned when an Equal/Unequal expression
// references a symbol that was never declared with a concrete type
// (bool, tristate, int, hex, or string). The original compared such
// symbols by pointer identity; lowering rejects the comparison outright
// instead, since an UNKNOWN-typed symbol carries no well-defined value.
var ErrUnknownComparison = errors.New("exprlower: comparison involving a symbol with no declared type")

// ErrNotBoolean is returned when a non-comparison expression resolves
// to a symbol that isn't bool, tristate, or one of the y/m/n sentinels.
var ErrNotBoolean = errors.New("exprlower: expression does not have a tristate value")

// Pair is a lowered tristate expression.
type Pair struct {
	Y boolexpr.Ref
	M boolexpr.Ref
}

// Lowerer lowers kconfig.Expr trees using a shared BoolExpr arena and a
// symbol's allocated SAT variables.
type Lowerer struct {
	b   *boolexpr.Builder
	lay *layout.Layout
}

// New returns a Lowerer backed by b and lay. Both must outlive it.
func New(b *boolexpr.Builder, lay *layout.Layout) *Lowerer {
	return &Lowerer{b: b, lay: lay}
}

// Lower recursively lowers e into a (Y, M) pair.
func (lo *Lowerer) Lower(e *kconfig.Expr) (Pair, error) {
	switch e.Tag {
	case kconfig.ExprSymbol:
		return lo.lowerSymbol(e.Sym)

	case kconfig.ExprConst:
		// A bare literal used directly as a condition (rather than as
		// one side of a comparison) is never "on".
		return Pair{Y: lo.b.Const(false), M: lo.b.Const(false)}, nil

	case kconfig.ExprNot:
		inner, err := lo.Lower(e.A)
		if err != nil {
			return Pair{}, err
		}
		return lo.notPair(inner), nil

	case kconfig.ExprAnd:
		a, err := lo.Lower(e.A)
		if err != nil {
			return Pair{}, err
		}
		c, err := lo.Lower(e.B)
		if err != nil {
			return Pair{}, err
		}
		return Pair{
			Y: lo.b.And(a.Y, c.Y),
			M: lo.b.Or(lo.b.And(a.M, c.Y), lo.b.And(c.M, a.Y)),
		}, nil

	case kconfig.ExprOr:
		a, err := lo.Lower(e.A)
		if err != nil {
			return Pair{}, err
		}
		c, err := lo.Lower(e.B)
		if err != nil {
			return Pair{}, err
		}
		atMostM := lo.b.Implies(a.Y, a.M) // a is n or m, never exactly y
		cAtMostM := lo.b.Implies(c.Y, c.M)
		return Pair{
			Y: lo.b.Or(a.Y, c.Y),
			M: lo.b.And(lo.b.And(atMostM, cAtMostM), lo.b.Or(a.M, c.M)),
		}, nil

	case kconfig.ExprEqual, kconfig.ExprUnequal:
		return lo.lowerComparison(e)

	default:
		return Pair{}, errors.New("exprlower: unsupported expression shape")
	}
}

func (lo *Lowerer) lowerSymbol(sym *kconfig.Symbol) (Pair, error) {
	switch sym {
	case kconfig.SymYes:
		return Pair{Y: lo.b.Const(true), M: lo.b.Const(false)}, nil
	case kconfig.SymMod:
		return Pair{Y: lo.b.Const(true), M: lo.b.Const(true)}, nil
	case kconfig.SymNo:
		return Pair{Y: lo.b.Const(false), M: lo.b.Const(false)}, nil
	}
	if !sym.IsBoolOrTristate() {
		return Pair{}, ErrNotBoolean
	}
	y := lo.b.Var(lo.lay.SymY(sym))
	if mVar, ok := lo.lay.SymM(sym); ok {
		return Pair{Y: y, M: lo.b.Var(mVar)}, nil
	}
	return Pair{Y: y, M: lo.b.Const(false)}, nil
}

func (lo *Lowerer) notPair(e Pair) Pair {
	return Pair{
		Y: lo.b.Or(lo.b.Not(e.Y), e.M),
		M: e.M,
	}
}

// lowerComparison handles Equal/Unequal. Comparisons against an
// int/hex/string symbol (or a bare literal) are resolved at lowering
// time against that symbol's current value, since such symbols carry
// no SAT variables of their own. Comparisons between two bool/tristate
// operands lower to a BoolExpr EQ node per bit, combined conjunctively,
// never decomposed into a pair of implications.
func (lo *Lowerer) lowerComparison(e *kconfig.Expr) (Pair, error) {
	if kind, ok := operandKind(e.A); ok && kind == kconfig.KindUnknown {
		return Pair{}, ErrUnknownComparison
	}
	if kind, ok := operandKind(e.B); ok && kind == kconfig.KindUnknown {
		return Pair{}, ErrUnknownComparison
	}

	if isValueOperand(e.A) || isValueOperand(e.B) {
		av, aok := lo.operandStringValue(e.A)
		bv, bok := lo.operandStringValue(e.B)
		if !aok || !bok {
			return Pair{}, ErrUnknownComparison
		}
		eq := av == bv
		if e.Tag == kconfig.ExprUnequal {
			eq = !eq
		}
		return Pair{Y: lo.b.Const(eq), M: lo.b.Const(false)}, nil
	}

	a, err := lo.Lower(e.A)
	if err != nil {
		return Pair{}, err
	}
	c, err := lo.Lower(e.B)
	if err != nil {
		return Pair{}, err
	}
	eqY := lo.b.Eq(a.Y, c.Y)
	eqM := lo.b.Eq(a.M, c.M)
	combined := lo.b.And(eqY, eqM)
	if e.Tag == kconfig.ExprUnequal {
		combined = lo.b.Not(combined)
	}
	return Pair{Y: combined, M: lo.b.Const(false)}, nil
}

func operandKind(e *kconfig.Expr) (kconfig.Kind, bool) {
	if e.Tag == kconfig.ExprSymbol {
		return e.Sym.Kind, true
	}
	return kconfig.KindUnknown, false
}

func isValueOperand(e *kconfig.Expr) bool {
	if e.Tag == kconfig.ExprConst {
		return true
	}
	if e.Tag == kconfig.ExprSymbol {
		switch e.Sym.Kind {
		case kconfig.KindInt, kconfig.KindHex, kconfig.KindString:
			return true
		}
	}
	return false
}

func (lo *Lowerer) operandStringValue(e *kconfig.Expr) (string, bool) {
	switch e.Tag {
	case kconfig.ExprConst:
		return e.Const, true
	case kconfig.ExprSymbol:
		return kconfig.GetStringValue(e.Sym)
	default:
		return "", false
	}
}
