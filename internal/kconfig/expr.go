package kconfig

// ExprTag identifies the shape of an Expr node.
type ExprTag uint8

const (
	ExprSymbol ExprTag = iota
	ExprConst          // a literal string/int/hex token, never a declared Symbol
	ExprEqual
	ExprUnequal
	ExprNot
	ExprAnd
	ExprOr
	ExprList
	ExprRange
)

// Expr is the configuration-language expression AST spec.md §3
// describes: Symbol(sym), Equal(a,b), Unequal(a,b), Not(e), And(a,b),
// Or(a,b), List(children), Range(lo,hi). Leaves reference Symbols (the
// three sentinels included); ExprConst leaves hold a literal token for
// comparisons against int/hex/string symbols.
type Expr struct {
	Tag ExprTag

	Sym   *Symbol // ExprSymbol
	Const string  // ExprConst

	A, B *Expr   // ExprEqual/ExprUnequal/ExprAnd/ExprOr/ExprNot(A only)/ExprRange(A=lo,B=hi)
	List []*Expr // ExprList
}

// SymbolExpr returns an ExprSymbol leaf over sym.
func SymbolExpr(sym *Symbol) *Expr {
	return &Expr{Tag: ExprSymbol, Sym: sym}
}

// ConstExpr returns an ExprConst leaf over a literal token (never a
// declared symbol), used as the right-hand side of comparisons against
// int/hex/string symbols.
func ConstExpr(literal string) *Expr {
	return &Expr{Tag: ExprConst, Const: literal}
}

// And returns the conjunction of zero or more expressions, treating a
// nil/empty list as the absence of a condition (the caller should treat
// that as "always true" per spec.md's "if V is absent, CONST(true)").
func And(exprs ...*Expr) *Expr {
	var out *Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &Expr{Tag: ExprAnd, A: out, B: e}
	}
	return out
}

// GetStringValue returns the string form of a symbol's current value,
// used by Equal/Unequal lowering for int/hex/string-typed symbols
// (mirrors the original's sym_get_string_value).
func GetStringValue(sym *Symbol) (string, bool) {
	switch sym.Kind {
	case KindInt, KindHex, KindString:
		if sym.StringValue == "" {
			return "", false
		}
		return sym.StringValue, true
	case KindBool, KindTristate:
		return sym.Value.String(), true
	default:
		return "", false
	}
}
