package kconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExprStringPrecedence(t *testing.T) {
	table := NewSymbolTable()
	table.GetOrCreate("A")
	table.GetOrCreate("B")
	table.GetOrCreate("C")

	e, err := parseExprString(table, "A || B && !C")
	require.NoError(t, err)
	// && binds tighter than ||, so this parses as A || (B && (!C)).
	require.Equal(t, ExprOr, e.Tag)
	assert.Equal(t, "A", e.A.Sym.Name)
	require.Equal(t, ExprAnd, e.B.Tag)
	assert.Equal(t, "B", e.B.A.Sym.Name)
	require.Equal(t, ExprNot, e.B.B.Tag)
	assert.Equal(t, "C", e.B.B.A.Sym.Name)
}

func TestParseExprStringParens(t *testing.T) {
	table := NewSymbolTable()
	table.GetOrCreate("A")
	table.GetOrCreate("B")
	table.GetOrCreate("C")

	e, err := parseExprString(table, "(A || B) && C")
	require.NoError(t, err)
	require.Equal(t, ExprAnd, e.Tag)
	require.Equal(t, ExprOr, e.A.Tag)
}

func TestParseExprStringComparison(t *testing.T) {
	table := NewSymbolTable()
	table.GetOrCreate("ARCH")

	e, err := parseExprString(table, `ARCH = "x86"`)
	require.NoError(t, err)
	require.Equal(t, ExprEqual, e.Tag)
	assert.Equal(t, "ARCH", e.A.Sym.Name)
	assert.Equal(t, ExprConst, e.B.Tag)
	assert.Equal(t, "x86", e.B.Const)

	e2, err := parseExprString(table, `ARCH != "arm"`)
	require.NoError(t, err)
	assert.Equal(t, ExprUnequal, e2.Tag)
}

func TestParseExprStringSentinels(t *testing.T) {
	table := NewSymbolTable()
	e, err := parseExprString(table, "y")
	require.NoError(t, err)
	assert.Same(t, SymYes, e.Sym)

	e, err = parseExprString(table, "m")
	require.NoError(t, err)
	assert.Same(t, SymMod, e.Sym)

	e, err = parseExprString(table, "n")
	require.NoError(t, err)
	assert.Same(t, SymNo, e.Sym)
}

func TestParseExprStringUnterminatedStringErrors(t *testing.T) {
	table := NewSymbolTable()
	_, err := parseExprString(table, `ARCH = "x86`)
	assert.Error(t, err)
}

func TestParseExprStringTrailingTokensError(t *testing.T) {
	table := NewSymbolTable()
	table.GetOrCreate("A")
	table.GetOrCreate("B")
	_, err := parseExprString(table, "A B")
	assert.Error(t, err)
}

func TestAndHelperSkipsNilsAndFlattensLeftward(t *testing.T) {
	table := NewSymbolTable()
	a := SymbolExpr(table.GetOrCreate("A"))
	b := SymbolExpr(table.GetOrCreate("B"))

	assert.Nil(t, And(nil, nil))
	assert.Equal(t, a, And(nil, a, nil))

	combined := And(a, b)
	require.Equal(t, ExprAnd, combined.Tag)
	assert.Equal(t, a, combined.A)
	assert.Equal(t, b, combined.B)
}
