package kconfig

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefSlot identifies which overlay a ReadSimple call is populating,
// mirroring the original's S_DEF_USER/S_DEF_SAT distinction between a
// plain user-supplied value and a .satconfig preference the Driver
// assumes when solving.
type DefSlot uint8

const (
	DefSlotUser DefSlot = iota
	DefSlotSAT
)

// ReadSimple overlays "CONFIG_NAME=value" / "# CONFIG_NAME is not set"
// assignments from path onto t, mirroring conf_read_simple(path, slot).
// A missing file is not an error: it means no overlay applies.
func (t *SymbolTable) ReadSimple(path string, slot DefSlot) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := t.applyConfigLine(line, slot); err != nil {
			return errors.Wrapf(err, "%s:%d", path, lineNo)
		}
	}
	return errors.Wrapf(scanner.Err(), "reading %s", path)
}

func (t *SymbolTable) applyConfigLine(line string, slot DefSlot) error {
	if strings.HasPrefix(line, "#") {
		rest := strings.TrimSpace(strings.TrimPrefix(line, "#"))
		if !strings.HasSuffix(rest, "is not set") {
			return nil // an ordinary comment line
		}
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSuffix(rest, "is not set"), "CONFIG_"))
		if name == "" {
			return errors.Errorf("malformed comment line %q", line)
		}
		sym := t.GetOrCreate(name)
		sym.Value = No
		markSlot(sym, slot)
		return nil
	}

	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return errors.Errorf("malformed line %q", line)
	}
	name := strings.TrimPrefix(line[:idx], "CONFIG_")
	if name == "" {
		return errors.Errorf("malformed line %q", line)
	}
	value := strings.TrimSpace(line[idx+1:])
	sym := t.GetOrCreate(name)
	switch value {
	case "y":
		sym.Value = Yes
	case "m":
		sym.Value = Mod
	case "n":
		sym.Value = No
	default:
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			sym.StringValue = value[1 : len(value)-1]
		} else {
			sym.StringValue = value
		}
	}
	markSlot(sym, slot)
	return nil
}

func markSlot(sym *Symbol, slot DefSlot) {
	switch slot {
	case DefSlotUser:
		sym.Flags |= FlagDefUser
	case DefSlotSAT:
		sym.Flags |= FlagDefSat
	}
}

// MaterializeDefaults applies each bool/tristate symbol's first
// applicable default value directly, without involving the SAT engine,
// mirroring the original's plain sym_calc_value used to pre-seed values
// before a solve. Int/hex/string symbols are left untouched. The
// Driver's read-back later replaces every bool/tristate Value with the
// solved one. It never overrides a value already supplied by
// ReadSimple, in either slot.
func (t *SymbolTable) MaterializeDefaults() {
	for _, sym := range t.symbols {
		if !sym.IsBoolOrTristate() || sym.Has(FlagDefUser) || sym.Has(FlagDefSat) {
			continue
		}
		for _, def := range sym.Defaults() {
			if !evalCond(def.Visibility) {
				continue
			}
			v, ok := evalTristate(def.Expr)
			if !ok {
				continue
			}
			// Only a record of a plausible starting value, not a
			// driver assumption: FlagDefSat is reserved for values
			// that actually came from a .satconfig overlay.
			sym.Value = v
			break
		}
	}
}

func evalCond(e *Expr) bool {
	if e == nil {
		return true
	}
	v, ok := evalTristate(e)
	return ok && v != No
}

// evalTristate is a small non-SAT expression evaluator over symbols'
// *current* Value/StringValue fields, used only by MaterializeDefaults.
// It is deliberately not the authoritative semantics: internal/exprlower
// lowers the same Expr shapes into Boolean constraints for the solver.
func evalTristate(e *Expr) (Tristate, bool) {
	switch e.Tag {
	case ExprSymbol:
		return e.Sym.Value, true
	case ExprNot:
		v, ok := evalTristate(e.A)
		if !ok {
			return No, false
		}
		switch v {
		case Yes:
			return No, true
		case No:
			return Yes, true
		default:
			return Mod, true
		}
	case ExprAnd:
		a, ok := evalTristate(e.A)
		if !ok {
			return No, false
		}
		b, ok := evalTristate(e.B)
		if !ok {
			return No, false
		}
		return minTristate(a, b), true
	case ExprOr:
		a, ok := evalTristate(e.A)
		if !ok {
			return No, false
		}
		b, ok := evalTristate(e.B)
		if !ok {
			return No, false
		}
		return maxTristate(a, b), true
	case ExprEqual, ExprUnequal:
		eq := exprOperandsEqual(e.A, e.B)
		if e.Tag == ExprUnequal {
			eq = !eq
		}
		if eq {
			return Yes, true
		}
		return No, true
	default:
		return No, false
	}
}

func exprOperandsEqual(a, b *Expr) bool {
	av, aok := operandStringValue(a)
	bv, bok := operandStringValue(b)
	return aok && bok && av == bv
}

func operandStringValue(e *Expr) (string, bool) {
	switch e.Tag {
	case ExprConst:
		return e.Const, true
	case ExprSymbol:
		return GetStringValue(e.Sym)
	default:
		return "", false
	}
}

func minTristate(a, b Tristate) Tristate {
	if a < b {
		return a
	}
	return b
}

func maxTristate(a, b Tristate) Tristate {
	if a > b {
		return a
	}
	return b
}
