// Package kconfig implements the configuration-language collaborator
// described in spec.md §3/§6: a symbol table, property lists, and an
// expression AST, together with a parser and the two writers the Driver
// calls at the end of a successful solve. None of this package knows
// about SAT variables or Boolean algebra — it only records what the
// configuration language says, leaving the tristate algebra to
// internal/exprlower and internal/clausebuild.
package kconfig

// Kind is the declared type of a Symbol.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBool
	KindTristate
	KindInt
	KindHex
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindTristate:
		return "tristate"
	case KindInt:
		return "int"
	case KindHex:
		return "hex"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Tristate is a value in {n, m, y}.
type Tristate uint8

const (
	No Tristate = iota
	Mod
	Yes
)

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "y"
	case Mod:
		return "m"
	default:
		return "n"
	}
}

// Flag is a bitset of Symbol-level flags.
type Flag uint32

const (
	FlagOptional Flag = 1 << iota
	FlagChoice
	FlagChoiceValue
	FlagDefUser
	FlagDefSat
)

func (s *Symbol) Has(f Flag) bool { return s.Flags&f != 0 }

// PropertyKind identifies the shape of a Property.
type PropertyKind uint8

const (
	PropPrompt PropertyKind = iota
	PropDefault
	PropSelect
	PropChoices
	PropRange
	PropEnv
)

// Property is one entry in a Symbol's ordered property list.
type Property struct {
	Kind PropertyKind

	// Text holds the prompt string for PropPrompt.
	Text string

	// Expr holds the default value (PropDefault) or select target
	// (PropSelect) expression.
	Expr *Expr

	// Visibility is the conjoined menu/if condition under which this
	// property applies; nil means unconditionally visible/active.
	Visibility *Expr

	// Choices lists the member symbols of a PropChoices property, in
	// declaration order.
	Choices []*Symbol

	// Low, High bound a PropRange property.
	Low, High string

	// SATVar is filled in by internal/layout for PropPrompt and
	// PropDefault properties; it is meaningless for other kinds.
	SATVar int
}

// Symbol is one configuration-language symbol.
type Symbol struct {
	Name string
	Kind Kind

	Properties []*Property
	Flags      Flag

	// Value is the symbol's last-known value: for BOOL/TRISTATE it is
	// read through Tristate; for INT/HEX/STRING it is read through
	// StringValue.
	Value       Tristate
	StringValue string

	// SATBase is the index of the first SAT variable allocated for this
	// symbol, filled in by internal/layout.
	SATBase int

	order int // declaration order, for deterministic iteration
}

// IsBool reports whether s is a plain boolean symbol.
func (s *Symbol) IsBool() bool { return s.Kind == KindBool }

// IsTristate reports whether s is a tristate symbol.
func (s *Symbol) IsTristate() bool { return s.Kind == KindTristate }

// IsBoolOrTristate reports whether s participates in the Boolean SAT
// theory at all.
func (s *Symbol) IsBoolOrTristate() bool { return s.IsBool() || s.IsTristate() }

// IsChoice reports whether s is an (anonymous) choice block.
func (s *Symbol) IsChoice() bool { return s.Has(FlagChoice) }

// IsOptional reports whether s (a choice block, typically) may resolve
// to "none selected".
func (s *Symbol) IsOptional() bool { return s.Has(FlagOptional) }

// Prompts returns every PropPrompt property on s, in declaration order.
func (s *Symbol) Prompts() []*Property {
	return s.propertiesOfKind(PropPrompt)
}

// Defaults returns every PropDefault property on s, in declaration
// (i.e. priority) order.
func (s *Symbol) Defaults() []*Property {
	return s.propertiesOfKind(PropDefault)
}

// Selects returns every PropSelect property on s.
func (s *Symbol) Selects() []*Property {
	return s.propertiesOfKind(PropSelect)
}

// ChoiceValues returns the member symbols of s's PropChoices property,
// or nil if s carries none.
func (s *Symbol) ChoiceValues() []*Symbol {
	for _, p := range s.Properties {
		if p.Kind == PropChoices {
			return p.Choices
		}
	}
	return nil
}

func (s *Symbol) propertiesOfKind(k PropertyKind) []*Property {
	var out []*Property
	for _, p := range s.Properties {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}

// Sentinel symbols representing the three tristate constants. Their
// identity is stable for the lifetime of the process, matching the
// original's static symbol_no/symbol_yes/symbol_mod.
var (
	SymNo  = &Symbol{Name: "n", Kind: KindTristate, Value: No}
	SymYes = &Symbol{Name: "y", Kind: KindTristate, Value: Yes}
	SymMod = &Symbol{Name: "m", Kind: KindTristate, Value: Mod}
)

// SymbolTable owns every Symbol parsed from a configuration file, in
// declaration order, plus a name index.
type SymbolTable struct {
	symbols []*Symbol
	byName  map[string]*Symbol

	anonCount int
}

// NewSymbolTable returns an empty SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: make(map[string]*Symbol)}
}

// Symbols returns every symbol in declaration order.
func (t *SymbolTable) Symbols() []*Symbol {
	return t.symbols
}

// Lookup returns the symbol named name, if any.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.byName[name]
	return sym, ok
}

// GetOrCreate returns the symbol named name, creating an UNKNOWN-typed
// placeholder (the "referenced only in some architectures' files" case
// from the original) if it has not been declared yet.
func (t *SymbolTable) GetOrCreate(name string) *Symbol {
	if sym, ok := t.byName[name]; ok {
		return sym
	}
	sym := &Symbol{Name: name, order: len(t.symbols)}
	t.symbols = append(t.symbols, sym)
	t.byName[name] = sym
	return sym
}

// newAnonChoice allocates a fresh anonymous choice-block symbol.
func (t *SymbolTable) newAnonChoice() *Symbol {
	name := ""
	sym := &Symbol{Name: name, Kind: KindBool, Flags: FlagChoice, order: len(t.symbols)}
	t.symbols = append(t.symbols, sym)
	t.anonCount++
	return sym
}

// Modules returns the well-known MODULES symbol, or nil if the parsed
// configuration never declared one (matching the original's
// sym_find("MODULES") lookup by name rather than a dedicated sentinel).
func (t *SymbolTable) Modules() *Symbol {
	sym, ok := t.byName["MODULES"]
	if !ok {
		return nil
	}
	return sym
}
