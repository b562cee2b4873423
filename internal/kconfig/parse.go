package kconfig

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type pendingSymbol struct {
	sym       *Symbol
	dependsOn *Expr // conjunction of every "depends on" line seen for this symbol
}

type choiceFrame struct {
	sym    *Symbol
	values []*Symbol
}

type parser struct {
	table       *SymbolTable
	current     *pendingSymbol
	condStack   []*Expr // menu/if nesting, conjoined
	choiceStack []*choiceFrame
	line        int
}

// Parse reads a configuration-language file from path and returns its
// symbol table.
func Parse(path string) (*SymbolTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return ParseReader(f, path)
}

// ParseReader parses a configuration-language file read from r; path is
// used only to annotate error messages.
func ParseReader(r io.Reader, path string) (*SymbolTable, error) {
	p := &parser{table: NewSymbolTable()}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line++
		if err := p.processLine(scanner.Text()); err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, p.line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	p.finalizeCurrent()
	if len(p.condStack) != 0 {
		return nil, errors.Errorf("%s: unterminated if/menu block", path)
	}
	if len(p.choiceStack) != 0 {
		return nil, errors.Errorf("%s: unterminated choice block", path)
	}
	return p.table, nil
}

func (p *parser) processLine(raw string) error {
	line := strings.TrimSpace(stripComment(raw))
	if line == "" {
		return nil
	}
	fields := strings.Fields(line)
	kw := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, kw))

	switch kw {
	case "config":
		p.finalizeCurrent()
		if len(fields) < 2 {
			return errors.New("config requires a symbol name")
		}
		sym := p.table.GetOrCreate(fields[1])
		if len(p.choiceStack) > 0 {
			sym.Flags |= FlagChoiceValue
			top := p.choiceStack[len(p.choiceStack)-1]
			top.values = append(top.values, sym)
		}
		p.current = &pendingSymbol{sym: sym}
		return nil

	case "bool", "tristate", "int", "hex", "string":
		if p.current == nil {
			return errors.Errorf("%s outside a config block", kw)
		}
		p.current.sym.Kind = kindFromKeyword(kw)
		if text, ok := extractQuoted(rest); ok {
			return p.addPrompt(text, "")
		}
		return nil

	case "prompt":
		if p.current == nil {
			return errors.New("prompt outside a config block")
		}
		text, ok := extractQuoted(rest)
		if !ok {
			return errors.New("prompt requires quoted text")
		}
		_, cond, hasCond := splitIfClause(stripQuoted(rest))
		if !hasCond {
			cond = ""
		}
		return p.addPrompt(text, cond)

	case "default":
		if p.current == nil {
			return errors.New("default outside a config block")
		}
		valueStr, cond, _ := splitIfClause(rest)
		valueExpr, err := parseExprString(p.table, valueStr)
		if err != nil {
			return err
		}
		condExpr, err := optionalCond(p.table, cond)
		if err != nil {
			return err
		}
		p.current.sym.Properties = append(p.current.sym.Properties, &Property{
			Kind:       PropDefault,
			Expr:       valueExpr,
			Visibility: condExpr,
		})
		return nil

	case "select":
		if p.current == nil {
			return errors.New("select outside a config block")
		}
		if len(fields) < 2 {
			return errors.New("select requires a target symbol")
		}
		targetName := fields[1]
		target := p.table.GetOrCreate(targetName)
		afterName := strings.TrimSpace(strings.TrimPrefix(rest, targetName))
		_, cond, hasCond := splitIfClause(afterName)
		if !hasCond {
			cond = ""
		}
		condExpr, err := optionalCond(p.table, cond)
		if err != nil {
			return err
		}
		p.current.sym.Properties = append(p.current.sym.Properties, &Property{
			Kind:       PropSelect,
			Expr:       SymbolExpr(target),
			Visibility: condExpr,
		})
		return nil

	case "depends":
		if len(fields) < 3 || fields[1] != "on" {
			return errors.New("expected 'depends on <expr>'")
		}
		if p.current == nil {
			return errors.New("depends on outside a config block")
		}
		condStr := strings.TrimSpace(strings.TrimPrefix(rest, "on"))
		e, err := parseExprString(p.table, condStr)
		if err != nil {
			return err
		}
		p.current.dependsOn = And(p.current.dependsOn, e)
		return nil

	case "optional":
		if p.current == nil {
			return errors.New("optional outside a config/choice block")
		}
		p.current.sym.Flags |= FlagOptional
		return nil

	case "range":
		if p.current == nil {
			return errors.New("range outside a config block")
		}
		if len(fields) < 3 {
			return errors.New("range requires low and high bounds")
		}
		p.current.sym.Properties = append(p.current.sym.Properties, &Property{
			Kind: PropRange,
			Low:  fields[1],
			High: fields[2],
		})
		return nil

	case "choice":
		p.finalizeCurrent()
		sym := p.table.newAnonChoice()
		p.choiceStack = append(p.choiceStack, &choiceFrame{sym: sym})
		p.current = &pendingSymbol{sym: sym}
		return nil

	case "endchoice":
		p.finalizeCurrent()
		if len(p.choiceStack) == 0 {
			return errors.New("endchoice without a matching choice")
		}
		frame := p.choiceStack[len(p.choiceStack)-1]
		p.choiceStack = p.choiceStack[:len(p.choiceStack)-1]
		frame.sym.Properties = append(frame.sym.Properties, &Property{
			Kind:    PropChoices,
			Choices: frame.values,
		})
		return nil

	case "menu":
		p.finalizeCurrent()
		afterQuote := rest
		if _, ok := extractQuoted(rest); ok {
			afterQuote = stripQuoted(rest)
		}
		_, cond, hasCond := splitIfClause(afterQuote)
		var condExpr *Expr
		if hasCond {
			var err error
			condExpr, err = parseExprString(p.table, cond)
			if err != nil {
				return err
			}
		}
		p.condStack = append(p.condStack, condExpr)
		return nil

	case "endmenu":
		p.finalizeCurrent()
		if len(p.condStack) == 0 {
			return errors.New("endmenu without a matching menu")
		}
		p.condStack = p.condStack[:len(p.condStack)-1]
		return nil

	case "if":
		p.finalizeCurrent()
		condExpr, err := parseExprString(p.table, rest)
		if err != nil {
			return err
		}
		p.condStack = append(p.condStack, condExpr)
		return nil

	case "endif":
		p.finalizeCurrent()
		if len(p.condStack) == 0 {
			return errors.New("endif without a matching if")
		}
		p.condStack = p.condStack[:len(p.condStack)-1]
		return nil

	default:
		return errors.Errorf("unrecognized directive %q", kw)
	}
}

// finalizeCurrent folds the enclosing menu/if conditions and any
// "depends on" lines into every prompt/default/select property's
// Visibility, then clears the in-progress symbol.
func (p *parser) finalizeCurrent() {
	if p.current == nil {
		return
	}
	sym := p.current.sym
	dependsOn := p.current.dependsOn
	var stack *Expr
	for _, c := range p.condStack {
		stack = And(stack, c)
	}
	for _, prop := range sym.Properties {
		switch prop.Kind {
		case PropPrompt, PropDefault, PropSelect:
			prop.Visibility = And(stack, dependsOn, prop.Visibility)
		}
	}
	p.current = nil
}

func (p *parser) addPrompt(text, cond string) error {
	condExpr, err := optionalCond(p.table, cond)
	if err != nil {
		return err
	}
	p.current.sym.Properties = append(p.current.sym.Properties, &Property{
		Kind:       PropPrompt,
		Text:       text,
		Visibility: condExpr,
	})
	return nil
}

func optionalCond(table *SymbolTable, cond string) (*Expr, error) {
	if strings.TrimSpace(cond) == "" {
		return nil, nil
	}
	return parseExprString(table, cond)
}

func kindFromKeyword(kw string) Kind {
	switch kw {
	case "bool":
		return KindBool
	case "tristate":
		return KindTristate
	case "int":
		return KindInt
	case "hex":
		return KindHex
	case "string":
		return KindString
	default:
		return KindUnknown
	}
}

func stripComment(s string) string {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func extractQuoted(s string) (string, bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	rest := s[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func stripQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return s
	}
	rest := s[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return s
	}
	return strings.TrimSpace(rest[end+1:])
}

// splitIfClause splits "<value> if <cond>" into its two halves,
// respecting quoted substrings; hasCond is false if no top-level "if"
// keyword is present, in which case value is the whole (trimmed) input.
func splitIfClause(s string) (value string, cond string, hasCond bool) {
	r := []rune(s)
	inQuotes := false
	for i := 0; i < len(r); i++ {
		c := r[i]
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if c == 'i' && i+1 < len(r) && r[i+1] == 'f' && i > 0 {
			prevOK := r[i-1] == ' ' || r[i-1] == '\t'
			nextOK := i+2 >= len(r) || r[i+2] == ' ' || r[i+2] == '\t'
			if prevOK && nextOK {
				return strings.TrimSpace(string(r[:i])), strings.TrimSpace(string(r[i+2:])), true
			}
		}
	}
	return strings.TrimSpace(s), "", false
}
