package kconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// WriteConfig writes t's resolved values to path in the
// "CONFIG_NAME=value" / "# CONFIG_NAME is not set" format the original
// conf_write produces.
func WriteConfig(t *SymbolTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := writeConfigTo(t, w); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "flushing config")
}

func writeConfigTo(t *SymbolTable, w io.Writer) error {
	for _, sym := range t.Symbols() {
		if sym.Name == "" || sym.Kind == KindUnknown {
			continue
		}
		var err error
		switch sym.Kind {
		case KindBool, KindTristate:
			if sym.Value == No {
				_, err = fmt.Fprintf(w, "# CONFIG_%s is not set\n", sym.Name)
			} else {
				_, err = fmt.Fprintf(w, "CONFIG_%s=%s\n", sym.Name, sym.Value.String())
			}
		case KindString:
			_, err = fmt.Fprintf(w, "CONFIG_%s=%q\n", sym.Name, sym.StringValue)
		case KindInt, KindHex:
			_, err = fmt.Fprintf(w, "CONFIG_%s=%s\n", sym.Name, sym.StringValue)
		}
		if err != nil {
			return errors.Wrap(err, "writing config line")
		}
	}
	return nil
}

// WriteAutoconf writes t's resolved values to path as C preprocessor
// defines, mirroring the original's autoconf.h: CONFIG_NAME 1 for y,
// CONFIG_NAME_MODULE 1 for m, nothing at all for n.
func WriteAutoconf(t *SymbolTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for _, sym := range t.Symbols() {
		if sym.Name == "" || sym.Kind == KindUnknown {
			continue
		}
		var err error
		switch sym.Kind {
		case KindBool:
			if sym.Value == Yes {
				_, err = fmt.Fprintf(w, "#define CONFIG_%s 1\n", sym.Name)
			}
		case KindTristate:
			switch sym.Value {
			case Yes:
				_, err = fmt.Fprintf(w, "#define CONFIG_%s 1\n", sym.Name)
			case Mod:
				_, err = fmt.Fprintf(w, "#define CONFIG_%s_MODULE 1\n", sym.Name)
			}
		case KindString:
			_, err = fmt.Fprintf(w, "#define CONFIG_%s %q\n", sym.Name, sym.StringValue)
		case KindInt, KindHex:
			_, err = fmt.Fprintf(w, "#define CONFIG_%s %s\n", sym.Name, sym.StringValue)
		}
		if err != nil {
			return errors.Wrap(err, "writing autoconf line")
		}
	}
	return errors.Wrap(w.Flush(), "flushing autoconf")
}
