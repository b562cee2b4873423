package driver

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satconf/satconfig/internal/kconfig"
)

func parse(t *testing.T, src string) *kconfig.SymbolTable {
	t.Helper()
	table, err := kconfig.ParseReader(strings.NewReader(src), "test")
	require.NoError(t, err)
	return table
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunAssumesExactValueForYPreference(t *testing.T) {
	table := parse(t, `
config A
	tristate "A"
`)
	a, _ := table.Lookup("A")
	a.Value = kconfig.Yes
	a.Flags |= kconfig.FlagDefSat

	d := New(table, silentLogger())
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, kconfig.Yes, a.Value)
}

func TestRunAssumesExactValueForModPreference(t *testing.T) {
	table := parse(t, `
config MODULES
	bool "Enable loadable module support"
	default y

config A
	tristate "A"
`)
	a, _ := table.Lookup("A")
	a.Value = kconfig.Mod
	a.Flags |= kconfig.FlagDefSat

	d := New(table, silentLogger())
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, kconfig.Mod, a.Value)
}

func TestRunAssumesExactValueForNoPreference(t *testing.T) {
	table := parse(t, `
config A
	tristate "A"
	default y
`)
	a, _ := table.Lookup("A")
	a.Value = kconfig.No
	a.Flags |= kconfig.FlagDefSat

	d := New(table, silentLogger())
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, kconfig.No, a.Value)
}

func TestRunReportsUnsatisfiableAssumptions(t *testing.T) {
	table := parse(t, `
config MODULES
	bool "Enable loadable module support"

config A
	tristate "A"
	depends on MODULES
`)
	modules, _ := table.Lookup("MODULES")
	modules.Value = kconfig.No
	modules.Flags |= kconfig.FlagDefSat
	a, _ := table.Lookup("A")
	a.Value = kconfig.Yes
	a.Flags |= kconfig.FlagDefSat

	d := New(table, silentLogger())
	err := d.Run(context.Background())
	require.Error(t, err)
	var unsat UnsatisfiableAssumptions
	assert.ErrorAs(t, err, &unsat)
}

func TestRunForcesUnjustifiableSymbolsOff(t *testing.T) {
	table := parse(t, `
config A
	bool
`)
	d := New(table, silentLogger())
	require.NoError(t, d.Run(context.Background()))
	a, _ := table.Lookup("A")
	// No prompt, no default, no select, no driver preference: nothing
	// can justify turning A on, so the justification clause forces it off.
	assert.Equal(t, kconfig.No, a.Value)
}

func TestDefaultIdempotenceAcrossReparseAndResolve(t *testing.T) {
	src := `
config MODULES
	bool "Enable loadable module support"
	default y

config DRIVER
	tristate "Driver"
	default m if MODULES
	default y
`
	table1 := parse(t, src)
	d1 := New(table1, silentLogger())
	require.NoError(t, d1.Run(context.Background()))
	first := d1.Assignment()

	table2 := parse(t, src)
	for name, value := range first {
		sym, ok := table2.Lookup(name)
		require.True(t, ok)
		switch value {
		case "y":
			sym.Value = kconfig.Yes
		case "m":
			sym.Value = kconfig.Mod
		case "n":
			sym.Value = kconfig.No
		}
		sym.Flags |= kconfig.FlagDefSat
	}
	d2 := New(table2, silentLogger())
	require.NoError(t, d2.Run(context.Background()))
	second := d2.Assignment()

	assert.Equal(t, first, second)
}
