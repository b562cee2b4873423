// Command satconfig resolves a Kconfig-style configuration tree to a
// single satisfying assignment, overlaying a .satconfig file of forced
// preferences, and writes the result as a .config file plus a generated
// macro header.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/satconf/satconfig/internal/driver"
	"github.com/satconf/satconfig/internal/kconfig"
)

func main() {
	log := logrus.New()

	var random bool
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "satconfig [flags] [KCONFIG_FILE] [SATCONFIG_FILE]",
		Short: "satconfig",
		Long:  `A SAT-based solver for Kconfig-style configuration trees.`,
		Args:  cobra.MaximumNArgs(2),

		PreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			kconfigPath := "Kconfig"
			satconfigPath := ".satconfig"
			if len(args) > 0 {
				kconfigPath = args[0]
			}
			if len(args) > 1 {
				satconfigPath = args[1]
			}
			return run(cmd.Context(), log, kconfigPath, satconfigPath, random)
		},
	}

	rootCmd.Flags().BoolVar(&random, "random", false, "seed math/rand from the system clock (the SAT engine's search is not affected)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run parses kconfigPath, overlays satconfigPath as a S_DEF_SAT
// preference layer, resolves the result with internal/driver, and
// writes the canonical .config and autoconf header the way the
// original tool's conf_write/conf_write_autoconf pair did.
func run(ctx context.Context, log logrus.FieldLogger, kconfigPath, satconfigPath string, random bool) error {
	table, err := kconfig.Parse(kconfigPath)
	if err != nil {
		return errors.Wrap(err, "parsing Kconfig file")
	}
	if err := table.ReadSimple(satconfigPath, kconfig.DefSlotSAT); err != nil {
		return errors.Wrap(err, "reading satconfig overlay")
	}

	var opts []driver.Option
	if random {
		opts = append(opts, driver.WithRandom(nil))
	}
	opts = append(opts, driver.WithTracer(driver.LoggingTracer{Log: log}))

	d := driver.New(table, log, opts...)
	if err := d.Run(ctx); err != nil {
		return err
	}

	if err := kconfig.WriteConfig(table, ".config"); err != nil {
		return errors.Wrap(err, "writing .config")
	}
	if err := kconfig.WriteAutoconf(table, "autoconf.h"); err != nil {
		return errors.Wrap(err, "writing autoconf header")
	}
	fmt.Println("ok")
	return nil
}
