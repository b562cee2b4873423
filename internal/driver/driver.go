// Package driver orchestrates the pipeline spec.md §4.6 describes:
// parse → lay out variables → build clauses → sanity-solve → apply
// user assumptions → solve → write results back onto the symbol
// table. It is the only package that drives internal/satengine
// directly; every other package only ever produces clauses or
// variable numbers for it to feed in.
package driver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mitchellh/hashstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/satconf/satconfig/internal/clausebuild"
	"github.com/satconf/satconfig/internal/kconfig"
	"github.com/satconf/satconfig/internal/layout"
	"github.com/satconf/satconfig/internal/satengine"
)

// State is one of the Driver's pipeline stages.
type State int

const (
	Uninit State = iota
	Parsed
	Laid
	Built
	Ready
	Solved
	Written
	Failed
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case Parsed:
		return "parsed"
	case Laid:
		return "laid"
	case Built:
		return "built"
	case Ready:
		return "ready"
	case Solved:
		return "solved"
	case Written:
		return "written"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// InconsistentTheory is returned when the unconditional solve (no user
// assumptions applied) is UNSAT: the configuration's own dependency
// structure contradicts itself, independent of any preference.
type InconsistentTheory struct {
	Core []string
}

func (e InconsistentTheory) Error() string {
	return "inconsistent base theory: " + coreMessage(e.Core)
}

// UnsatisfiableAssumptions is returned when the base theory solves but
// applying the user's preferences from the .satconfig overlay makes it
// UNSAT.
type UnsatisfiableAssumptions struct {
	Core []string
}

func (e UnsatisfiableAssumptions) Error() string {
	return "unsatisfiable with user preferences: " + coreMessage(e.Core)
}

// SolverUnknown is returned when the engine reports neither SAT nor
// UNSAT.
type SolverUnknown struct{}

func (SolverUnknown) Error() string { return "solver returned an indeterminate result" }

// InternalInvariantViolated marks a condition that should be
// unreachable if every upstream package is correct: an out-of-range
// SAT variable, an unexpected expression shape, or similar.
type InternalInvariantViolated struct {
	Detail string
}

func (e InternalInvariantViolated) Error() string {
	return "internal invariant violated: " + e.Detail
}

func coreMessage(core []string) string {
	if len(core) == 0 {
		return "(no labelled core available)"
	}
	msg := ""
	for i, c := range core {
		if i > 0 {
			msg += "; "
		}
		msg += c
	}
	return msg
}

// SearchPosition is what a Tracer is shown at each point it is
// consulted: the variables currently assumed and the conflicts seen
// so far.
type SearchPosition interface {
	Assumptions() []string
	Conflicts() []string
}

// Tracer observes the solve process, the way the teacher's
// solver.Tracer does for its dependency search.
type Tracer interface {
	Trace(p SearchPosition)
}

// DefaultTracer discards every trace event.
type DefaultTracer struct{}

// Trace implements Tracer.
func (DefaultTracer) Trace(SearchPosition) {}

// LoggingTracer renders each trace event as a structured log entry.
type LoggingTracer struct {
	Log logrus.FieldLogger
}

// Trace implements Tracer.
func (t LoggingTracer) Trace(p SearchPosition) {
	t.Log.WithFields(logrus.Fields{
		"assumptions": p.Assumptions(),
		"conflicts":   p.Conflicts(),
	}).Debug("search position")
}

type searchPosition struct {
	assumptions []string
	conflicts   []string
}

func (p searchPosition) Assumptions() []string { return p.assumptions }
func (p searchPosition) Conflicts() []string   { return p.conflicts }

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithTracer overrides the Driver's Tracer (the zero value is
// DefaultTracer, matching the teacher's solver.New default).
func WithTracer(t Tracer) Option {
	return func(d *Driver) { d.tracer = t }
}

// WithRandom enables the randomised mode: it records a seed (from
// seedSource, or from the system clock when seedSource is nil) and Run
// seeds math/rand with it. The SAT engine takes neither a seed nor a
// phase setting from this mode, so the solve result does not depend on
// the seed.
func WithRandom(seedSource func() int64) Option {
	return func(d *Driver) {
		d.random = true
		if seedSource != nil {
			d.seed = seedSource()
		} else {
			d.seed = time.Now().UnixNano()
		}
	}
}

// Driver walks one parsed configuration table through every pipeline
// stage spec.md §4.6 defines.
type Driver struct {
	table  *kconfig.SymbolTable
	log    logrus.FieldLogger
	tracer Tracer

	random bool
	seed   int64

	state State
	lay   *layout.Layout
	bld   *clausebuild.Builder
	eng   *satengine.Engine
}

// New returns a Driver over an already-parsed table, in state Uninit.
func New(table *kconfig.SymbolTable, log logrus.FieldLogger, opts ...Option) *Driver {
	d := &Driver{
		table:  table,
		log:    log,
		tracer: DefaultTracer{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the Driver's current pipeline stage.
func (d *Driver) State() State { return d.state }

// Run advances the Driver from Uninit through Solved to Written (the
// solved values copied back onto the table), or returns the first fatal
// error encountered (leaving the Driver in Failed).
func (d *Driver) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.state != Uninit {
		return InternalInvariantViolated{Detail: "Run called outside state Uninit"}
	}

	d.table.MaterializeDefaults()
	d.state = Parsed
	d.log.WithField("state", d.state).Debug("driver transition")

	d.lay = layout.Build(d.table)
	d.eng = satengine.New()
	d.bld = clausebuild.NewBuilder(d.table, d.lay, d.eng)
	d.state = Laid
	d.log.WithFields(logrus.Fields{"state": d.state, "sat_vars": d.lay.NumVars()}).Debug("driver transition")

	if err := d.bld.Build(); err != nil {
		d.state = Failed
		return errors.Wrap(err, "building clauses")
	}
	d.state = Built
	nSymbols := 0
	for _, sym := range d.table.Symbols() {
		if sym.IsBoolOrTristate() {
			nSymbols++
		}
	}
	d.log.WithFields(logrus.Fields{"state": d.state, "symbols": nSymbols, "sat_vars": d.bld.NumVars(), "clauses": d.eng.NumClauses()}).
		Info(fmt.Sprintf("%d symbols, %d sat variables, %d clauses", nSymbols, d.bld.NumVars(), d.eng.NumClauses()))

	if d.random {
		rand.Seed(d.seed)
	}
	d.biasPhases()

	switch d.eng.Solve() {
	case satengine.Satisfiable:
		d.state = Ready
	case satengine.Unsatisfiable:
		d.state = Failed
		core := d.describeCore()
		d.tracer.Trace(searchPosition{conflicts: core})
		return InconsistentTheory{Core: core}
	default:
		d.state = Failed
		return SolverUnknown{}
	}
	d.log.WithField("state", d.state).Debug("driver transition")

	assumed := d.applyAssumptions()
	switch d.eng.Solve() {
	case satengine.Satisfiable:
		d.state = Solved
	case satengine.Unsatisfiable:
		d.state = Failed
		core := d.describeCore()
		d.tracer.Trace(searchPosition{assumptions: assumed, conflicts: core})
		return UnsatisfiableAssumptions{Core: core}
	default:
		d.state = Failed
		return SolverUnknown{}
	}
	d.log.WithField("state", d.state).Debug("driver transition")

	d.readBack()
	d.logFingerprint()
	return nil
}

// biasPhases approximates spec.md §4.7's "prefer modules over
// built-ins" phase hint. gini's public interface exposes no
// PicoSAT-style set_default_phase_lit knob, so the preference is
// applied the same way the teacher's searcher explores alternatives:
// try assuming each tristate symbol's m bit inside an incremental
// scope, and keep the assumption only if the formula stays satisfiable
// under it, backing out otherwise.
func (d *Driver) biasPhases() {
	for _, sym := range d.table.Symbols() {
		mVar, ok := d.lay.SymM(sym)
		if !ok {
			continue
		}
		d.eng.Assume(mVar)
		if d.eng.Test() == satengine.Unsatisfiable {
			d.eng.Untest()
		}
	}
	if modules := d.table.Modules(); modules != nil {
		d.eng.Assume(d.lay.SymY(modules))
		if d.eng.Test() == satengine.Unsatisfiable {
			d.eng.Untest()
		}
	}
}

// applyAssumptions implements spec.md §4.7: a symbol with a
// .satconfig-sourced preference (FlagDefSat) is pinned to that
// preference; everything else, including choice-block anonymous
// symbols, is left to the solver. It returns a human-readable record
// of what was assumed, for Tracer consumption on failure.
func (d *Driver) applyAssumptions() []string {
	var trace []string
	for _, sym := range d.table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		assumedVar := d.lay.SymAssumed(sym)
		if sym.IsChoice() || !sym.Has(kconfig.FlagDefSat) {
			d.eng.Assume(-assumedVar)
			continue
		}
		d.eng.Assume(assumedVar)
		yVar := d.lay.SymY(sym)
		mVar, hasM := d.lay.SymM(sym)
		switch sym.Value {
		case kconfig.No:
			d.eng.Assume(-yVar)
		case kconfig.Yes:
			d.eng.Assume(yVar)
			if hasM {
				d.eng.Assume(-mVar)
			}
		case kconfig.Mod:
			d.eng.Assume(yVar)
			if hasM {
				d.eng.Assume(mVar)
			}
		}
		trace = append(trace, sym.Name+"="+sym.Value.String())
	}
	return trace
}

// readBack copies the solved model back onto every bool/tristate
// symbol's Value.
func (d *Driver) readBack() {
	for _, sym := range d.table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		y := d.eng.Value(d.lay.SymY(sym))
		m := false
		if mVar, ok := d.lay.SymM(sym); ok {
			m = d.eng.Value(mVar)
		}
		switch {
		case !y:
			sym.Value = kconfig.No
		case m:
			sym.Value = kconfig.Mod
		default:
			sym.Value = kconfig.Yes
		}
	}
	d.state = Written
}

// Assignment returns the final symbol-name → tristate-string map, used
// both for logging and as the input to hashstructure fingerprinting.
func (d *Driver) Assignment() map[string]string {
	out := make(map[string]string)
	for _, sym := range d.table.Symbols() {
		if !sym.IsBoolOrTristate() {
			continue
		}
		out[sym.Name] = sym.Value.String()
	}
	return out
}

func (d *Driver) logFingerprint() {
	digest, err := hashstructure.Hash(d.Assignment(), nil)
	if err != nil {
		d.log.WithError(err).Debug("could not fingerprint assignment")
		return
	}
	d.log.WithField("fingerprint", digest).Debug("solved configuration fingerprint")
}

func (d *Driver) describeCore() []string {
	why := d.eng.Why()
	out := make([]string, 0, len(why))
	for _, lit := range why {
		out = append(out, d.lay.Describe(lit))
	}
	return out
}
