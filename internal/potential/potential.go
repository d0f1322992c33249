// Package potential defines the pluggable energy-and-gradient capability
// consumed by the façade, and registers a handful of concrete backends
// (classical force field, harmonic bonds, a tight-binding stand-in and
// dispersion decorators) by name, mirroring the compute.Backend
// name-with-fallback idiom used elsewhere in this lineage.
package potential

import (
	"github.com/mdkit/curcuma/internal/chem"
)

// SolventOptions configures an implicit-solvent correction, when a backend
// supports one.
type SolventOptions struct {
	Model   string
	Epsilon float64
}

// Options configures a Potential at construction time.
type Options struct {
	Method        string
	Threads       int
	Accuracy      float64
	MaxIterations int
	Solvent       *SolventOptions
	ParameterFile string
	// Wraps names the Potential a decorator backend (e.g. a dispersion
	// correction) should wrap. Ignored by non-decorator backends.
	Wraps string
	// Params carries backend-specific numeric knobs (bond force
	// constants, override equilibrium lengths, mixing factors, ...) so
	// Options doesn't grow a field per backend family.
	Params map[string]float64
}

func (o Options) param(name string, fallback float64) float64 {
	if v, ok := o.Params[name]; ok {
		return v
	}
	return fallback
}

// Potential is the uniform capability every backend exposes: bind once to
// an atom list, accept geometry updates, and evaluate energy/gradient plus
// optional observables.
type Potential interface {
	Bind(sys *chem.System) error
	SetGeometry(g chem.Geometry) error
	Evaluate(wantGradient bool) (energy float64, gradient chem.Gradient, err error)

	Dipole() (d [3]float64, ok bool)
	Charges() (q []float64, ok bool)
	BondOrders() (bo [][]float64, ok bool)
	OrbitalEnergies() (e []float64, ok bool)
	ElectronCount() (n int, ok bool)
}

// UnitAware lets a backend declare that it wants geometry in Bohr rather
// than the façade's default of Å. Backends that don't implement it are
// assumed to work in Å (classical force fields).
type UnitAware interface {
	WantsBohr() bool
}

// NonReentrant lets a backend flag that per-process global state makes it
// unsafe to construct many concurrent instances — the Hessian engine runs
// such methods on a single thread with a static schedule over the same
// per-element tasks; the tasks are not regrouped into per-atom chunks.
type NonReentrant interface {
	NonReentrant() bool
}

// Constructor builds a Potential from Options.
type Constructor func(Options) Potential

var registry = map[string]Constructor{}

// Register adds a named backend constructor. Intended to be called from
// package init() functions.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// New constructs the backend registered under name. Unknown names fall
// back to the classical force field, matching the CLI's own
// controller-by-name-with-fallback behaviour.
func New(name string, opts Options) Potential {
	ctor, ok := registry[name]
	if !ok {
		ctor = registry["classical"]
	}
	opts.Method = name
	return ctor(opts)
}

// Available reports whether name has a registered constructor, which lets
// a caller tell a registered backend from New's implicit classical
// fallback.
func Available(name string) bool {
	_, ok := registry[name]
	return ok
}
