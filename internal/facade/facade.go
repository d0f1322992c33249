// Package facade implements EnergyFacade: the single entry point consumed
// by the Hessian engine and the MD integrator. It owns a bound Potential,
// transports geometry in and energy/gradient/observables out, and
// normalises units through package units.
package facade

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/errs"
	"github.com/mdkit/curcuma/internal/potential"
	"github.com/mdkit/curcuma/internal/units"
)

// Options configures a Facade at construction time.
type Options struct {
	Method          string
	Threads         int
	Accuracy        float64
	MaxIterations   int
	Solvent         *potential.SolventOptions
	ParameterFile   string
	WriteParameters bool
	Params          map[string]float64
}

func (o Options) toPotentialOptions() potential.Options {
	return potential.Options{
		Method:        o.Method,
		Threads:       o.Threads,
		Accuracy:      o.Accuracy,
		MaxIterations: o.MaxIterations,
		Solvent:       o.Solvent,
		ParameterFile: o.ParameterFile,
		Params:        o.Params,
	}
}

// Facade is the EnergyFacade (§4.3).
type Facade struct {
	opts   Options
	pot    potential.Potential
	sys    *chem.System
	bound  bool

	lastEnergy   float64
	lastGradient chem.Gradient
	hasGradient  bool

	hasErrorFlag bool
	hasNaNFlag   bool
}

// New constructs a Facade bound to the backend named by opts.Method
// (unknown names fall back to the classical force field inside package
// potential).
func New(opts Options) *Facade {
	return &Facade{opts: opts, pot: potential.New(opts.Method, opts.toPotentialOptions())}
}

// SetSystem binds the backend once. If WriteParameters is set and no
// parameter file exists yet, a placeholder is written so a downstream run
// can reuse it (concrete parameter generation belongs to the force-field
// backend; the façade only guarantees the file exists).
func (f *Facade) SetSystem(sys *chem.System) error {
	if f.bound {
		return &errs.ConfigError{Option: "system", Reason: "facade is already bound to a system"}
	}
	if err := f.pot.Bind(sys); err != nil {
		return err
	}
	f.sys = sys
	f.bound = true

	if f.opts.WriteParameters && f.opts.ParameterFile != "" {
		if _, err := os.Stat(f.opts.ParameterFile); os.IsNotExist(err) {
			if werr := os.WriteFile(f.opts.ParameterFile, []byte("# generated by curcuma facade\n"), 0644); werr != nil {
				return &errs.IOError{Path: f.opts.ParameterFile, Err: werr}
			}
		}
	}
	return nil
}

// SetGeometry accepts either a flat 3N vector or an N×3 chem.Geometry and
// forwards it to the backend, converting to Bohr first when the backend
// declares potential.UnitAware.WantsBohr().
func (f *Facade) SetGeometry(coord any) error {
	if !f.bound {
		return &errs.ConfigError{Option: "geometry", Reason: "facade has no bound system"}
	}
	var g chem.Geometry
	switch v := coord.(type) {
	case chem.Geometry:
		g = v
	case []float64:
		g = chem.GeometryFromFlat(v)
	default:
		return &errs.ConfigError{Option: "geometry", Reason: fmt.Sprintf("unsupported geometry type %T", coord)}
	}

	if ua, ok := f.pot.(potential.UnitAware); ok && ua.WantsBohr() {
		g = g.ScaleUnits(units.AngstromToBohr)
	}
	return f.pot.SetGeometry(g)
}

// Evaluate computes the energy (and, if wantGradient, the gradient) at the
// currently bound geometry. Convergence failures are recoverable and
// reported via HasError; a NaN is fatal and reported via HasNaN.
func (f *Facade) Evaluate(wantGradient bool) (float64, error) {
	energy, grad, err := f.pot.Evaluate(wantGradient)
	if err != nil {
		if errsIsConvergence(err) {
			f.hasErrorFlag = true
			return 0, err
		}
		if errsIsNumerical(err) {
			f.hasNaNFlag = true
			return 0, err
		}
		f.hasErrorFlag = true
		return 0, err
	}

	f.hasErrorFlag = false
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		f.hasNaNFlag = true
		return 0, &errs.NumericalError{Reason: "facade: NaN/Inf energy from backend"}
	}
	f.hasNaNFlag = false

	f.lastEnergy = energy
	if wantGradient {
		if ua, ok := f.pot.(potential.UnitAware); ok && ua.WantsBohr() {
			// grad is dE/dR_bohr; the façade reports gradients per the
			// Ångström geometry callers passed to SetGeometry.
			grad = grad.ScaleUnits(func(x float64) float64 { return x / units.AuToAngstrom })
		}
		f.lastGradient = grad
		f.hasGradient = true
	} else {
		f.hasGradient = false
	}
	return energy, nil
}

// Gradient returns the gradient from the last Evaluate(true) call.
func (f *Facade) Gradient() chem.Gradient {
	if !f.hasGradient {
		return nil
	}
	return f.lastGradient
}

// Dipole, Charges, BondOrders pass through to the bound backend.
func (f *Facade) Dipole() ([3]float64, bool)         { return f.pot.Dipole() }
func (f *Facade) Charges() ([]float64, bool)         { return f.pot.Charges() }
func (f *Facade) BondOrders() ([][]float64, bool)    { return f.pot.BondOrders() }
func (f *Facade) OrbitalEnergies() ([]float64, bool) { return f.pot.OrbitalEnergies() }
func (f *Facade) ElectronCount() (int, bool)         { return f.pot.ElectronCount() }

// HasError is true after a backend reported a non-numerical error, such
// as a convergence failure; latched until the next successful Evaluate.
func (f *Facade) HasError() bool { return f.hasErrorFlag }

// HasNaN is true if the last evaluation produced a NaN/Inf energy.
func (f *Facade) HasNaN() bool { return f.hasNaNFlag }

func errsIsConvergence(err error) bool {
	var ce *errs.ConvergenceError
	return errors.As(err, &ce)
}

func errsIsNumerical(err error) bool {
	var ne *errs.NumericalError
	return errors.As(err, &ne)
}
