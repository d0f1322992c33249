package potential

import (
	"math"

	"github.com/mdkit/curcuma/internal/chem"
)

func init() {
	Register("tb", NewTightBinding)
	Register("gfn2", NewTightBinding)
	Register("semiempirical", NewTightBinding)
}

// TightBinding stands in for a real tight-binding/semi-empirical backend:
// it layers an iterative Mulliken-style charge equilibration on top of a
// Classical energy/gradient, so callers can exercise the ConvergenceError
// path (§4.2) without a real quantum solver.
type TightBinding struct {
	opts     Options
	inner    *Classical
	charges  []float64
}

// NewTightBinding constructs the stand-in backend.
func NewTightBinding(opts Options) Potential {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 50
	}
	if opts.Accuracy <= 0 {
		opts.Accuracy = 1e-6
	}
	return &TightBinding{opts: opts, inner: NewClassical(opts).(*Classical)}
}

func (t *TightBinding) WantsBohr() bool { return true }

func (t *TightBinding) Bind(sys *chem.System) error {
	t.charges = make([]float64, sys.N())
	return t.inner.Bind(sys)
}

func (t *TightBinding) SetGeometry(g chem.Geometry) error {
	return t.inner.SetGeometry(g)
}

func (t *TightBinding) Evaluate(wantGradient bool) (float64, chem.Gradient, error) {
	energy, grad, err := t.inner.Evaluate(wantGradient)
	if err != nil {
		return 0, nil, err
	}

	// Fake charge self-consistency: relax each atom's charge toward 0.9
	// times the plain mean charge, mixing at 0.3 per cycle.
	n := len(t.charges)
	if n == 0 {
		return energy, grad, nil
	}
	prev := make([]float64, n)
	converged := false
	for it := 0; it < t.opts.MaxIterations; it++ {
		copy(prev, t.charges)
		mean := 0.0
		for _, q := range t.charges {
			mean += q
		}
		mean /= float64(n)
		maxDelta := 0.0
		for i := range t.charges {
			target := mean * 0.9
			t.charges[i] += 0.3 * (target - t.charges[i])
			if d := math.Abs(t.charges[i] - prev[i]); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < t.opts.Accuracy {
			converged = true
			break
		}
	}
	if !converged {
		return 0, nil, convergenceError(t.opts.Method, t.opts.MaxIterations)
	}
	return energy, grad, nil
}

func (t *TightBinding) Dipole() ([3]float64, bool) { return [3]float64{}, false }
func (t *TightBinding) Charges() ([]float64, bool) { return t.charges, true }
func (t *TightBinding) BondOrders() ([][]float64, bool) { return nil, false }
func (t *TightBinding) OrbitalEnergies() ([]float64, bool) { return nil, false }
func (t *TightBinding) ElectronCount() (int, bool) { return len(t.charges), true }
