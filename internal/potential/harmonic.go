package potential

import (
	"math"

	"github.com/mdkit/curcuma/internal/chem"
)

func init() {
	Register("harmonic", NewHarmonic)
}

// Harmonic is a single-term harmonic-bond potential, E = ½k(r-r0)², summed
// over the bonded pairs detected at bind time. It backs the NVE/period
// test scenarios where the reference potential must be exact and cheap.
type Harmonic struct {
	opts     Options
	sys      *chem.System
	geom     chem.Geometry
	bonds    [][2]int
	k        float64
	r0Override float64
	haveR0     bool
	r0       map[[2]int]float64
}

// NewHarmonic constructs a Harmonic bond potential. Options.Params["k"]
// sets the force constant (default 1.0); Options.Params["r0"], if
// present, overrides every bond's equilibrium length (otherwise each
// bond's initial length at Bind is used).
func NewHarmonic(opts Options) Potential {
	h := &Harmonic{opts: opts, k: opts.param("k", 1.0)}
	if v, ok := opts.Params["r0"]; ok {
		h.r0Override, h.haveR0 = v, true
	}
	return h
}

func (h *Harmonic) Bind(sys *chem.System) error {
	h.sys = sys
	h.geom = sys.Geometry.Clone()
	h.bonds = sys.BondedPairs(h.opts.param("bond_tolerance", 1.3))
	h.r0 = make(map[[2]int]float64, len(h.bonds))
	for _, b := range h.bonds {
		if h.haveR0 {
			h.r0[b] = h.r0Override
			continue
		}
		i, j := b[0], b[1]
		dx := h.geom[i][0] - h.geom[j][0]
		dy := h.geom[i][1] - h.geom[j][1]
		dz := h.geom[i][2] - h.geom[j][2]
		h.r0[b] = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return nil
}

// BindPair is a convenience for two-atom systems (the harmonic-diatomic
// test fixture) that need an explicit equilibrium length independent of
// the bind-time geometry.
func (h *Harmonic) BindPair(sys *chem.System, r0 float64) error {
	if err := h.Bind(sys); err != nil {
		return err
	}
	if len(h.bonds) == 0 && sys.N() == 2 {
		h.bonds = [][2]int{{1, 0}}
	}
	for _, b := range h.bonds {
		h.r0[b] = r0
	}
	return nil
}

func (h *Harmonic) SetGeometry(g chem.Geometry) error {
	h.geom = g.Clone()
	return nil
}

func (h *Harmonic) Evaluate(wantGradient bool) (float64, chem.Gradient, error) {
	n := len(h.geom)
	grad := chem.NewGeometry(n)
	energy := 0.0
	for _, b := range h.bonds {
		i, j := b[0], b[1]
		dx := h.geom[i][0] - h.geom[j][0]
		dy := h.geom[i][1] - h.geom[j][1]
		dz := h.geom[i][2] - h.geom[j][2]
		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		dr := r - h.r0[b]
		energy += 0.5 * h.k * dr * dr
		if wantGradient && r > 1e-12 {
			f := h.k * dr / r
			grad[i][0] += f * dx
			grad[i][1] += f * dy
			grad[i][2] += f * dz
			grad[j][0] -= f * dx
			grad[j][1] -= f * dy
			grad[j][2] -= f * dz
		}
	}
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return 0, nil, nanError("harmonic")
	}
	if wantGradient {
		return energy, grad, nil
	}
	return energy, nil, nil
}

func (h *Harmonic) Dipole() ([3]float64, bool)         { return [3]float64{}, false }
func (h *Harmonic) Charges() ([]float64, bool)         { return nil, false }
func (h *Harmonic) BondOrders() ([][]float64, bool)    { return nil, false }
func (h *Harmonic) OrbitalEnergies() ([]float64, bool) { return nil, false }
func (h *Harmonic) ElectronCount() (int, bool)         { return 0, false }
