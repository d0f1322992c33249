package potential

import (
	"math"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/units"
)

func init() {
	Register("classical", NewClassical)
	Register("uff", NewClassical)
	Register("", NewClassical)
	Register("gfnff", NewClassical)
}

// Classical is a generic pairwise force field: harmonic bonded terms plus
// Lennard-Jones nonbonded terms. Rest lengths and LJ sigma come from
// covalent radii; the force constant and well depth are single global
// values (Params "bond_k", "lj_epsilon"). No parameter file is read.
// It is the default fallback for any unrecognised method name, and the
// backend flagged explicitly non-reentrant under the name "gfnff" (§4.4).
type Classical struct {
	opts  Options
	sys   *chem.System
	geom  chem.Geometry
	bonds [][2]int
	bondK float64
	ljEps float64

	lastEnergy   float64
	lastGradient chem.Gradient
}

// NewClassical constructs a Classical force field.
func NewClassical(opts Options) Potential {
	return &Classical{
		opts:  opts,
		bondK: opts.param("bond_k", 20.0),
		ljEps: opts.param("lj_epsilon", 1.0e-4),
	}
}

func (c *Classical) NonReentrant() bool { return c.opts.Method == "gfnff" }

func (c *Classical) Bind(sys *chem.System) error {
	c.sys = sys
	c.geom = sys.Geometry.Clone()
	c.bonds = sys.BondedPairs(c.opts.param("bond_tolerance", 1.3))
	return nil
}

func (c *Classical) SetGeometry(g chem.Geometry) error {
	c.geom = g.Clone()
	return nil
}

func (c *Classical) Evaluate(wantGradient bool) (float64, chem.Gradient, error) {
	n := len(c.geom)
	grad := chem.NewGeometry(n)
	energy := 0.0

	bonded := make(map[[2]int]bool, len(c.bonds))
	for _, b := range c.bonds {
		bonded[b] = true
		i, j := b[0], b[1]
		dx := c.geom[i][0] - c.geom[j][0]
		dy := c.geom[i][1] - c.geom[j][1]
		dz := c.geom[i][2] - c.geom[j][2]
		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		ri := units.CovalentRadius[c.sys.Atoms[i].Z]
		rj := units.CovalentRadius[c.sys.Atoms[j].Z]
		r0 := ri + rj
		dr := r - r0
		energy += 0.5 * c.bondK * dr * dr
		if wantGradient && r > 1e-12 {
			f := c.bondK * dr / r
			grad[i][0] += f * dx
			grad[i][1] += f * dy
			grad[i][2] += f * dz
			grad[j][0] -= f * dx
			grad[j][1] -= f * dy
			grad[j][2] -= f * dz
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if bonded[[2]int{i, j}] {
				continue
			}
			dx := c.geom[i][0] - c.geom[j][0]
			dy := c.geom[i][1] - c.geom[j][1]
			dz := c.geom[i][2] - c.geom[j][2]
			r2 := dx*dx + dy*dy + dz*dz
			if r2 < 1e-10 {
				continue
			}
			ri := units.CovalentRadius[c.sys.Atoms[i].Z]
			rj := units.CovalentRadius[c.sys.Atoms[j].Z]
			sigma := (ri + rj) * 1.1225
			sr6 := math.Pow(sigma*sigma/r2, 3)
			sr12 := sr6 * sr6
			energy += 4 * c.ljEps * (sr12 - sr6)
			if wantGradient {
				r := math.Sqrt(r2)
				dEdr := 4 * c.ljEps * (-12*sr12 + 6*sr6) / r
				f := dEdr / r
				grad[i][0] += f * dx
				grad[i][1] += f * dy
				grad[i][2] += f * dz
				grad[j][0] -= f * dx
				grad[j][1] -= f * dy
				grad[j][2] -= f * dz
			}
		}
	}

	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return 0, nil, nanError("classical")
	}

	c.lastEnergy, c.lastGradient = energy, grad
	if wantGradient {
		return energy, grad, nil
	}
	return energy, nil, nil
}

func (c *Classical) Dipole() ([3]float64, bool)      { return [3]float64{}, false }
func (c *Classical) Charges() ([]float64, bool)      { return nil, false }
func (c *Classical) BondOrders() ([][]float64, bool) { return nil, false }
func (c *Classical) OrbitalEnergies() ([]float64, bool) { return nil, false }
func (c *Classical) ElectronCount() (int, bool)      { return 0, false }

// GetParams exposes tunable parameters for live adjustment, mirroring the
// Configurable capability used by dynsim's physics backends.
func (c *Classical) GetParams() map[string]float64 {
	return map[string]float64{"bond_k": c.bondK, "lj_epsilon": c.ljEps}
}

// SetParam adjusts a tunable parameter.
func (c *Classical) SetParam(name string, value float64) error {
	switch name {
	case "bond_k":
		c.bondK = value
	case "lj_epsilon":
		c.ljEps = value
	default:
		return &unknownParamError{Name: name}
	}
	return nil
}

type unknownParamError struct{ Name string }

func (e *unknownParamError) Error() string { return "unknown parameter: " + e.Name }
