package potential

import (
	"math"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/units"
)

func init() {
	Register("d3", func(o Options) Potential { return newDispersion(o, "d3", 1.0) })
	Register("d4", func(o Options) Potential { return newDispersion(o, "d4", 1.2) })
}

// Dispersion decorates any wrapped Potential with a damped -C6/R^6
// empirical correction, standing in for a real DFT-D3/D4 implementation.
type Dispersion struct {
	opts    Options
	name    string
	c6Scale float64
	wrapped Potential
	sys     *chem.System
	geom    chem.Geometry
}

func newDispersion(opts Options, name string, c6Scale float64) *Dispersion {
	wrapped := New(opts.Wraps, opts)
	return &Dispersion{opts: opts, name: name, c6Scale: c6Scale, wrapped: wrapped}
}

func (d *Dispersion) Bind(sys *chem.System) error {
	d.sys = sys
	d.geom = sys.Geometry.Clone()
	return d.wrapped.Bind(sys)
}

func (d *Dispersion) SetGeometry(g chem.Geometry) error {
	d.geom = g.Clone()
	return d.wrapped.SetGeometry(g)
}

func (d *Dispersion) Evaluate(wantGradient bool) (float64, chem.Gradient, error) {
	energy, grad, err := d.wrapped.Evaluate(wantGradient)
	if err != nil {
		return 0, nil, err
	}
	n := len(d.geom)
	if grad == nil && wantGradient {
		grad = chem.NewGeometry(n)
	}
	dampA1, dampA2 := 0.4, 4.0
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			ri := units.CovalentRadius[d.sys.Atoms[i].Z]
			rj := units.CovalentRadius[d.sys.Atoms[j].Z]
			c6 := d.c6Scale * (ri * rj) * 10.0
			r0 := dampA1*(ri+rj) + dampA2

			dx := d.geom[i][0] - d.geom[j][0]
			dy := d.geom[i][1] - d.geom[j][1]
			dz := d.geom[i][2] - d.geom[j][2]
			r2 := dx*dx + dy*dy + dz*dz
			if r2 < 1e-10 {
				continue
			}
			r := math.Sqrt(r2)
			r6 := r2 * r2 * r2
			damp := 1.0 / (1.0 + math.Pow(r0/r, 6))
			eDisp := -c6 / r6 * damp
			energy += eDisp

			if wantGradient {
				// numerical derivative of the damped term keeps the
				// decorator independent of the wrapped backend's
				// analytic gradient machinery.
				h := 1e-6
				fPlus := dampedTerm(c6, r0, r+h)
				fMinus := dampedTerm(c6, r0, r-h)
				dEdr := (fPlus - fMinus) / (2 * h)
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
	if math.IsNaN(energy) {
		return 0, nil, nanError(d.name)
	}
	return energy, grad, nil
}

func dampedTerm(c6, r0, r float64) float64 {
	r6 := r * r * r * r * r * r
	damp := 1.0 / (1.0 + math.Pow(r0/r, 6))
	return -c6 / r6 * damp
}

func (d *Dispersion) Dipole() ([3]float64, bool)         { return d.wrapped.Dipole() }
func (d *Dispersion) Charges() ([]float64, bool)         { return d.wrapped.Charges() }
func (d *Dispersion) BondOrders() ([][]float64, bool)    { return d.wrapped.BondOrders() }
func (d *Dispersion) OrbitalEnergies() ([]float64, bool) { return d.wrapped.OrbitalEnergies() }
func (d *Dispersion) ElectronCount() (int, bool)         { return d.wrapped.ElectronCount() }
