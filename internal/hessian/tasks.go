package hessian

import (
	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/facade"
	"github.com/mdkit/curcuma/internal/units"
)

func newTaskFacade(e *Engine) *facade.Facade {
	return facade.New(facade.Options{
		Method:        e.opts.Method,
		Threads:       e.opts.PotentialOptions.Threads,
		Accuracy:      e.opts.PotentialOptions.Accuracy,
		MaxIterations: e.opts.PotentialOptions.MaxIterations,
		Solvent:       e.opts.PotentialOptions.Solvent,
		ParameterFile: e.opts.PotentialOptions.ParameterFile,
		Params:        e.opts.PotentialOptions.Params,
	})
}

func perturbed(base chem.Geometry, i, alpha int, delta float64) chem.Geometry {
	g := base.Clone()
	g[i][alpha] += delta
	return g
}

func gradientAt(f *facade.Facade, geomBohr chem.Geometry) (chem.Gradient, error) {
	if err := f.SetGeometry(geomBohr.ScaleUnits(units.BohrToAngstrom)); err != nil {
		return nil, err
	}
	if _, err := f.Evaluate(true); err != nil {
		return nil, err
	}
	// f.Gradient() is dE/dR in Å⁻¹·Hartree; rescale to dE/dR_bohr so the
	// finite-difference column lands in Hartree/Bohr² like the
	// full-numerical branch.
	g := f.Gradient()
	out := chem.NewGeometry(len(g))
	for i, row := range g {
		out[i] = [3]float64{row[0] * units.AuToAngstrom, row[1] * units.AuToAngstrom, row[2] * units.AuToAngstrom}
	}
	return out, nil
}

// mixedPartialTask computes one element H[a,b] of the full-numerical
// (4-point mixed-partial energy) Hessian, following HessianThread::Numerical.
type mixedPartialTask struct {
	engine  *Engine
	sys     *chem.System
	base    chem.Geometry
	a, b    int
	dim     int
	h       []float64
}

func (t *mixedPartialTask) Execute() (int, error) {
	i, alpha := t.a/3, t.a%3
	j, beta := t.b/3, t.b%3
	delta := t.engine.opts.Step

	f := newTaskFacade(t.engine)
	if err := f.SetSystem(t.sys); err != nil {
		return t.a, err
	}

	// The general 4-point mixed-partial formula degenerates correctly to
	// the standard 2nd-difference formula when i==j && alpha==beta (the
	// two perturbations on the same coordinate add), so no diagonal
	// special case is needed.
	pp := t.base.Clone()
	pp[i][alpha] += delta
	pp[j][beta] += delta
	epp, err := evalOnly(f, pp)
	if err != nil {
		return t.a, err
	}

	mp := t.base.Clone()
	mp[i][alpha] -= delta
	mp[j][beta] += delta
	emp, err := evalOnly(f, mp)
	if err != nil {
		return t.a, err
	}

	pm := t.base.Clone()
	pm[i][alpha] += delta
	pm[j][beta] -= delta
	epm, err := evalOnly(f, pm)
	if err != nil {
		return t.a, err
	}

	mm := t.base.Clone()
	mm[i][alpha] -= delta
	mm[j][beta] -= delta
	emm, err := evalOnly(f, mm)
	if err != nil {
		return t.a, err
	}

	val := (epp - emp - epm + emm) / (4 * delta * delta)
	t.h[t.a*t.dim+t.b] = val
	t.h[t.b*t.dim+t.a] = val
	return t.a, nil
}

func evalOnly(f *facade.Facade, geomBohr chem.Geometry) (float64, error) {
	if err := f.SetGeometry(geomBohr.ScaleUnits(units.BohrToAngstrom)); err != nil {
		return 0, err
	}
	return f.Evaluate(false)
}

// gradientColumnTask computes one column 3i+alpha of the semi-numerical
// (2-point gradient) Hessian, following HessianThread::Seminumerical.
type gradientColumnTask struct {
	engine     *Engine
	sys        *chem.System
	base       chem.Geometry
	i, alpha   int
	dim        int
	h          []float64
}

func (t *gradientColumnTask) Execute() (int, error) {
	col := 3*t.i + t.alpha
	delta := t.engine.opts.Step

	f := newTaskFacade(t.engine)
	if err := f.SetSystem(t.sys); err != nil {
		return col, err
	}

	plus := perturbed(t.base, t.i, t.alpha, delta)
	gp, err := gradientAt(f, plus)
	if err != nil {
		return col, err
	}

	minus := perturbed(t.base, t.i, t.alpha, -delta)
	gm, err := gradientAt(f, minus)
	if err != nil {
		return col, err
	}

	for row := 0; row < t.dim/3; row++ {
		for xi := 0; xi < 3; xi++ {
			r := 3*row + xi
			val := (gp[row][xi] - gm[row][xi]) / (2 * delta)
			t.h[r*t.dim+col] = val
		}
	}
	return col, nil
}
