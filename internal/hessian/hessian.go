// Package hessian builds mass-weighted force-constant matrices by finite
// difference and reduces them to vibrational frequencies, mirroring
// core/hessian.cpp's HessianThread/Hessian pair but farming the
// finite-difference samples out to workerpool.Pool instead of a bespoke
// thread pool.
package hessian

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/potential"
	"github.com/mdkit/curcuma/internal/units"
	"github.com/mdkit/curcuma/internal/workerpool"
)

// Scheme selects the finite-difference formula.
type Scheme int

const (
	// FullNumerical is the O(N²) 4-point mixed-partial energy scheme.
	FullNumerical Scheme = iota
	// SemiNumerical is the O(N) 2-point gradient-column scheme.
	SemiNumerical
)

// DefaultStep is the finite-difference displacement, in Bohr.
const DefaultStep = 5e-3

// ProjectionThreshold marks a projected eigenvalue as a rigid
// translation/rotation mode rather than a genuine vibration.
const ProjectionThreshold = 1e-10

// ScaleFunc maps a square-root eigenvalue (angular frequency, atomic units)
// to a reported frequency.
type ScaleFunc func(sqrtAbsEigenvalue float64) float64

// DefaultScale is the single built-in (a, b) linear scale used for every
// method and both finite-difference branches, following
// core/hessian.cpp's m_scale_functions (which carries the identical
// literal in both of its method branches).
func DefaultScale(v float64) float64 { return v*2720.57 - 0.0338928 }

// Options configures an Engine.
type Options struct {
	Method           string
	Threads          int
	Scheme           Scheme
	Step             float64
	Scale            ScaleFunc
	PotentialOptions potential.Options

	// Rand seeds the random completion basis ProjectHessian's Löwdin
	// orthogonalization needs (see projectRigidBody). Left nil, New seeds
	// the Engine's source with 1; successive Build calls on one Engine keep
	// drawing from that source.
	Rand *rand.Rand
}

// Mode is a single vibrational mode.
type Mode struct {
	RawEigenvalue       float64
	ProjectedEigenvalue float64
	Frequency           float64
	Imaginary           bool
	RigidBodyMode       bool
}

// Result is the outcome of an Engine.Build call.
type Result struct {
	Hessian         *mat.SymDense // 3N×3N, symmetrised, unprojected, Hartree/Bohr²
	MassWeighted    *mat.SymDense
	Projected       *mat.SymDense
	Modes           []Mode
}

// Engine builds a Hessian for a fixed (method, options) pair.
type Engine struct {
	opts Options
	rng  *rand.Rand
}

// New constructs an Engine. Step defaults to DefaultStep and Scale to
// DefaultScale when left zero.
func New(opts Options) *Engine {
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.Scale == nil {
		opts.Scale = DefaultScale
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Engine{opts: opts, rng: rng}
}

// Build computes the Hessian and vibrational analysis for sys at its
// current geometry. Every finite-difference sample owns its own
// facade.Facade constructed from (method, options); no Potential state is
// shared between tasks.
func (e *Engine) Build(ctx context.Context, sys *chem.System) (*Result, error) {
	n := sys.N()
	dim := 3 * n
	h := make([]float64, dim*dim)

	nonReentrant := isNonReentrant(e.opts.Method, e.opts.PotentialOptions)

	pool := workerpool.New(e.opts.Threads)
	if nonReentrant {
		pool.SetActiveThreads(1)
		pool.SetStatic()
	} else {
		pool.SetDynamic(2)
	}

	baseBohr := sys.Geometry.ScaleUnits(units.AngstromToBohr)

	if e.opts.Scheme == SemiNumerical {
		for i := 0; i < n; i++ {
			for alpha := 0; alpha < 3; alpha++ {
				pool.AddTask(&gradientColumnTask{
					engine: e, sys: sys, base: baseBohr,
					i: i, alpha: alpha, dim: dim, h: h,
				})
			}
		}
	} else {
		for a := 0; a < dim; a++ {
			for b := a; b < dim; b++ {
				pool.AddTask(&mixedPartialTask{
					engine: e, sys: sys, base: baseBohr,
					a: a, b: b, dim: dim, h: h,
				})
			}
		}
	}

	if err := pool.StartAndWait(ctx); err != nil {
		return nil, err
	}

	symmetrize(h, dim)

	hessian := mat.NewSymDense(dim, nil)
	for a := 0; a < dim; a++ {
		for b := a; b < dim; b++ {
			hessian.SetSym(a, b, h[a*dim+b])
		}
	}

	massWeighted := massWeight(hessian, sys.Masses(), dim)
	projected := projectRigidBody(hessian, sys, e.rng)
	projectedMassWeighted := massWeight(projected, sys.Masses(), dim)

	rawEigen := symEigenvalues(massWeighted)
	projEigen := symEigenvalues(projectedMassWeighted)

	modes := make([]Mode, dim)
	for i := 0; i < dim; i++ {
		modes[i] = classifyMode(rawEigen[i], projEigen[i], e.opts.Scale)
	}

	return &Result{
		Hessian:      hessian,
		MassWeighted: massWeighted,
		Projected:    projected,
		Modes:        modes,
	}, nil
}

func isNonReentrant(method string, opts potential.Options) bool {
	p := potential.New(method, opts)
	nr, ok := p.(potential.NonReentrant)
	return ok && nr.NonReentrant()
}

func classifyMode(raw, projected float64, scale ScaleFunc) Mode {
	m := Mode{RawEigenvalue: raw, ProjectedEigenvalue: projected}
	if math.Abs(projected) < ProjectionThreshold {
		m.RigidBodyMode = true
		return m
	}
	if raw < 0 {
		m.Imaginary = true
		m.Frequency = scale(math.Sqrt(-raw))
		return m
	}
	m.Frequency = scale(math.Sqrt(raw))
	return m
}

func symmetrize(h []float64, dim int) {
	for a := 0; a < dim; a++ {
		for b := a + 1; b < dim; b++ {
			avg := (h[a*dim+b] + h[b*dim+a]) / 2
			h[a*dim+b] = avg
			h[b*dim+a] = avg
		}
	}
}

func massWeight(h *mat.SymDense, masses []float64, dim int) *mat.SymDense {
	n := dim / 3
	invSqrt := make([]float64, n)
	for i, m := range masses {
		invSqrt[i] = 1 / math.Sqrt(m)
	}
	out := mat.NewSymDense(dim, nil)
	for a := 0; a < dim; a++ {
		for b := a; b < dim; b++ {
			w := invSqrt[a/3] * invSqrt[b/3]
			out.SetSym(a, b, h.At(a, b)*w)
		}
	}
	return out
}

// projectRigidBody removes the six rigid translation/rotation degrees of
// freedom via the symmetric orthonormaliser R = D·(DᵀD)^(-1/2), following
// core/hessian.cpp's ProjectHessian: D is 3N×3N, its first six columns are
// the exact translation/rotation generators and the remaining 3N−6 columns
// are a random completion basis so D is (generically) full rank and R
// comes out 3N×3N rather than 3N×6.
func projectRigidBody(h *mat.SymDense, sys *chem.System, rng *rand.Rand) *mat.SymDense {
	n := sys.N()
	dim := 3 * n
	if dim < 6 {
		out := mat.NewSymDense(dim, nil)
		return out
	}

	d := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 6; j < dim; j++ {
			d.Set(i, j, rng.Float64())
		}
	}
	for i := 0; i < n; i++ {
		d.Set(3*i+0, 0, 1)
		d.Set(3*i+1, 1, 1)
		d.Set(3*i+2, 2, 1)

		r := sys.Geometry[i]
		// rotation-generator columns: e_k × r_i
		d.Set(3*i+0, 3, 0)
		d.Set(3*i+1, 3, -r[2])
		d.Set(3*i+2, 3, r[1])

		d.Set(3*i+0, 4, r[2])
		d.Set(3*i+1, 4, 0)
		d.Set(3*i+2, 4, -r[0])

		d.Set(3*i+0, 5, -r[1])
		d.Set(3*i+1, 5, r[0])
		d.Set(3*i+2, 5, 0)
	}

	xtx := mat.NewDense(dim, dim, nil)
	xtx.Mul(d.T(), d)
	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, xtx.At(i, j))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		// DᵀD is rank-deficient only for pathological geometries; fall
		// back to an unprojected copy.
		out := mat.NewSymDense(dim, nil)
		for a := 0; a < dim; a++ {
			for b := a; b < dim; b++ {
				out.SetSym(a, b, h.At(a, b))
			}
		}
		return out
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	invSqrtDiag := mat.NewDense(dim, dim, nil)
	for i, v := range vals {
		if v > 1e-12 {
			invSqrtDiag.Set(i, i, 1/math.Sqrt(v))
		}
	}
	var sInvSqrt mat.Dense
	sInvSqrt.Mul(&vecs, invSqrtDiag)
	var sFull mat.Dense
	sFull.Mul(&sInvSqrt, vecs.T())

	var r mat.Dense
	r.Mul(d, &sFull)

	full := mat.NewDense(dim, dim, nil)
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			full.Set(a, b, h.At(a, b))
		}
	}
	var tmp, projFull mat.Dense
	tmp.Mul(r.T(), full)
	projFull.Mul(&tmp, &r)

	out := mat.NewSymDense(dim, nil)
	for a := 0; a < dim; a++ {
		for b := a; b < dim; b++ {
			if a < 6 || b < 6 {
				out.SetSym(a, b, 0)
				continue
			}
			out.SetSym(a, b, projFull.At(a, b))
		}
	}
	return out
}

func symEigenvalues(h *mat.SymDense) []float64 {
	var eig mat.EigenSym
	eig.Factorize(h, false)
	return eig.Values(nil)
}
