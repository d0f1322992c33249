package hessian

import (
	"context"
	"math"
	"testing"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/potential"
)

// diatomic builds a two-hydrogen system within the covalent-bond detection
// cutoff (~0.806 Å) so package potential's harmonic backend registers a
// real bond at Bind time.
func diatomic(r float64) *chem.System {
	geom := chem.Geometry{{0, 0, 0}, {0, 0, r}}
	return chem.NewSystem([]int{1, 1}, geom, 0, 1, 1.0)
}

func harmonicOptions() potential.Options {
	return potential.Options{Method: "harmonic", Params: map[string]float64{"k": 1.0, "r0": 1.0}}
}

func TestHessianIsSymmetric(t *testing.T) {
	sys := diatomic(0.7)
	e := New(Options{Method: "harmonic", Scheme: FullNumerical, PotentialOptions: harmonicOptions()})
	res, err := e.Build(context.Background(), sys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dim := 6
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			if diff := math.Abs(res.Hessian.At(a, b) - res.Hessian.At(b, a)); diff > 1e-10 {
				t.Errorf("H[%d,%d]=%.3g H[%d,%d]=%.3g not symmetric within 1e-10", a, b, res.Hessian.At(a, b), b, a, res.Hessian.At(b, a))
			}
		}
	}
}

func TestProjectionZeroesRigidBodyModes(t *testing.T) {
	sys := diatomic(0.7)
	e := New(Options{Method: "harmonic", Scheme: FullNumerical, PotentialOptions: harmonicOptions()})
	res, err := e.Build(context.Background(), sys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rigid := 0
	for _, m := range res.Modes {
		if m.RigidBodyMode {
			rigid++
		}
	}
	if rigid < 5 {
		t.Errorf("expected at least 5 rigid-body modes for a diatomic (3 translation + 2 rotation), got %d", rigid)
	}
}

func TestSemiNumericalAgreesWithFullNumerical(t *testing.T) {
	sys := diatomic(0.7)
	full := New(Options{Method: "harmonic", Scheme: FullNumerical, PotentialOptions: harmonicOptions()})
	semi := New(Options{Method: "harmonic", Scheme: SemiNumerical, PotentialOptions: harmonicOptions()})

	rf, err := full.Build(context.Background(), sys)
	if err != nil {
		t.Fatalf("full Build: %v", err)
	}
	rs, err := semi.Build(context.Background(), sys)
	if err != nil {
		t.Fatalf("semi Build: %v", err)
	}

	dim := 6
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			diff := math.Abs(rf.Hessian.At(a, b) - rs.Hessian.At(a, b))
			if diff > 1e-3 {
				t.Errorf("H[%d,%d]: full=%.6f semi=%.6f differ by %.6g", a, b, rf.Hessian.At(a, b), rs.Hessian.At(a, b), diff)
			}
		}
	}
}

// triatomic builds a linear three-atom chain (the spec's CO2 scenario)
// whose consecutive pairs fall within the covalent-bond cutoff so
// Harmonic.Bind registers two bonds, with the two end atoms too far apart
// to bond directly.
func triatomic(r float64) *chem.System {
	geom := chem.Geometry{{0, 0, -r}, {0, 0, 0}, {0, 0, r}}
	return chem.NewSystem([]int{1, 1, 1}, geom, 0, 1, 1.0)
}

func TestProjectionHandlesThreeAtomSystem(t *testing.T) {
	sys := triatomic(0.7)
	// No r0 override: each bond's rest length is its bind-time length, so
	// the chain sits at equilibrium.
	opts := potential.Options{Method: "harmonic", Params: map[string]float64{"k": 1.0}}
	e := New(Options{Method: "harmonic", Scheme: SemiNumerical, PotentialOptions: opts})
	res, err := e.Build(context.Background(), sys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Modes) != 9 {
		t.Fatalf("expected 9 modes for a 3-atom system, got %d", len(res.Modes))
	}

	rigid, real := 0, 0
	for _, m := range res.Modes {
		if m.RigidBodyMode {
			rigid++
			continue
		}
		if !m.Imaginary && m.RawEigenvalue > 0 {
			real++
		}
	}
	// A linear 3-atom chain has 5 rigid degrees of freedom (3 translation
	// + 2 rotation; the third rotation, about the chain axis, carries no
	// moment of inertia) and 4 vibrational degrees of freedom. The bare
	// bond-stretch potential used here has no angular term and the bonds
	// are unstrained, so the two bending modes contribute negligible
	// curvature; the two axial
	// bond-stretch modes must still survive as real, non-rigid modes.
	if rigid > 7 {
		t.Errorf("expected at most 7 modes classified rigid, got %d", rigid)
	}
	if real < 2 {
		t.Errorf("expected at least 2 real (bond-stretch) vibrational modes, got %d", real)
	}
}

func TestNonReentrantMethodForcesSingleThread(t *testing.T) {
	sys := diatomic(0.7)
	e := New(Options{Method: "gfnff", Scheme: FullNumerical, Threads: 8})
	if !isNonReentrant(e.opts.Method, e.opts.PotentialOptions) {
		t.Fatal("expected gfnff to be flagged non-reentrant")
	}
	if _, err := e.Build(context.Background(), sys); err != nil {
		t.Fatalf("Build with non-reentrant backend: %v", err)
	}
}
