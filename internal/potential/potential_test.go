package potential

import (
	"math"
	"testing"

	"github.com/mdkit/curcuma/internal/chem"
)

func diatomic(r float64) *chem.System {
	geom := chem.Geometry{{0, 0, 0}, {0, 0, r}}
	return chem.NewSystem([]int{1, 1}, geom, 0, 1, 1.0)
}

func TestUnknownMethodFallsBackToClassical(t *testing.T) {
	p := New("does-not-exist", Options{})
	if p == nil {
		t.Fatal("expected a fallback Potential, got nil")
	}
	if _, ok := p.(*Classical); !ok {
		t.Errorf("expected fallback to Classical, got %T", p)
	}
}

func TestGFNFFIsFlaggedNonReentrant(t *testing.T) {
	p := New("gfnff", Options{})
	nr, ok := p.(NonReentrant)
	if !ok || !nr.NonReentrant() {
		t.Error("expected gfnff to report NonReentrant() == true")
	}
	other := New("classical", Options{})
	if nr2, ok := other.(NonReentrant); ok && nr2.NonReentrant() {
		t.Error("expected classical to not be flagged non-reentrant")
	}
}

func TestHarmonicGradientMatchesFiniteDifference(t *testing.T) {
	sys := diatomic(1.1)
	h := NewHarmonic(Options{Params: map[string]float64{"k": 1.0}}).(*Harmonic)
	if err := h.BindPair(sys, 1.0); err != nil {
		t.Fatalf("bind: %v", err)
	}

	_, grad, err := h.Evaluate(true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	delta := 1e-6
	for atom := 0; atom < 2; atom++ {
		for axis := 0; axis < 3; axis++ {
			plus := sys.Geometry.Clone()
			plus[atom][axis] += delta
			h.SetGeometry(plus)
			ePlus, _, _ := h.Evaluate(false)

			minus := sys.Geometry.Clone()
			minus[atom][axis] -= delta
			h.SetGeometry(minus)
			eMinus, _, _ := h.Evaluate(false)

			fd := (ePlus - eMinus) / (2 * delta)
			if math.Abs(fd-grad[atom][axis]) > 1e-4 {
				t.Errorf("atom %d axis %d: analytic %.6f vs finite-difference %.6f", atom, axis, grad[atom][axis], fd)
			}
		}
	}
}

func TestHarmonicEnergyAtEquilibriumIsZero(t *testing.T) {
	sys := diatomic(1.0)
	h := NewHarmonic(Options{}).(*Harmonic)
	if err := h.BindPair(sys, 1.0); err != nil {
		t.Fatalf("bind: %v", err)
	}
	e, _, err := h.Evaluate(false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if math.Abs(e) > 1e-12 {
		t.Errorf("expected zero energy at equilibrium bond length, got %e", e)
	}
}

func TestTightBindingReportsConvergenceError(t *testing.T) {
	sys := diatomic(1.0)
	tb := NewTightBinding(Options{MaxIterations: 0, Accuracy: 1e-12})
	if err := tb.Bind(sys); err != nil {
		t.Fatalf("bind: %v", err)
	}
	_, _, err := tb.Evaluate(false)
	if err == nil {
		t.Fatal("expected a convergence error with zero iterations budgeted")
	}
}

func TestDispersionWrapsClassical(t *testing.T) {
	sys := diatomic(2.5)
	p := New("d3", Options{Wraps: "classical"})
	if err := p.Bind(sys); err != nil {
		t.Fatalf("bind: %v", err)
	}
	e, _, err := p.Evaluate(false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if math.IsNaN(e) {
		t.Error("dispersion-corrected energy is NaN")
	}
}
