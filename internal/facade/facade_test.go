package facade

import (
	"math"
	"testing"

	"github.com/mdkit/curcuma/internal/chem"
)

func diatomic(r float64) *chem.System {
	geom := chem.Geometry{{0, 0, 0}, {0, 0, r}}
	return chem.NewSystem([]int{1, 1}, geom, 0, 1, 1.0)
}

func TestSetGeometryRejectsUnboundFacade(t *testing.T) {
	f := New(Options{Method: "classical"})
	if err := f.SetGeometry([]float64{0, 0, 0, 0, 0, 1}); err == nil {
		t.Error("expected an error setting geometry before SetSystem")
	}
}

func TestEvaluateFlatVectorMatchesGeometryInput(t *testing.T) {
	sys := diatomic(0.7)
	opts := Options{Method: "harmonic", Params: map[string]float64{"k": 1.0, "r0": 1.0}}
	f := New(opts)
	if err := f.SetSystem(sys); err != nil {
		t.Fatalf("SetSystem: %v", err)
	}
	if err := f.SetGeometry(sys.Geometry.Flatten()); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	e, err := f.Evaluate(false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if e <= 0 {
		t.Errorf("expected positive strain energy off equilibrium, got %f", e)
	}

	g := New(opts)
	if err := g.SetSystem(sys); err != nil {
		t.Fatalf("SetSystem: %v", err)
	}
	if err := g.SetGeometry(sys.Geometry); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	eg, err := g.Evaluate(false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(e-eg) > 1e-12 {
		t.Errorf("flat-vector energy %f differs from geometry-input energy %f", e, eg)
	}
}

func TestHasNaNLatchesOnBadEnergy(t *testing.T) {
	sys := diatomic(1.1)
	f := New(Options{Method: "classical"})
	if err := f.SetSystem(sys); err != nil {
		t.Fatalf("SetSystem: %v", err)
	}
	bad := chem.Geometry{{0, 0, 0}, {0, 0, math.NaN()}}
	if err := f.SetGeometry(bad); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	_, err := f.Evaluate(true)
	if err == nil {
		t.Fatal("expected an error for a NaN-poisoned geometry")
	}
	if !f.HasNaN() {
		t.Error("expected HasNaN() to latch true after a NaN/Inf energy")
	}
}

func TestTightBindingConvergenceErrorSetsHasError(t *testing.T) {
	sys := diatomic(1.0)
	f := New(Options{Method: "gfn2", MaxIterations: 0, Accuracy: 1e-12})
	if err := f.SetSystem(sys); err != nil {
		t.Fatalf("SetSystem: %v", err)
	}
	if err := f.SetGeometry(sys.Geometry); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	if _, err := f.Evaluate(false); err == nil {
		t.Fatal("expected a convergence error")
	}
	if !f.HasError() {
		t.Error("expected HasError() to latch true after a convergence failure")
	}
	if f.HasNaN() {
		t.Error("a convergence failure should not also latch HasNaN()")
	}
}

func TestGradientUnitConversionForBohrBackend(t *testing.T) {
	sys := diatomic(1.1)
	f := New(Options{Method: "gfn2"})
	if err := f.SetSystem(sys); err != nil {
		t.Fatalf("SetSystem: %v", err)
	}
	if err := f.SetGeometry(sys.Geometry); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	if _, err := f.Evaluate(true); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	g := f.Gradient()
	for _, row := range g {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("gradient component is not finite: %v", v)
			}
		}
	}
}
