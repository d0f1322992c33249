package md

import (
	"math"
	"testing"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/config"
	"github.com/mdkit/curcuma/internal/facade"
)

func diatomic(r float64) *chem.System {
	geom := chem.Geometry{{0, 0, 0}, {0, 0, r}}
	return chem.NewSystem([]int{1, 1}, geom, 0, 1, 1)
}

func harmonicFacadeOptions() facade.Options {
	return facade.Options{Method: "harmonic", Params: map[string]float64{"k": 1.0, "r0": 0.7}}
}

func baseConfig() *config.MD {
	cfg := config.DefaultMD()
	cfg.Method = "harmonic"
	cfg.DT = 0.5
	cfg.T = 300
	cfg.Velo = 0
	cfg.RmCOM = 0
	cfg.Thermostat = "none"
	cfg.Wall = "none"
	return cfg
}

func TestNVEConservesEnergyOverShortRun(t *testing.T) {
	sys := diatomic(0.7)
	cfg := baseConfig()

	sim, err := New(cfg, sys, harmonicFacadeOptions(), nil, nil, nil, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// give the bond some kinetic energy by hand instead of thermal sampling.
	sim.velo[5] = 0.002

	if err := sim.Initialise(""); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	// Initialise resets velocities, to zero since Velo=0, so re-seed
	// after initialisation for a deterministic non-zero kinetic energy.
	sim.velo[5] = 0.002
	sim.averages.Epot, _, _ = evaluateAt(sim.sys, sim.fac, sim.pos)

	etot0 := sim.averages.Epot + sim.kineticEnergy()

	var lastEtot float64
	for i := 0; i < 200; i++ {
		if _, err := sim.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		lastEtot = sim.averages.Etot
	}
	_ = lastEtot

	epot, grad, err := evaluateAt(sim.sys, sim.fac, sim.pos)
	if err != nil {
		t.Fatalf("evaluateAt: %v", err)
	}
	_ = grad
	etotFinal := epot + sim.kineticEnergy()

	if math.Abs(etotFinal-etot0) > 1e-4 {
		t.Errorf("total energy drifted: start=%v end=%v", etot0, etotFinal)
	}
}

func TestBerendsenPullsTemperatureTowardTarget(t *testing.T) {
	sys := diatomic(0.7)
	cfg := baseConfig()
	cfg.Thermostat = "berendsen"
	cfg.T = 300
	cfg.Coupling = 5
	cfg.Velo = 0
	cfg.Seed = 42

	sim, err := New(cfg, sys, harmonicFacadeOptions(), nil, nil, nil, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sim.Initialise(""); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	// Start far below target: near-zero kinetic energy.
	for i := range sim.velo {
		sim.velo[i] = 0
	}
	sim.velo[5] = 1e-5

	var lastT float64
	for i := 0; i < 500; i++ {
		T, err := sim.Step()
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		lastT = T
	}
	if lastT <= 0 {
		t.Fatalf("expected thermostat to raise temperature above zero, got %v", lastT)
	}
}

func TestRattleHoldsConstraintDistance(t *testing.T) {
	sys := diatomic(0.7)
	cfg := baseConfig()
	cfg.Rattle = "all"
	cfg.RattleTolerance = 1e-8
	cfg.RattleMaxIter = 100
	cfg.Velo = 0

	sim, err := New(cfg, sys, harmonicFacadeOptions(), nil, nil, nil, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sim.Initialise(""); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	if len(sim.integrator.(*Rattle).Constraints) == 0 {
		t.Fatal("expected at least one RATTLE constraint for a bonded diatomic")
	}

	sim.velo[3] = 5e-4 // push atom 1 sideways, off the bond axis component
	sim.velo[4] = -3e-4

	d2Target := sim.integrator.(*Rattle).Constraints[0].D2Target

	for i := 0; i < 100; i++ {
		if _, err := sim.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		dx := sim.pos[0] - sim.pos[3]
		dy := sim.pos[1] - sim.pos[4]
		dz := sim.pos[2] - sim.pos[5]
		d2 := dx*dx + dy*dy + dz*dz
		if math.Abs(d2-d2Target) > 1e-4 {
			t.Fatalf("step %d: bond length drifted, d2=%v target=%v", i, d2, d2Target)
		}
	}
}

func TestSeedDeterminism(t *testing.T) {
	run := func() []float64 {
		sys := diatomic(0.7)
		cfg := baseConfig()
		cfg.Seed = 7
		cfg.T = 300
		cfg.Velo = 1

		sim, err := New(cfg, sys, harmonicFacadeOptions(), nil, nil, nil, t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := sim.Initialise(""); err != nil {
			t.Fatalf("Initialise: %v", err)
		}
		return append([]float64{}, sim.velo...)
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded run diverged at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRemoveCOMMotionZeroesLinearMomentum(t *testing.T) {
	sys := diatomic(0.7)
	cfg := baseConfig()
	sim, err := New(cfg, sys, harmonicFacadeOptions(), nil, nil, nil, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sim.Initialise(""); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	sim.velo[0], sim.velo[1], sim.velo[2] = 1e-3, 2e-3, -1e-3
	sim.velo[3], sim.velo[4], sim.velo[5] = 1e-3, 2e-3, -1e-3

	sim.removeCOMMotion()

	var px, py, pz float64
	for i, m := range sim.masses {
		px += m * sim.velo[3*i]
		py += m * sim.velo[3*i+1]
		pz += m * sim.velo[3*i+2]
	}
	if math.Abs(px) > 1e-12 || math.Abs(py) > 1e-12 || math.Abs(pz) > 1e-12 {
		t.Errorf("linear momentum not removed: (%v, %v, %v)", px, py, pz)
	}
}
