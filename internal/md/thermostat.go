package md

import (
	"math"
	"math/rand"

	"github.com/mdkit/curcuma/internal/units"
)

// Thermostat rescales velocities toward the target temperature once per
// step, mirroring SimpleMD::Berendson generalised to a small strategy
// interface so CSVR can share the call site.
type Thermostat interface {
	// Apply scales velo in place given the instantaneous temperature
	// current and returns the heat-bath exchange energy (0 for
	// deterministic thermostats).
	Apply(velo []float64, current, target, dt, coupling float64, dof int, rng *rand.Rand) (exchange float64)
}

// NoneThermostat leaves velocities untouched.
type NoneThermostat struct{}

func (NoneThermostat) Apply(velo []float64, current, target, dt, coupling float64, dof int, rng *rand.Rand) float64 {
	return 0
}

// Berendsen scales every velocity by λ = √(1 + (dT/τ)·(T₀/T − 1)).
type Berendsen struct{}

func (Berendsen) Apply(velo []float64, current, target, dt, coupling float64, dof int, rng *rand.Rand) float64 {
	if current <= 0 {
		return 0
	}
	radicand := 1 + (dt/coupling)*(target/current-1)
	if radicand < 0 {
		radicand = 0
	}
	lambda := math.Sqrt(radicand)
	for i := range velo {
		velo[i] *= lambda
	}
	return 0
}

// CSVR is the Bussi–Donadio–Parrinello canonical-sampling velocity
// rescaling thermostat.
type CSVR struct{}

func (CSVR) Apply(velo []float64, current, target, dt, coupling float64, dof int, rng *rand.Rand) float64 {
	if current <= 0 || dof <= 0 {
		return 0
	}
	ekin := 0.5 * float64(dof) * units.KB * current
	ekinTarget := 0.5 * units.KB * target * float64(dof)

	c := math.Exp(-dt / coupling)
	r := rng.NormFloat64()
	snf := sampleChiSquared(rng, dof)

	ratio := ekinTarget / ekin / float64(dof)
	alpha2 := c + (1-c)*(snf+r*r)*ratio + 2*r*math.Sqrt(c*(1-c)*ratio)
	if alpha2 < 0 {
		alpha2 = 0
	}
	alpha := math.Sqrt(alpha2)
	for i := range velo {
		velo[i] *= alpha
	}
	return ekin * (alpha2 - 1)
}

// sampleChiSquared draws a χ²(k) variate as the sum of k standard normal
// squares — adequate for the small dof values MD constraints leave, and
// avoids pulling in a stats package the rest of the corpus doesn't use.
func sampleChiSquared(rng *rand.Rand, k int) float64 {
	if k <= 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		v := rng.NormFloat64()
		sum += v * v
	}
	return sum
}

// NewThermostat selects a Thermostat by the Config.Thermostat name,
// defaulting to NoneThermostat for anything unrecognised.
func NewThermostat(name string) Thermostat {
	switch name {
	case "berendsen":
		return Berendsen{}
	case "csvr":
		return CSVR{}
	default:
		return NoneThermostat{}
	}
}
