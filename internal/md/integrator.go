package md

import (
	"errors"
	"math"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/errs"
	"github.com/mdkit/curcuma/internal/facade"
	"github.com/mdkit/curcuma/internal/units"
)

// Integrator advances (positions, velocities) by one step, evaluating the
// gradient at the new position through f. All arithmetic and Wall
// application happen in Bohr / atomic time units; pos, velo and grad are
// flat 3N buffers owned by the caller.
type Integrator interface {
	Step(sys *chem.System, f *facade.Facade, wall Wall, masses []float64, pos, velo, grad []float64, dtAU float64) (epot, wallEnergy float64, err error)
}

func bohrToAngstrom(flat []float64) chem.Geometry {
	g := chem.GeometryFromFlat(flat)
	return g.ScaleUnits(units.BohrToAngstrom)
}

// gradientToBohr converts the façade's Å⁻¹·Hartree gradient to Bohr⁻¹·Hartree.
func gradientToBohr(g chem.Gradient) []float64 {
	flat := make([]float64, 3*len(g))
	for i, row := range g {
		flat[3*i] = row[0] * units.AuToAngstrom
		flat[3*i+1] = row[1] * units.AuToAngstrom
		flat[3*i+2] = row[2] * units.AuToAngstrom
	}
	return flat
}

func evaluateAt(sys *chem.System, f *facade.Facade, posBohr []float64) (float64, []float64, error) {
	geom := bohrToAngstrom(posBohr)
	sys.Geometry = geom
	if err := f.SetGeometry(geom); err != nil {
		return 0, nil, err
	}
	epot, err := f.Evaluate(true)
	if err != nil {
		return 0, nil, err
	}
	if f.HasNaN() {
		return 0, nil, &errs.NumericalError{Reason: "md: energy facade reported NaN"}
	}
	return epot, gradientToBohr(f.Gradient()), nil
}

// VelocityVerlet implements the unconstrained leapfrog-style update from
// §4.5: x ← x+dT·v−½(dT²/m)g, v ← v−½(dT/m)g, g ← ∇E(x), v ← v−½(dT/m)g.
type VelocityVerlet struct{}

func (VelocityVerlet) Step(sys *chem.System, f *facade.Facade, wall Wall, masses []float64, pos, velo, grad []float64, dtAU float64) (float64, float64, error) {
	n := len(masses)
	for i := 0; i < n; i++ {
		m := masses[i]
		for a := 0; a < 3; a++ {
			idx := 3*i + a
			pos[idx] += dtAU*velo[idx] - 0.5*(dtAU*dtAU/m)*grad[idx]
			velo[idx] -= 0.5 * (dtAU / m) * grad[idx]
		}
	}

	epot, newGrad, err := evaluateAt(sys, f, pos)
	if err != nil {
		return 0, 0, err
	}

	geom := chem.GeometryFromFlat(pos)
	gradGeom := chem.GeometryFromFlat(newGrad)
	wallEnergy := wall.Apply(geom, gradGeom)
	copy(newGrad, gradGeom.Flatten())

	for i := 0; i < n; i++ {
		m := masses[i]
		for a := 0; a < 3; a++ {
			idx := 3*i + a
			velo[idx] -= 0.5 * (dtAU / m) * newGrad[idx]
		}
	}
	copy(grad, newGrad)
	return epot, wallEnergy, nil
}

// Rattle wraps VelocityVerlet's kinematics with the SHAKE/RATTLE
// bond-length constraint iteration from §4.5.
type Rattle struct {
	Constraints []chem.BondConstraint
	Tolerance   float64
	MaxIter     int

	// VirialCorrection accumulates Σμ·d across velocity-constraint passes,
	// for diagnostic reporting.
	VirialCorrection float64
}

const rattleLambdaCap = 1e6

func (r *Rattle) Step(sys *chem.System, f *facade.Facade, wall Wall, masses []float64, pos, velo, grad []float64, dtAU float64) (float64, float64, error) {
	n := len(masses)
	prevPos := make([]float64, len(pos))
	copy(prevPos, pos)

	for i := 0; i < n; i++ {
		m := masses[i]
		for a := 0; a < 3; a++ {
			idx := 3*i + a
			pos[idx] += dtAU*velo[idx] - 0.5*(dtAU*dtAU/m)*grad[idx]
			velo[idx] -= 0.5 * (dtAU / m) * grad[idx]
		}
	}

	var posErr error
	for iter := 0; iter < r.MaxIter; iter++ {
		maxViolation := 0.0
		var offendingI, offendingJ int
		for _, c := range r.Constraints {
			i, j := c.I, c.J
			dx := pos[3*i] - pos[3*j]
			dy := pos[3*i+1] - pos[3*j+1]
			dz := pos[3*i+2] - pos[3*j+2]
			current := dx*dx + dy*dy + dz*dz
			diff := c.D2Target - current
			if math.Abs(diff) > 2*r.Tolerance*c.D2Target && maxViolation < math.Abs(diff) {
				maxViolation = math.Abs(diff)
				offendingI, offendingJ = i, j
			}

			rx := prevPos[3*i] - prevPos[3*j]
			ry := prevPos[3*i+1] - prevPos[3*j+1]
			rz := prevPos[3*i+2] - prevPos[3*j+2]
			dot := dx*rx + dy*ry + dz*rz
			invMassSum := 1/masses[i] + 1/masses[j]
			if math.Abs(dot) < 1e-14 {
				continue
			}
			lambda := diff / (invMassSum * dot)
			if lambda > rattleLambdaCap {
				lambda = rattleLambdaCap
			} else if lambda < -rattleLambdaCap {
				lambda = -rattleLambdaCap
			}

			for a := 0; a < 3; a++ {
				corr := 0.5 * lambda * (rBohrAxis(rx, ry, rz, a))
				pos[3*i+a] += corr / masses[i]
				pos[3*j+a] -= corr / masses[j]
				velo[3*i+a] += corr / masses[i] / dtAU
				velo[3*j+a] -= corr / masses[j] / dtAU
			}
		}
		if maxViolation == 0 {
			posErr = nil
			break
		}
		posErr = &errs.ConstraintError{I: offendingI, J: offendingJ, Diff: maxViolation, MaxIters: r.MaxIter}
	}

	epot, newGrad, err := evaluateAt(sys, f, pos)
	if err != nil {
		return 0, 0, err
	}

	geom := chem.GeometryFromFlat(pos)
	gradGeom := chem.GeometryFromFlat(newGrad)
	wallEnergy := wall.Apply(geom, gradGeom)
	copy(newGrad, gradGeom.Flatten())

	for i := 0; i < n; i++ {
		m := masses[i]
		for a := 0; a < 3; a++ {
			idx := 3*i + a
			velo[idx] -= 0.5 * (dtAU / m) * newGrad[idx]
		}
	}
	copy(grad, newGrad)

	var velErr error
	r.VirialCorrection = 0
	for iter := 0; iter < r.MaxIter; iter++ {
		maxViolation := 0.0
		var offendingI, offendingJ int
		for _, c := range r.Constraints {
			i, j := c.I, c.J
			vx := velo[3*i] - velo[3*j]
			vy := velo[3*i+1] - velo[3*j+1]
			vz := velo[3*i+2] - velo[3*j+2]
			dx := pos[3*i] - pos[3*j]
			dy := pos[3*i+1] - pos[3*j+1]
			dz := pos[3*i+2] - pos[3*j+2]
			dot := dx*vx + dy*vy + dz*vz
			if math.Abs(dot) < r.Tolerance {
				continue
			}
			if math.Abs(dot) > maxViolation {
				maxViolation = math.Abs(dot)
				offendingI, offendingJ = i, j
			}
			invMassSum := 1/masses[i] + 1/masses[j]
			d2 := dx*dx + dy*dy + dz*dz
			if d2 < 1e-20 {
				continue
			}
			mu := dot / (invMassSum * d2)
			r.VirialCorrection += mu * d2
			for a := 0; a < 3; a++ {
				var rAxis float64
				switch a {
				case 0:
					rAxis = dx
				case 1:
					rAxis = dy
				default:
					rAxis = dz
				}
				velo[3*i+a] -= mu * rAxis / masses[i]
				velo[3*j+a] += mu * rAxis / masses[j]
			}
		}
		if maxViolation == 0 {
			velErr = nil
			break
		}
		velErr = &errs.ConstraintError{I: offendingI, J: offendingJ, Diff: maxViolation, MaxIters: r.MaxIter}
	}

	return epot, wallEnergy, errors.Join(posErr, velErr)
}

func rBohrAxis(rx, ry, rz float64, axis int) float64 {
	switch axis {
	case 0:
		return rx
	case 1:
		return ry
	default:
		return rz
	}
}

// NewIntegrator selects an Integrator by name ("rattle" or anything else;
// the Simulation passes its integratorName, see config.MD.Rattle for the
// RATTLE-specific sub-options). Unrecognised names
// fall back to unconstrained VelocityVerlet.
func NewIntegrator(name string, constraints []chem.BondConstraint, tolerance float64, maxIter int) Integrator {
	if name == "rattle" {
		return &Rattle{Constraints: constraints, Tolerance: tolerance, MaxIter: maxIter}
	}
	return VelocityVerlet{}
}
