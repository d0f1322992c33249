package md

import (
	"math"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/units"
)

// Wall computes a boundary-potential energy and adds its gradient onto
// grad in place (grad must already hold the potential's own gradient; Wall
// accumulates into it, matching the "added to the gradient before the
// second half-kick" ordering from §4.5).
type Wall interface {
	Apply(geom chem.Geometry, grad chem.Gradient) (energy float64)
}

// NoWall applies no boundary potential.
type NoWall struct{}

func (NoWall) Apply(geom chem.Geometry, grad chem.Gradient) float64 { return 0 }

// SphericalLogFermi implements U = kT·Σᵢ log(1+exp(β(|rᵢ|−R))).
type SphericalLogFermi struct {
	Radius, Beta, Temp float64
}

func (w SphericalLogFermi) Apply(geom chem.Geometry, grad chem.Gradient) float64 {
	energy := 0.0
	kt := units.KB * w.Temp
	for i, p := range geom {
		r := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if r < 1e-12 {
			continue
		}
		x := w.Beta * (r - w.Radius)
		ex := math.Exp(clampExp(x))
		energy += kt * math.Log(1+ex)
		// dU/dr = kT·β·ex/(1+ex); distribute along r̂.
		dUdr := kt * w.Beta * ex / (1 + ex)
		f := dUdr / r
		grad[i][0] += f * p[0]
		grad[i][1] += f * p[1]
		grad[i][2] += f * p[2]
	}
	return energy
}

// RectLogFermi is six one-sided log-Fermi terms, one per face.
type RectLogFermi struct {
	XMin, XMax, YMin, YMax, ZMin, ZMax float64
	Beta, Temp                         float64
}

func (w RectLogFermi) Apply(geom chem.Geometry, grad chem.Gradient) float64 {
	kt := units.KB * w.Temp
	energy := 0.0
	faces := []struct {
		coord   int
		bound   float64
		outward float64 // +1 if violation is coord > bound, -1 if coord < bound
	}{
		{0, w.XMax, 1}, {0, w.XMin, -1},
		{1, w.YMax, 1}, {1, w.YMin, -1},
		{2, w.ZMax, 1}, {2, w.ZMin, -1},
	}
	for i, p := range geom {
		for _, fc := range faces {
			x := fc.outward * w.Beta * (p[fc.coord] - fc.bound)
			ex := math.Exp(clampExp(x))
			energy += kt * math.Log(1+ex)
			dUdc := kt * w.Beta * fc.outward * ex / (1 + ex)
			grad[i][fc.coord] += dUdc
		}
	}
	return energy
}

// SphericalHarmonic implements U = ½k(R−|r|)² for |r|>R.
type SphericalHarmonic struct {
	Radius, K float64
}

func (w SphericalHarmonic) Apply(geom chem.Geometry, grad chem.Gradient) float64 {
	energy := 0.0
	for i, p := range geom {
		r := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if r <= w.Radius || r < 1e-12 {
			continue
		}
		d := w.Radius - r
		energy += 0.5 * w.K * d * d
		dUdr := -w.K * d
		f := dUdr / r
		grad[i][0] += f * p[0]
		grad[i][1] += f * p[1]
		grad[i][2] += f * p[2]
	}
	return energy
}

// RectHarmonic sums one-sided squared penalties beyond each face.
type RectHarmonic struct {
	XMin, XMax, YMin, YMax, ZMin, ZMax float64
	K                                  float64
}

func (w RectHarmonic) Apply(geom chem.Geometry, grad chem.Gradient) float64 {
	energy := 0.0
	for i, p := range geom {
		for axis := 0; axis < 3; axis++ {
			var min, max float64
			switch axis {
			case 0:
				min, max = w.XMin, w.XMax
			case 1:
				min, max = w.YMin, w.YMax
			default:
				min, max = w.ZMin, w.ZMax
			}
			if p[axis] > max {
				d := p[axis] - max
				energy += 0.5 * w.K * d * d
				grad[i][axis] += w.K * d
			} else if p[axis] < min {
				d := p[axis] - min
				energy += 0.5 * w.K * d * d
				grad[i][axis] += w.K * d
			}
		}
	}
	return energy
}

func clampExp(x float64) float64 {
	if x > 700 {
		return 700
	}
	if x < -700 {
		return -700
	}
	return x
}
