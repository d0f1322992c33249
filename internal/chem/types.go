// Package chem holds the data model shared by the potential, façade,
// Hessian and MD packages: atoms, geometry, systems, gradients, velocities,
// bond constraints, thermostat state and wall parameters.
package chem

import (
	"math"

	"github.com/mdkit/curcuma/internal/units"
)

// Atom is an atomic number paired with its (possibly repartitioned) mass
// in atomic units.
type Atom struct {
	Z    int
	Mass float64
}

// Geometry is an N×3 array of Cartesian coordinates in Ångström at the
// public boundary.
type Geometry [][3]float64

// Gradient has the same shape and units as Geometry (Å⁻¹·Hartree).
type Gradient = Geometry

// NewGeometry allocates an N×3 geometry.
func NewGeometry(n int) Geometry {
	return make(Geometry, n)
}

// Clone returns a deep copy.
func (g Geometry) Clone() Geometry {
	c := make(Geometry, len(g))
	copy(c, g)
	return c
}

// Flatten returns the geometry as a flat 3N vector, row-major.
func (g Geometry) Flatten() []float64 {
	out := make([]float64, 3*len(g))
	for i, p := range g {
		out[3*i], out[3*i+1], out[3*i+2] = p[0], p[1], p[2]
	}
	return out
}

// GeometryFromFlat builds an N×3 geometry from a flat 3N vector.
func GeometryFromFlat(flat []float64) Geometry {
	n := len(flat) / 3
	g := make(Geometry, n)
	for i := 0; i < n; i++ {
		g[i] = [3]float64{flat[3*i], flat[3*i+1], flat[3*i+2]}
	}
	return g
}

// Centroid returns the unweighted geometric centre.
func (g Geometry) Centroid() [3]float64 {
	var c [3]float64
	if len(g) == 0 {
		return c
	}
	for _, p := range g {
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	n := float64(len(g))
	return [3]float64{c[0] / n, c[1] / n, c[2] / n}
}

// Translate shifts every atom by delta, in place.
func (g Geometry) Translate(delta [3]float64) {
	for i := range g {
		g[i][0] += delta[0]
		g[i][1] += delta[1]
		g[i][2] += delta[2]
	}
}

// ScaleUnits returns a copy of g with f applied to every coordinate;
// used to move between Å and Bohr via units.AngstromToBohr/BohrToAngstrom.
func (g Geometry) ScaleUnits(f func(float64) float64) Geometry {
	out := make(Geometry, len(g))
	for i, p := range g {
		out[i] = [3]float64{f(p[0]), f(p[1]), f(p[2])}
	}
	return out
}

// IsValid reports whether every coordinate is finite.
func (g Geometry) IsValid() bool {
	for _, p := range g {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// System is an immutable atom list bound to a freely mutable geometry, a
// total charge and a spin multiplicity.
type System struct {
	Atoms    []Atom
	Geometry Geometry
	Charge   int
	Spin     int
}

// NewSystem builds a System, computing masses from atomic numbers via
// units.Mass with hydrogen-mass repartitioning factor hmass.
func NewSystem(z []int, coords Geometry, charge, spin int, hmass float64) *System {
	if hmass < 1 {
		hmass = 1
	}
	atoms := make([]Atom, len(z))
	for i, zi := range z {
		atoms[i] = Atom{Z: zi, Mass: units.Mass(zi, hmass)}
	}
	return &System{Atoms: atoms, Geometry: coords.Clone(), Charge: charge, Spin: spin}
}

// N returns the atom count.
func (s *System) N() int { return len(s.Atoms) }

// Masses returns the per-atom mass array (length N).
func (s *System) Masses() []float64 {
	m := make([]float64, len(s.Atoms))
	for i, a := range s.Atoms {
		m[i] = a.Mass
	}
	return m
}

// DistanceMatrix returns the pairwise Euclidean distance matrix (Å) over
// the current geometry, as a flat N×N row-major slice.
func (s *System) DistanceMatrix() []float64 {
	n := s.N()
	d := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			dx := s.Geometry[i][0] - s.Geometry[j][0]
			dy := s.Geometry[i][1] - s.Geometry[j][1]
			dz := s.Geometry[i][2] - s.Geometry[j][2]
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			d[i*n+j] = r
			d[j*n+i] = r
		}
	}
	return d
}

// BondedPairs returns index pairs {i, j} with i>j whose distance is within
// tolerance of the sum of covalent radii — the same heuristic used to seed
// RATTLE's constraint list from the initial geometry.
func (s *System) BondedPairs(tolerance float64) [][2]int {
	n := s.N()
	var pairs [][2]int
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			ri := units.CovalentRadius[s.Atoms[i].Z]
			rj := units.CovalentRadius[s.Atoms[j].Z]
			cutoff := (ri + rj) * tolerance
			dx := s.Geometry[i][0] - s.Geometry[j][0]
			dy := s.Geometry[i][1] - s.Geometry[j][1]
			dz := s.Geometry[i][2] - s.Geometry[j][2]
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if r <= cutoff {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// Velocities is a flat 3N array; time is scaled through units.FsToAu so
// that (mass·v²)/2 in these units equals Hartree.
type Velocities []float64

// Clone returns a deep copy.
func (v Velocities) Clone() Velocities {
	c := make(Velocities, len(v))
	copy(c, v)
	return c
}

// BondConstraint pins the squared distance between atoms I and J to
// D2Target, derived from the initial distance matrix.
type BondConstraint struct {
	I, J     int
	D2Target float64
}

// ThermostatState carries the target temperature, coupling time and the
// heat-bath exchange energy accumulated by a stochastic thermostat.
type ThermostatState struct {
	T0             float64
	Coupling       float64
	ExchangeEnergy float64
}

// WallShape enumerates supported wall geometries.
type WallShape int

const (
	WallNone WallShape = iota
	WallSpheric
	WallRect
)

// WallKind enumerates supported wall potential forms.
type WallKind int

const (
	WallLogFermi WallKind = iota
	WallHarmonic
)

// WallParameters configures a boundary wall potential.
type WallParameters struct {
	Shape  WallShape
	Kind   WallKind
	Radius float64 // spherical
	XMin, XMax, YMin, YMax, ZMin, ZMax float64 // rectangular
	Beta   float64
	Temp   float64
}
