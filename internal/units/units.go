// Package units centralises the physical constants and unit conversions
// shared by the potential, façade, Hessian and MD packages. Every "/au" or
// "·au" scattered through a naive port lives here instead, behind exactly
// two named conversions.
package units

// AuToAngstrom is 1 Bohr expressed in Ångström.
const AuToAngstrom = 0.52917721067

// KB is Boltzmann's constant in Hartree per Kelvin.
const KB = 3.166811563e-6

// FsToAu is the number of atomic time units in one femtosecond.
const FsToAu = 41.3413733

// AmuToAu is the number of electron masses in one atomic mass unit.
const AmuToAu = 1822.888486209

// AngstromToBohr converts a length from Ångström to Bohr.
func AngstromToBohr(x float64) float64 {
	return x / AuToAngstrom
}

// BohrToAngstrom converts a length from Bohr to Ångström.
func BohrToAngstrom(x float64) float64 {
	return x * AuToAngstrom
}

// AtomicMass holds standard atomic weights (amu) for Z = 1..36.
var AtomicMass = map[int]float64{
	1: 1.008, 2: 4.0026, 3: 6.94, 4: 9.0122, 5: 10.81, 6: 12.011,
	7: 14.007, 8: 15.999, 9: 18.998, 10: 20.180, 11: 22.990, 12: 24.305,
	13: 26.982, 14: 28.085, 15: 30.974, 16: 32.06, 17: 35.45, 18: 39.948,
	19: 39.098, 20: 40.078, 21: 44.956, 22: 47.867, 23: 50.942, 24: 51.996,
	25: 54.938, 26: 55.845, 27: 58.933, 28: 58.693, 29: 63.546, 30: 65.38,
	31: 69.723, 32: 72.630, 33: 74.922, 34: 78.971, 35: 79.904, 36: 83.798,
}

// CovalentRadius holds single-bond covalent radii (Å) for Z = 1..36.
var CovalentRadius = map[int]float64{
	1: 0.31, 2: 0.28, 3: 1.28, 4: 0.96, 5: 0.84, 6: 0.76,
	7: 0.71, 8: 0.66, 9: 0.57, 10: 0.58, 11: 1.66, 12: 1.41,
	13: 1.21, 14: 1.11, 15: 1.07, 16: 1.05, 17: 1.02, 18: 1.06,
	19: 2.03, 20: 1.76, 21: 1.70, 22: 1.60, 23: 1.53, 24: 1.39,
	25: 1.39, 26: 1.32, 27: 1.26, 28: 1.24, 29: 1.32, 30: 1.22,
	31: 1.22, 32: 1.20, 33: 1.19, 34: 1.20, 35: 1.20, 36: 1.16,
}

// PaulingEN holds Pauling electronegativities for Z = 1..36.
var PaulingEN = map[int]float64{
	1: 2.20, 2: 0, 3: 0.98, 4: 1.57, 5: 2.04, 6: 2.55,
	7: 3.04, 8: 3.44, 9: 3.98, 10: 0, 11: 0.93, 12: 1.31,
	13: 1.61, 14: 1.90, 15: 2.19, 16: 2.58, 17: 3.16, 18: 0,
	19: 0.82, 20: 1.00, 21: 1.36, 22: 1.54, 23: 1.63, 24: 1.66,
	25: 1.55, 26: 1.83, 27: 1.88, 28: 1.91, 29: 1.90, 30: 1.65,
	31: 1.81, 32: 2.01, 33: 2.18, 34: 2.55, 35: 2.96, 36: 3.00,
}

// ElementSymbol maps Z to the two-letter element symbol for Z = 1..36.
var ElementSymbol = map[int]string{
	1: "H", 2: "He", 3: "Li", 4: "Be", 5: "B", 6: "C",
	7: "N", 8: "O", 9: "F", 10: "Ne", 11: "Na", 12: "Mg",
	13: "Al", 14: "Si", 15: "P", 16: "S", 17: "Cl", 18: "Ar",
	19: "K", 20: "Ca", 21: "Sc", 22: "Ti", 23: "V", 24: "Cr",
	25: "Mn", 26: "Fe", 27: "Co", 28: "Ni", 29: "Cu", 30: "Zn",
	31: "Ga", 32: "Ge", 33: "As", 34: "Se", 35: "Br", 36: "Kr",
}

// Mass returns the mass of an atom of atomic number z, in atomic units
// (electron masses), applying the hydrogen-mass-repartitioning factor
// hmass to hydrogen atoms only.
func Mass(z int, hmass float64) float64 {
	amu := AtomicMass[z]
	m := amu * AmuToAu
	if z == 1 {
		m *= hmass
	}
	return m
}
