// Package config loads the JSON-shaped option tree that drives the CLI's
// md and hessian subcommands, merging it onto a set of defaults the way
// dynsim's YAML config merges onto DefaultConfig. Curcuma's own controller
// input historically comes as JSON, so this package speaks JSON for the
// run parameters and reserves YAML for the outer, human-edited convenience
// file that holds one md section and one hessian section.
package config

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// MD holds every recognised md option from §6, JSON-tagged to match the
// controller keys a Curcuma user already knows.
type MD struct {
	Method  string `json:"method" yaml:"method"`
	Threads int    `json:"threads" yaml:"threads"`

	DT      float64 `json:"dT" yaml:"dT"`
	MaxTime float64 `json:"MaxTime" yaml:"MaxTime"`

	T        float64 `json:"T" yaml:"T"`
	Thermostat string `json:"thermostat" yaml:"thermostat"`
	Coupling float64 `json:"coupling" yaml:"coupling"`

	Rattle          string  `json:"rattle" yaml:"rattle"`
	RattleTolerance float64 `json:"rattle_tolerance" yaml:"rattle_tolerance"`
	RattleMaxIter   int     `json:"rattle_maxiter" yaml:"rattle_maxiter"`

	HMass float64 `json:"hmass" yaml:"hmass"`

	Wall               string  `json:"wall" yaml:"wall"`
	WallType           string  `json:"wall_type" yaml:"wall_type"`
	WallSphericRadius  float64 `json:"wall_spheric_radius" yaml:"wall_spheric_radius"`
	WallXMin           float64 `json:"wall_x_min" yaml:"wall_x_min"`
	WallXMax           float64 `json:"wall_x_max" yaml:"wall_x_max"`
	WallYMin           float64 `json:"wall_y_min" yaml:"wall_y_min"`
	WallYMax           float64 `json:"wall_y_max" yaml:"wall_y_max"`
	WallZMin           float64 `json:"wall_z_min" yaml:"wall_z_min"`
	WallZMax           float64 `json:"wall_z_max" yaml:"wall_z_max"`
	WallBeta           float64 `json:"wall_beta" yaml:"wall_beta"`
	WallTemp           float64 `json:"wall_temp" yaml:"wall_temp"`

	RmRotTrans int `json:"rmrottrans" yaml:"rmrottrans"`
	RmCOM      int `json:"rm_COM" yaml:"rm_COM"`

	Dump         int `json:"dump" yaml:"dump"`
	Print        int `json:"print" yaml:"print"`
	WriteRestart int `json:"writerestart" yaml:"writerestart"`

	Impuls        float64 `json:"impuls" yaml:"impuls"`
	ImpulsScaling float64 `json:"impuls_scaling" yaml:"impuls_scaling"`

	Velo float64 `json:"velo" yaml:"velo"`
	Seed int64   `json:"seed" yaml:"seed"`

	CleanEnergy bool `json:"cleanenergy" yaml:"cleanenergy"`
	WriteXYZ    bool `json:"writeXYZ" yaml:"writeXYZ"`
	Unique      bool `json:"unique" yaml:"unique"`
	RMSD        float64 `json:"rmsd" yaml:"rmsd"`
	Opt         bool `json:"opt" yaml:"opt"`

	Rescue      bool `json:"rescue" yaml:"rescue"`
	MaxRescue   int  `json:"maxRescue" yaml:"maxRescue"`
	MaxTopoDiff int  `json:"MaxTopoDiff" yaml:"MaxTopoDiff"`

	NoCenter     bool `json:"nocenter" yaml:"nocenter"`
	CenterOnInit bool `json:"centerOnInit" yaml:"centerOnInit"`
}

// Hessian holds the recognised hessian-request options.
type Hessian struct {
	Method  string `json:"method" yaml:"method"`
	Threads int    `json:"threads" yaml:"threads"`
	Scheme  string `json:"scheme" yaml:"scheme"` // "full" | "semi"
	Step    float64 `json:"step" yaml:"step"`
}

// DefaultMD returns the option tree's defaults, mirroring LoadControlJson's
// fallback constants.
func DefaultMD() *MD {
	return &MD{
		Method:          "classical",
		Threads:         1,
		DT:              0.5,
		MaxTime:         1000,
		T:               298.15,
		Thermostat:      "none",
		Coupling:        20,
		Rattle:          "none",
		RattleTolerance: 1e-6,
		RattleMaxIter:   25,
		HMass:           1,
		Wall:            "none",
		WallType:        "logfermi",
		WallBeta:        6,
		WallTemp:        298.15,
		RmRotTrans:      0,
		RmCOM:           100,
		Dump:            50,
		Print:           1000,
		WriteRestart:    1000,
		Impuls:          0,
		ImpulsScaling:   0.9,
		Velo:            1,
		Seed:            -1,
		MaxRescue:       10,
		MaxTopoDiff:     10,
	}
}

// DefaultHessian returns the hessian-request defaults.
func DefaultHessian() *Hessian {
	return &Hessian{Method: "classical", Threads: 1, Scheme: "semi", Step: 5e-3}
}

// LoadMD reads a JSON controller file and merges it onto DefaultMD, the way
// a Curcuma controller.json historically merges onto compiled-in defaults.
func LoadMD(path string) (*MD, error) {
	cfg := DefaultMD()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadHessian reads a JSON hessian-request file and merges it onto
// DefaultHessian.
func LoadHessian(path string) (*Hessian, error) {
	cfg := DefaultHessian()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// File is the outer YAML convenience wrapper, grouping an MD run and/or a
// Hessian request under one human-edited document. The CLI itself reads
// the JSON controller files through LoadMD and LoadHessian.
type File struct {
	MD      *MD      `yaml:"md,omitempty"`
	Hessian *Hessian `yaml:"hessian,omitempty"`
}

// LoadFile reads the YAML convenience file. Both sections are pre-populated
// with their defaults before decoding, so a key absent from the document
// keeps its default value instead of the YAML zero value — the same
// merge-onto-defaults idiom LoadMD/LoadHessian use for JSON.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{MD: DefaultMD(), Hessian: DefaultHessian()}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}
