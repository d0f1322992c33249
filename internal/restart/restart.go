// Package restart implements the JSON restart-file format and the
// "$hessian"-prefixed text format read back by the Hessian engine,
// following WriteRestartInformation/LoadRestartInformation and
// Hessian::LoadHessian.
package restart

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/errs"
	"github.com/mdkit/curcuma/internal/units"
	"gonum.org/v1/gonum/mat"
)

// State is the restart-file schema from §6. Reading tolerates missing keys:
// callers should populate State with running defaults before Unmarshal.
type State struct {
	Method      string `json:"method"`
	DT          float64 `json:"dT"`
	MaxTime     float64 `json:"MaxTime"`
	T           float64 `json:"T"`
	CurrentStep int     `json:"currentStep"`
	Centered    bool    `json:"centered"`
	NoCenter    bool    `json:"nocenter"`

	AverageT     float64 `json:"average_T"`
	AverageEpot  float64 `json:"average_Epot"`
	AverageEkin  float64 `json:"average_Ekin"`
	AverageEtot  float64 `json:"average_Etot"`
	AverageWall  float64 `json:"average_Wall"`
	AverageVirial float64 `json:"average_Virial"`

	Coupling   float64 `json:"coupling"`
	Thermostat string  `json:"thermostat"`

	Geometry   string `json:"geometry"`
	Velocities string `json:"velocities"`
}

// FromRunning packages the running geometry/velocities into a State,
// pipe-delimiting the coordinate lists the way WriteRestartInformation
// does for its DoubleVector2String fields.
func FromRunning(method string, dt, maxTime, t float64, step int, centered bool, coupling float64, thermostat string, geom chem.Geometry, velo chem.Velocities) *State {
	return &State{
		Method: method, DT: dt, MaxTime: maxTime, T: t,
		CurrentStep: step, Centered: centered,
		Coupling: coupling, Thermostat: thermostat,
		Geometry:   encodeDoubles(geom.Flatten()),
		Velocities: encodeDoubles(velo),
	}
}

// Geom decodes the pipe-delimited coordinate list back into a
// chem.Geometry.
func (s *State) Geom() (chem.Geometry, error) {
	flat, err := decodeDoubles(s.Geometry)
	if err != nil {
		return nil, err
	}
	return chem.GeometryFromFlat(flat), nil
}

// Velo decodes the pipe-delimited velocity list.
func (s *State) Velo() (chem.Velocities, error) {
	flat, err := decodeDoubles(s.Velocities)
	if err != nil {
		return nil, err
	}
	return chem.Velocities(flat), nil
}

func encodeDoubles(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}

func decodeDoubles(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, &errs.IOError{Path: "<restart>", Err: err}
		}
		out[i] = v
	}
	return out, nil
}

// Save writes state as JSON to path.
func Save(path string, s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &errs.IOError{Path: path, Err: err}
	}
	return nil
}

// Load reads a restart file, tolerating any keys missing from the document
// (they keep whatever value the caller pre-populated defaults with).
func Load(path string, defaults *State) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Path: path, Err: err}
	}
	s := *defaults
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &errs.IOError{Path: path, Err: err}
	}
	return &s, nil
}

// StopRequested reports whether a sentinel file named "stop" exists in dir,
// the cooperative-cancellation mechanism from §5.
func StopRequested(dir string) bool {
	_, err := os.Stat(dir + string(os.PathSeparator) + "stop")
	return err == nil
}

// LoadHessianFile reads a "$hessian"-prefixed text file: whitespace
// separated floats in row-major order of the 3N×3N matrix, divided by
// au² (Ångström² per Bohr²) to land in atomic units, following
// Hessian::LoadHessian.
func LoadHessianFile(path string, n int) (*mat.SymDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.IOError{Path: path, Err: err}
	}
	defer f.Close()

	dim := 3 * n
	full := make([]float64, dim*dim)
	row, col := 0, 0
	scaler := 1.0 / (units.AuToAngstrom * units.AuToAngstrom)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if line == "$hessian" {
				continue
			}
		}
		if line == "" {
			continue
		}
		for _, tok := range strings.Fields(line) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				continue
			}
			if row >= dim {
				return nil, &errs.IOError{Path: path, Err: fmt.Errorf("hessian file has more than %d rows", dim)}
			}
			full[row*dim+col] = v * scaler
			col++
			if col == dim {
				col = 0
				row++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &errs.IOError{Path: path, Err: err}
	}

	sym := mat.NewSymDense(dim, nil)
	for a := 0; a < dim; a++ {
		for b := a; b < dim; b++ {
			sym.SetSym(a, b, (full[a*dim+b]+full[b*dim+a])/2)
		}
	}
	return sym, nil
}
