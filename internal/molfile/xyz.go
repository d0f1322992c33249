// Package molfile reads and writes the plain XYZ geometry format Curcuma
// exchanges with the rest of a computational-chemistry toolchain: an atom
// count, a comment line, then one "symbol x y z" row per atom in
// Ångström. No pack example ships a ready XYZ parser, so this is a small
// stdlib scanner in the same style as restart.LoadHessianFile.
package molfile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mdkit/curcuma/internal/chem"
	"github.com/mdkit/curcuma/internal/units"
)

// TrajectoryWriter appends every reported frame to a multi-frame XYZ file,
// implementing md.TrajectoryWriter without either package importing the
// other.
type TrajectoryWriter struct {
	Path string
}

// Append writes sys's current geometry as one more frame, tagging the
// comment line with the step index and total energy.
func (w TrajectoryWriter) Append(step int, sys *chem.System, energy float64) error {
	comment := fmt.Sprintf("step %d  Etot %.10f Eh", step, energy)
	return AppendXYZTrajectory(w.Path, sys, comment)
}

var symbolToZ = func() map[string]int {
	m := make(map[string]int, len(units.ElementSymbol))
	for z, sym := range units.ElementSymbol {
		m[strings.ToLower(sym)] = z
	}
	return m
}()

// ReadXYZ parses a single-frame XYZ file into atomic numbers and geometry.
func ReadXYZ(path string) ([]int, chem.Geometry, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, nil, "", fmt.Errorf("molfile: %s: empty file", path)
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, nil, "", fmt.Errorf("molfile: %s: bad atom count: %w", path, err)
	}

	comment := ""
	if scanner.Scan() {
		comment = scanner.Text()
	}

	z := make([]int, 0, n)
	geom := chem.NewGeometry(n)
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return nil, nil, "", fmt.Errorf("molfile: %s: expected %d atom lines, got %d", path, n, i)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			return nil, nil, "", fmt.Errorf("molfile: %s: malformed atom line %q", path, scanner.Text())
		}
		zi, ok := symbolToZ[strings.ToLower(fields[0])]
		if !ok {
			return nil, nil, "", fmt.Errorf("molfile: %s: unknown element %q", path, fields[0])
		}
		x, err1 := strconv.ParseFloat(fields[1], 64)
		y, err2 := strconv.ParseFloat(fields[2], 64)
		zc, err3 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, nil, "", fmt.Errorf("molfile: %s: malformed coordinates on atom %d", path, i)
		}
		z = append(z, zi)
		geom[i] = [3]float64{x, y, zc}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, "", err
	}
	return z, geom, comment, nil
}

// WriteXYZ writes a single-frame XYZ file for sys's current geometry.
func WriteXYZ(path string, sys *chem.System, comment string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%s\n", sys.N(), comment)
	for i, a := range sys.Atoms {
		p := sys.Geometry[i]
		fmt.Fprintf(&b, "%-2s %14.8f %14.8f %14.8f\n", units.ElementSymbol[a.Z], p[0], p[1], p[2])
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// AppendXYZTrajectory appends one frame to a multi-frame XYZ trajectory
// file, creating it if necessary — the format of an MD run's periodic
// trajectory dumps.
func AppendXYZTrajectory(path string, sys *chem.System, comment string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d\n%s\n", sys.N(), comment)
	for i, a := range sys.Atoms {
		p := sys.Geometry[i]
		fmt.Fprintf(w, "%-2s %14.8f %14.8f %14.8f\n", units.ElementSymbol[a.Z], p[0], p[1], p[2])
	}
	return w.Flush()
}
