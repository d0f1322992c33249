// Package trajstore persists one run's thermodynamic trace (time, T,
// Epot, Ekin, Etot per reported step) as a metadata.json plus states.csv
// pair under a run-scoped directory, the way dynsim's storage package
// records a simulation run for later plotting.
package trajstore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Metadata is the JSON sidecar written next to a run's states.csv.
type Metadata struct {
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	Timestamp  time.Time `json:"timestamp"`
	Seed       int64     `json:"seed"`
	DT         float64   `json:"dT"`
	MaxTime    float64   `json:"maxTime"`
	Thermostat string    `json:"thermostat"`
	Steps      int       `json:"steps"`
}

// Row is one reported point of a run's trace.
type Row struct {
	Time, T, Epot, Ekin, Etot float64
}

// Store manages a directory of runs, one subdirectory per run ID.
type Store struct {
	baseDir string
}

// New builds a Store rooted at baseDir (created lazily by Init).
func New(baseDir string) *Store { return &Store{baseDir: baseDir} }

// Init ensures the store's base directory exists.
func (s *Store) Init() error { return os.MkdirAll(s.baseDir, 0755) }

// Save writes meta and rows under a freshly minted run ID and returns it.
func (s *Store) Save(method string, dt, maxTime float64, seed int64, thermostat string, rows []Row) (string, error) {
	runID := fmt.Sprintf("%s_%d", method, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := Metadata{
		ID: runID, Method: method, Timestamp: time.Now(), Seed: seed,
		DT: dt, MaxTime: maxTime, Thermostat: thermostat, Steps: len(rows),
	}
	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()
	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"time", "T", "Epot", "Ekin", "Etot"}); err != nil {
		return "", err
	}
	for _, r := range rows {
		row := []string{
			strconv.FormatFloat(r.Time, 'f', 6, 64),
			strconv.FormatFloat(r.T, 'f', 6, 64),
			strconv.FormatFloat(r.Epot, 'f', 6, 64),
			strconv.FormatFloat(r.Ekin, 'f', 6, 64),
			strconv.FormatFloat(r.Etot, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// List enumerates every run's metadata.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Metadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var m Metadata
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Load reads a run's metadata by ID.
func (s *Store) Load(runID string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadRows reads a run's states.csv back into Rows.
func (s *Store) LoadRows(runID string) ([]Row, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		t, _ := strconv.ParseFloat(rec[0], 64)
		temp, _ := strconv.ParseFloat(rec[1], 64)
		epot, _ := strconv.ParseFloat(rec[2], 64)
		ekin, _ := strconv.ParseFloat(rec[3], 64)
		etot, _ := strconv.ParseFloat(rec[4], 64)
		rows = append(rows, Row{Time: t, T: temp, Epot: epot, Ekin: ekin, Etot: etot})
	}
	return rows, nil
}
