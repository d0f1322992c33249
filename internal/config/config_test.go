package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMDMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "controller.json")
	if err := os.WriteFile(path, []byte(`{"T": 350, "thermostat": "csvr"}`), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := LoadMD(path)
	if err != nil {
		t.Fatalf("LoadMD: %v", err)
	}
	if cfg.T != 350 {
		t.Errorf("expected T=350, got %f", cfg.T)
	}
	if cfg.Thermostat != "csvr" {
		t.Errorf("expected thermostat=csvr, got %q", cfg.Thermostat)
	}
	if cfg.DT != DefaultMD().DT {
		t.Errorf("expected dT to keep its default %f, got %f", DefaultMD().DT, cfg.DT)
	}
	if cfg.RattleMaxIter != DefaultMD().RattleMaxIter {
		t.Errorf("expected rattle_maxiter to keep its default, got %d", cfg.RattleMaxIter)
	}
}

func TestLoadFileMergesBothSectionsOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := "md:\n  T: 400\nhessian:\n  scheme: full\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.MD.T != 400 {
		t.Errorf("expected md.T=400, got %f", f.MD.T)
	}
	if f.MD.Method != DefaultMD().Method {
		t.Errorf("expected md.method to keep its default, got %q", f.MD.Method)
	}
	if f.Hessian.Scheme != "full" {
		t.Errorf("expected hessian.scheme=full, got %q", f.Hessian.Scheme)
	}
	if f.Hessian.Step != DefaultHessian().Step {
		t.Errorf("expected hessian.step to keep its default, got %f", f.Hessian.Step)
	}
}
