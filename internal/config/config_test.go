package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	if cfg.RiskKernelSize == nil || *cfg.RiskKernelSize != 5 {
		t.Errorf("RiskKernelSize = %v, want 5", cfg.RiskKernelSize)
	}
	if cfg.RiskLayerFactor == nil || *cfg.RiskLayerFactor != 0.2 {
		t.Errorf("RiskLayerFactor = %v, want 0.2", cfg.RiskLayerFactor)
	}
	if cfg.PCGTolerance == nil || *cfg.PCGTolerance != 1e-6 {
		t.Errorf("PCGTolerance = %v, want 1e-6", cfg.PCGTolerance)
	}
	if cfg.RiskLayerIndex != nil {
		t.Errorf("RiskLayerIndex = %v, want nil (derived from kernel size)", *cfg.RiskLayerIndex)
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file must fall back to defaults, got error: %v", err)
	}
	if *cfg.RiskKernelSize != 5 {
		t.Errorf("RiskKernelSize = %d, want default 5", *cfg.RiskKernelSize)
	}
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(`{"risk_kernel_size": 7, "pcg_max_iter": 500}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg.RiskKernelSize != 7 {
		t.Errorf("RiskKernelSize = %d, want override 7", *cfg.RiskKernelSize)
	}
	if *cfg.PCGMaxIter != 500 {
		t.Errorf("PCGMaxIter = %d, want override 500", *cfg.PCGMaxIter)
	}
	// Untouched fields keep their defaults.
	if *cfg.RiskLayerFactor != 0.2 {
		t.Errorf("RiskLayerFactor = %g, want default 0.2", *cfg.RiskLayerFactor)
	}
}

func TestLoadTuningConfigMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"risk_kernel_size":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := Defaults()
	base.Merge(nil)
	if *base.RiskKernelSize != 5 {
		t.Errorf("nil merge changed RiskKernelSize to %d", *base.RiskKernelSize)
	}

	idx := 3
	base.Merge(&TuningConfig{RiskLayerIndex: &idx})
	if base.RiskLayerIndex == nil || *base.RiskLayerIndex != 3 {
		t.Errorf("RiskLayerIndex = %v, want 3", base.RiskLayerIndex)
	}
	if *base.PCGMaxIter != 2000 {
		t.Errorf("PCGMaxIter = %d, want untouched default 2000", *base.PCGMaxIter)
	}
}
