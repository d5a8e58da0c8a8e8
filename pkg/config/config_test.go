package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfigIsValid verifies the defaults pass validation.
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration failed validation: %v", err)
	}
	if cfg.Estimation.SrcType != "gauss" {
		t.Errorf("Expected default source type gauss, got %q", cfg.Estimation.SrcType)
	}
	if cfg.Estimation.MoIIters != 20 {
		t.Errorf("Expected default MoI iteration count 20, got %d", cfg.Estimation.MoIIters)
	}
}

// TestValidateRejections walks the invalid option combinations.
func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown basis kind", func(c *Config) { c.Estimation.SrcType = "spline" }},
		{"non-positive sigma", func(c *Config) { c.Estimation.Sigma = 0 }},
		{"MoI with non-positive sigmaS", func(c *Config) { c.Estimation.MoI = true; c.Estimation.SigmaS = 0 }},
		{"zero source count", func(c *Config) { c.Estimation.NSrcInit = 0 }},
		{"non-positive radius", func(c *Config) { c.Estimation.RInit = -0.1 }},
		{"non-positive thickness", func(c *Config) { c.Estimation.H = 0 }},
		{"negative lambda", func(c *Config) { c.Estimation.Lambda = -1 }},
		{"zero MoI iterations", func(c *Config) { c.Estimation.MoIIters = 0 }},
		{"negative grid spacing", func(c *Config) { c.Grid.Gdx = -0.01 }},
		{"zero cores", func(c *Config) { c.Processing.NumCores = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

// TestLoadConfigMissingFile verifies a missing file yields the defaults.
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Estimation.Sigma != 1.0 {
		t.Errorf("Expected default sigma 1.0, got %g", cfg.Estimation.Sigma)
	}
}

// TestSaveLoadRoundTrip verifies the YAML round trip, including optional
// bounds.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kcsd.yaml")

	cfg := DefaultConfig()
	cfg.Estimation.SrcType = "step"
	cfg.Estimation.MoI = true
	cfg.Grid.Gdx = 0.05
	xmin := -2.0
	cfg.Grid.XMin = &xmin

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Estimation.SrcType != "step" {
		t.Errorf("Expected source type step, got %q", loaded.Estimation.SrcType)
	}
	if !loaded.Estimation.MoI {
		t.Error("Expected MoI enabled")
	}
	if loaded.Grid.Gdx != 0.05 {
		t.Errorf("Expected gdx 0.05, got %g", loaded.Grid.Gdx)
	}
	if loaded.Grid.XMin == nil || *loaded.Grid.XMin != -2.0 {
		t.Errorf("Expected xMin -2.0, got %v", loaded.Grid.XMin)
	}
	if loaded.Grid.YMin != nil {
		t.Errorf("Expected yMin to stay unset, got %v", loaded.Grid.YMin)
	}
}

// TestLoadConfigMalformed verifying parse errors are surfaced.
func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("estimation: ["), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected a parse error for malformed YAML")
	}
}
