// Package config provides configuration loading and management for the
// kCSD estimator. It handles loading configuration from YAML files and
// provides the defaults of the reference MEA setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"kcsd/pkg/basis"
)

// ErrConfiguration indicates an invalid or contradictory option set.
var ErrConfiguration = errors.New("config: invalid configuration")

// Config represents the estimator configuration loaded from YAML.
type Config struct {
	// Estimation parameters of the kernel method
	Estimation struct {
		// SrcType selects the basis source profile: step, gauss or gauss_lim
		SrcType string `yaml:"srcType"`

		// Sigma is the tissue conductivity in S/m
		Sigma float64 `yaml:"sigma"`

		// SigmaS is the saline conductivity in S/m, used by the Method of
		// Images correction only
		SigmaS float64 `yaml:"sigmaS"`

		// NSrcInit is the requested basis source count; the realized count
		// is rounded to an integer grid
		NSrcInit int `yaml:"nSrcInit"`

		// RInit is the requested basis source radius; the realized radius
		// is snapped to the source grid spacing
		RInit float64 `yaml:"rInit"`

		// H is the tissue slice thickness
		H float64 `yaml:"h"`

		// Lambda is the initial ridge regularization parameter; it is
		// replaced by cross-validation when that is run
		Lambda float64 `yaml:"lambda"`

		// MoI enables the Method of Images saline correction (2D only)
		MoI bool `yaml:"moi"`

		// MoIIters is the image-series truncation count
		MoIIters int `yaml:"moiIters"`
	} `yaml:"estimation"`

	// Grid parameters of the source and evaluation grids
	Grid struct {
		// ExtX, ExtY, ExtZ extend the source region beyond the electrode
		// bounding box on each side
		ExtX float64 `yaml:"extX"`
		ExtY float64 `yaml:"extY"`
		ExtZ float64 `yaml:"extZ"`

		// Gdx, Gdy, Gdz are the evaluation grid spacings; zero means one
		// percent of the axis extent
		Gdx float64 `yaml:"gdx"`
		Gdy float64 `yaml:"gdy"`
		Gdz float64 `yaml:"gdz"`

		// Explicit evaluation grid bounds; nil means the electrode
		// bounding box
		XMin *float64 `yaml:"xMin"`
		XMax *float64 `yaml:"xMax"`
		YMin *float64 `yaml:"yMin"`
		YMax *float64 `yaml:"yMax"`
		ZMin *float64 `yaml:"zMin"`
		ZMax *float64 `yaml:"zMax"`
	} `yaml:"grid"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for kernel assembly
		// and cross-validation
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`
}

// DefaultConfig returns a configuration with default values matching the
// reference MEA slice setup.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Estimation.SrcType = "gauss"
	cfg.Estimation.Sigma = 1.0
	cfg.Estimation.SigmaS = 5.0
	cfg.Estimation.NSrcInit = 300
	cfg.Estimation.RInit = 0.23
	cfg.Estimation.H = 1.0
	cfg.Estimation.Lambda = 0.0
	cfg.Estimation.MoI = false
	cfg.Estimation.MoIIters = 20

	cfg.Processing.NumCores = runtime.NumCPU()

	return cfg
}

// Validate checks the option set for the contradictions the estimator
// cannot recover from.
func (cfg *Config) Validate() error {
	if _, err := basis.ParseKind(cfg.Estimation.SrcType); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if cfg.Estimation.Sigma <= 0 {
		return fmt.Errorf("%w: sigma must be positive, got %g", ErrConfiguration, cfg.Estimation.Sigma)
	}
	if cfg.Estimation.MoI && cfg.Estimation.SigmaS <= 0 {
		return fmt.Errorf("%w: sigmaS must be positive for MoI, got %g", ErrConfiguration, cfg.Estimation.SigmaS)
	}
	if cfg.Estimation.NSrcInit < 1 {
		return fmt.Errorf("%w: nSrcInit must be at least 1, got %d", ErrConfiguration, cfg.Estimation.NSrcInit)
	}
	if cfg.Estimation.RInit <= 0 {
		return fmt.Errorf("%w: rInit must be positive, got %g", ErrConfiguration, cfg.Estimation.RInit)
	}
	if cfg.Estimation.H <= 0 {
		return fmt.Errorf("%w: h must be positive, got %g", ErrConfiguration, cfg.Estimation.H)
	}
	if cfg.Estimation.Lambda < 0 {
		return fmt.Errorf("%w: lambda must be non-negative, got %g", ErrConfiguration, cfg.Estimation.Lambda)
	}
	if cfg.Estimation.MoIIters < 1 {
		return fmt.Errorf("%w: moiIters must be at least 1, got %d", ErrConfiguration, cfg.Estimation.MoIIters)
	}
	if cfg.Grid.Gdx < 0 || cfg.Grid.Gdy < 0 || cfg.Grid.Gdz < 0 {
		return fmt.Errorf("%w: grid spacings must be non-negative", ErrConfiguration)
	}
	if cfg.Processing.NumCores < 1 {
		return fmt.Errorf("%w: numCores must be at least 1, got %d", ErrConfiguration, cfg.Processing.NumCores)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
