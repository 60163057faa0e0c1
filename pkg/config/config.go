package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks structural problems in a module configuration file.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the null-space module configuration file
type Config struct {
	Version     string          `yaml:"version" json:"version"`
	ConfigID    string          `yaml:"config_id" json:"config_id"`
	LastUpdated string          `yaml:"lastUpdated" json:"lastUpdated"`
	VehicleID   string          `yaml:"vehicle_id" json:"vehicle_id"`
	NullSpace   NullSpaceConfig `yaml:"rw_null_space" json:"rw_null_space"`
}

// NullSpaceConfig holds the wheel geometry and channel wiring of the module.
// GsMatrix is the 3 x NumWheels spin-axis matrix in row-major order.
type NullSpaceConfig struct {
	NumWheels         int       `yaml:"num_wheels" json:"num_wheels"`
	OmegaGain         float64   `yaml:"omega_gain" json:"omega_gain"`
	GsMatrix          []float64 `yaml:"gs_matrix" json:"gs_matrix"`
	InputRWCommands   string    `yaml:"input_rw_commands" json:"input_rw_commands"`
	InputRWSpeeds     string    `yaml:"input_rw_speeds" json:"input_rw_speeds"`
	OutputControlName string    `yaml:"output_control_name" json:"output_control_name"`
}

// LoadConfig loads the module configuration from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("error loading config file '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses and validates a module configuration document
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: error parsing config: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and matrix shape. Numerical checks on the
// geometry happen when the projector is computed.
func (c *Config) Validate() error {
	if c.ConfigID == "" || c.Version == "" {
		return fmt.Errorf("%w: missing required fields (config_id, version)", ErrInvalidConfig)
	}

	ns := c.NullSpace
	if ns.NumWheels < 1 || ns.NumWheels > effector.MaxEffCount {
		return fmt.Errorf("%w: rw_null_space.num_wheels must be in [1, %d], got %d",
			ErrInvalidConfig, effector.MaxEffCount, ns.NumWheels)
	}
	if len(ns.GsMatrix) != 3*ns.NumWheels {
		return fmt.Errorf("%w: rw_null_space.gs_matrix needs %d entries (3 x %d), got %d",
			ErrInvalidConfig, 3*ns.NumWheels, ns.NumWheels, len(ns.GsMatrix))
	}
	if ns.InputRWCommands == "" {
		return fmt.Errorf("%w: missing required field rw_null_space.input_rw_commands", ErrInvalidConfig)
	}
	if ns.InputRWSpeeds == "" {
		return fmt.Errorf("%w: missing required field rw_null_space.input_rw_speeds", ErrInvalidConfig)
	}
	if ns.OutputControlName == "" {
		return fmt.Errorf("%w: missing required field rw_null_space.output_control_name", ErrInvalidConfig)
	}
	if ns.OutputControlName == ns.InputRWCommands || ns.OutputControlName == ns.InputRWSpeeds {
		return fmt.Errorf("%w: output channel '%s' cannot also be an input", ErrInvalidConfig, ns.OutputControlName)
	}
	return nil
}
