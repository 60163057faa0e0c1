package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the bootstrap file looked up inside the config directory
const BootstrapFileName = "rwnullspace_config.yaml"

// Defaults applied when the bootstrap file leaves a value unset
const (
	DefaultHTTPPort = 8080
	DefaultPeriodMs = 100
)

// BootstrapConfig holds the process configuration loaded from rwnullspace_config.yaml
type BootstrapConfig struct {
	Logging   LoggingConfig         `yaml:"logging"`
	Server    BootstrapServerConfig `yaml:"server"`
	ZeroMQ    ZeroMQBootstrap       `yaml:"zeromq"`
	Scheduler SchedulerConfig       `yaml:"scheduler"`
	Data      DataConfig            `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogPath    string `yaml:"log_path,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// BootstrapServerConfig holds the diagnostics HTTP server settings
type BootstrapServerConfig struct {
	Enabled  bool `yaml:"enabled"`
	HTTPPort int  `yaml:"http_port"`
}

// ZeroMQBootstrap holds the transport bridge endpoints
type ZeroMQBootstrap struct {
	Enabled          bool   `yaml:"enabled"`
	SubscribeAddress string `yaml:"subscribe_address"`
	PublishAddress   string `yaml:"publish_address"`
}

// SchedulerConfig holds the control cycle settings
type SchedulerConfig struct {
	PeriodMs int `yaml:"period_ms"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory               string `yaml:"directory"`
	NullSpaceConfigFilename string `yaml:"null_space_config_file"`
}

// bootstrapEnv holds raw env overrides for bootstrap values.
type bootstrapEnv struct {
	LogLevel         string `env:"RWNS_LOG_LEVEL"`
	LogPath          string `env:"RWNS_LOG_PATH"`
	HTTPPort         int    `env:"RWNS_HTTP_PORT"`
	SubscribeAddress string `env:"RWNS_ZMQ_SUBSCRIBE_ADDRESS"`
	PublishAddress   string `env:"RWNS_ZMQ_PUBLISH_ADDRESS"`
	PeriodMs         int    `env:"RWNS_PERIOD_MS"`
	DataDirectory    string `env:"RWNS_DATA_DIR"`
}

// LoadBootstrapConfig loads the bootstrap configuration from rwnullspace_config.yaml
// and applies environment overrides
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if err := bootstrapCfg.applyEnv(); err != nil {
		return nil, err
	}
	bootstrapCfg.applyDefaults()

	if err := bootstrapCfg.Validate(); err != nil {
		return nil, err
	}
	return &bootstrapCfg, nil
}

func (c *BootstrapConfig) applyEnv() error {
	var raw bootstrapEnv
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if raw.LogLevel != "" {
		c.Logging.Level = raw.LogLevel
	}
	if raw.LogPath != "" {
		c.Logging.LogPath = raw.LogPath
	}
	if raw.HTTPPort != 0 {
		c.Server.HTTPPort = raw.HTTPPort
	}
	if raw.SubscribeAddress != "" {
		c.ZeroMQ.SubscribeAddress = raw.SubscribeAddress
	}
	if raw.PublishAddress != "" {
		c.ZeroMQ.PublishAddress = raw.PublishAddress
	}
	if raw.PeriodMs != 0 {
		c.Scheduler.PeriodMs = raw.PeriodMs
	}
	if raw.DataDirectory != "" {
		c.Data.Directory = raw.DataDirectory
	}
	return nil
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort
	}
	if c.Scheduler.PeriodMs == 0 {
		c.Scheduler.PeriodMs = DefaultPeriodMs
	}
}

// Validate checks required bootstrap fields
func (c *BootstrapConfig) Validate() error {
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if c.Data.NullSpaceConfigFilename == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.null_space_config_file")
	}
	if c.Scheduler.PeriodMs < 0 {
		return fmt.Errorf("scheduler.period_ms must be positive, got %d", c.Scheduler.PeriodMs)
	}
	// The bridge is the only producer of the module inputs; without it Link can never succeed
	if !c.ZeroMQ.Enabled {
		return fmt.Errorf("zeromq.enabled must be true: the ZeroMQ bridge produces the null-space input channels")
	}
	if c.ZeroMQ.SubscribeAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.subscribe_address")
	}
	if c.ZeroMQ.PublishAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.publish_address")
	}
	return nil
}

// NullSpaceConfigPath returns the path of the module configuration file
func (c *BootstrapConfig) NullSpaceConfigPath() string {
	return filepath.Join(c.Data.Directory, c.Data.NullSpaceConfigFilename)
}
