package services

import (
	"fmt"
	"os"
	"sync"

	"github.com/adcs-fsw/rwnullspace/pkg/config"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
)

// NullSpaceConfigService manages the module configuration file. The config
// loaded at startup stays active; updates are validated and persisted for
// the next start.
type NullSpaceConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PendingRestart() bool
}

type nullSpaceConfigService struct {
	configPath    string
	logger        customlog.Logger
	currentConfig *config.Config
	staged        *config.Config
	mu            sync.RWMutex
}

// NewNullSpaceConfigService creates the service and loads the config file at configPath.
func NewNullSpaceConfigService(configPath string, logger customlog.Logger) (NullSpaceConfigService, error) {
	if configPath == "" {
		return nil, fmt.Errorf("null-space configuration path cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	service := &nullSpaceConfigService{
		configPath: configPath,
		logger:     logger,
	}

	// Initial load; a missing or invalid file stops start-up
	if err := service.LoadConfig(); err != nil {
		return nil, err
	}

	logger.Infof("NullSpaceConfigService initialized for path: %s", configPath)
	return service, nil
}

// LoadConfig reads and validates the config file and makes it the active configuration.
func (s *nullSpaceConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading null-space configuration from: %s", s.configPath)
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.logger.Errorf("Error loading null-space config '%s': %v", s.configPath, err)
		return err
	}

	s.currentConfig = cfg
	s.staged = nil
	s.logger.Infof("Loaded null-space configuration ID: %s, Version: %s, wheels: %d",
		cfg.ConfigID, cfg.Version, cfg.NullSpace.NumWheels)
	return nil
}

// GetCurrentConfig returns the active configuration. Callers must not modify it.
func (s *nullSpaceConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the raw config file, including a staged update if one was persisted.
func (s *nullSpaceConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.configPath
	s.mu.RUnlock() // Unlock before file I/O

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Errorf("Error reading null-space config file '%s': %v", path, err)
		return nil, fmt.Errorf("error reading null-space config file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates the new YAML, including the projector computation,
// and persists it. The running module keeps its geometry until restart.
// Validation failures wrap config.ErrInvalidConfig or rwnullspace.ErrDegenerateGeometry.
func (s *nullSpaceConfigService) UpdateConfig(newConfigYAML []byte) error {
	// 1. Parse and validate the structure of the new YAML
	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Warnf("Rejected null-space configuration: %v", err)
		return err
	}

	// 2. Check the geometry numerically by computing the projector
	moduleCfg, err := rwnullspace.FromFile(newCfg)
	if err != nil {
		s.logger.Warnf("Rejected null-space configuration: %v", err)
		return err
	}
	if _, err := rwnullspace.ComputeProjector(moduleCfg); err != nil {
		s.logger.Warnf("Rejected null-space configuration: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 3. Persist the new configuration YAML
	if err := os.WriteFile(s.configPath, newConfigYAML, 0644); err != nil {
		s.logger.Errorf("Error writing null-space config file '%s': %v", s.configPath, err)
		return fmt.Errorf("error writing null-space config file '%s': %w", s.configPath, err)
	}

	// 4. Record it as staged; currentConfig stays active until restart
	s.staged = newCfg
	oldID := "N/A"
	if s.currentConfig != nil {
		oldID = s.currentConfig.ConfigID
	}
	s.logger.Infof("Staged null-space configuration ID %s -> %s; restart to apply", oldID, newCfg.ConfigID)
	return nil
}

// PendingRestart reports whether a persisted update is waiting for a restart
func (s *nullSpaceConfigService) PendingRestart() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staged != nil
}
