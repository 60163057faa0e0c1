package rwnullspace

import (
	"fmt"
	"math"

	"github.com/adcs-fsw/rwnullspace/pkg/config"
	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	"gonum.org/v1/gonum/mat"
)

// Channels names the bus channels the module reads and writes.
type Channels struct {
	RWCommands string // raw effector requests in
	RWSpeeds   string // wheel speed telemetry in
	Output     string // corrected effector requests out
}

// Config is the immutable wheel geometry and gain of one null-space module.
// Build it with NewConfig or FromFile; it has no setters.
type Config struct {
	gs        [3 * effector.MaxEffCount]float64
	numWheels int
	omegaGain float64
	channels  Channels
}

// NewConfig validates and copies the geometry. gs is the 3 x numWheels
// spin-axis matrix in row-major order.
func NewConfig(gs []float64, numWheels int, omegaGain float64, channels Channels) (Config, error) {
	if numWheels < 1 || numWheels > effector.MaxEffCount {
		return Config{}, fmt.Errorf("%w: wheel count %d outside [1, %d]",
			config.ErrInvalidConfig, numWheels, effector.MaxEffCount)
	}
	if len(gs) != 3*numWheels {
		return Config{}, fmt.Errorf("%w: geometry needs %d entries, got %d",
			config.ErrInvalidConfig, 3*numWheels, len(gs))
	}
	for i, x := range gs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Config{}, fmt.Errorf("%w: geometry entry %d is not finite", config.ErrInvalidConfig, i)
		}
	}
	if math.IsNaN(omegaGain) || math.IsInf(omegaGain, 0) {
		return Config{}, fmt.Errorf("%w: omega gain is not finite", config.ErrInvalidConfig)
	}

	cfg := Config{numWheels: numWheels, omegaGain: omegaGain, channels: channels}
	copy(cfg.gs[:], gs)
	return cfg, nil
}

// FromFile builds a Config from a loaded module configuration file.
func FromFile(c *config.Config) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	ns := c.NullSpace
	return NewConfig(ns.GsMatrix, ns.NumWheels, ns.OmegaGain, Channels{
		RWCommands: ns.InputRWCommands,
		RWSpeeds:   ns.InputRWSpeeds,
		Output:     ns.OutputControlName,
	})
}

// NumWheels returns the number of active wheels.
func (c Config) NumWheels() int { return c.numWheels }

// OmegaGain returns the wheel-speed suppression gain.
func (c Config) OmegaGain() float64 { return c.omegaGain }

// Channels returns the channel wiring.
func (c Config) Channels() Channels { return c.channels }

// GsMatrix returns a fresh 3 x NumWheels copy of the geometry matrix.
func (c Config) GsMatrix() *mat.Dense {
	data := make([]float64, 3*c.numWheels)
	copy(data, c.gs[:3*c.numWheels])
	return mat.NewDense(3, c.numWheels, data)
}
