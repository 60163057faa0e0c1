// Package rwnullspace implements the reaction-wheel null-space controller.
// It adds to the commanded wheel torques a correction that drives wheel speeds
// toward zero while leaving the net body torque unchanged.
package rwnullspace

import (
	"errors"
	"fmt"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/messaging"
)

// DefaultName is the task name used when none is given.
const DefaultName = "rwNullSpace"

// ErrNotInitialized is returned by Link when Initialize has not succeeded.
var ErrNotInitialized = errors.New("module not initialized")

// Module runs the null-space law as a scheduled flight-software task.
type Module struct {
	name   string
	cfg    Config
	bus    *messaging.Bus
	logger customlog.Logger

	projector *Projector
	output    messaging.Writer[effector.Request]
	commands  messaging.Reader[effector.Request]
	speeds    messaging.Reader[effector.WheelSpeeds]

	warnedUnlinked bool
}

// New creates a module bound to bus. Nothing is computed until Initialize.
func New(name string, cfg Config, bus *messaging.Bus, logger customlog.Logger) *Module {
	if name == "" {
		name = DefaultName
	}
	return &Module{
		name:   name,
		cfg:    cfg,
		bus:    bus,
		logger: logger.WithField("task", name),
	}
}

// Name returns the task name
func (m *Module) Name() string { return m.name }

// Config returns the module configuration
func (m *Module) Config() Config { return m.cfg }

// Projector returns the projector, or nil before Initialize.
func (m *Module) Projector() *Projector { return m.projector }

// Initialize derives the null-space projector and registers the output channel.
// Degenerate geometry is returned as an error wrapping ErrDegenerateGeometry.
func (m *Module) Initialize() error {
	p, err := ComputeProjector(m.cfg)
	if err != nil {
		m.logger.Errorf("Rejecting wheel geometry: %v", err)
		return err
	}

	out, err := messaging.Create[effector.Request](m.bus, m.cfg.Channels().Output, m.name)
	if err != nil {
		return fmt.Errorf("failed to create output channel: %w", err)
	}

	m.projector = p
	m.output = out
	m.logger.Infof("Projector ready for %d wheels on '%s' (gain=%g, cond(GGt)=%.3g, residual=%.3g)",
		p.NumWheels(), out.Name(), m.cfg.OmegaGain(), p.GramCondition(), p.Residual())
	return nil
}

// Link resolves the raw command and wheel speed inputs. Every producer must
// have been initialized first.
func (m *Module) Link() error {
	if m.projector == nil {
		return ErrNotInitialized
	}
	ch := m.cfg.Channels()

	commands, err := messaging.Subscribe[effector.Request](m.bus, ch.RWCommands, m.name)
	if err != nil {
		return fmt.Errorf("failed to link RW commands: %w", err)
	}
	speeds, err := messaging.Subscribe[effector.WheelSpeeds](m.bus, ch.RWSpeeds, m.name)
	if err != nil {
		return fmt.Errorf("failed to link RW speeds: %w", err)
	}

	m.commands = commands
	m.speeds = speeds
	m.logger.Infof("Linked inputs '%s' and '%s'", commands.Name(), speeds.Name())
	return nil
}

// Step reads the latest inputs, applies the correction and publishes the
// result stamped with callTime. Stale or never-written inputs are used as-is.
func (m *Module) Step(callTime uint64) {
	if m.commands == nil || m.speeds == nil || m.output == nil {
		if !m.warnedUnlinked {
			m.logger.Errorf("Step called before Initialize/Link, no output published")
			m.warnedUnlinked = true
		}
		return
	}

	raw, _ := m.commands.Read()
	speeds, _ := m.speeds.Read()

	final := Correct(m.projector, m.cfg.OmegaGain(), raw.EffectorRequest, speeds.WheelSpeeds)
	m.output.Write(effector.Request{EffectorRequest: final}, callTime)
}
