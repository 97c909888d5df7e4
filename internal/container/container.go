package container

import (
	"fmt"

	"cloneselect/adapters/rng"
	"cloneselect/app"
	"cloneselect/internal"
	"cloneselect/internal/config"
	"cloneselect/ports"
)

// Container holds the application services built from one Config
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	RNG ports.RNGPort

	SimulationService  *app.SimulationService
	SensitivityService *app.SensitivityService
	SweepService       *app.SweepService
}

// New creates a container and wires every service
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
		RNG:    rng.NewSeededAdapter(),
	}
	c.initServices()

	c.Logger.Debug("container initialized (workers=%d, sensitivity trials=%d, seed=%d)",
		cfg.Simulation.Workers, cfg.Simulation.SensitivityTrials, cfg.Simulation.Seed)
	return c, nil
}

func (c *Container) initServices() {
	c.SimulationService = app.NewSimulationService(c.RNG, c.Logger)
	c.SensitivityService = app.NewSensitivityService(c.SimulationService, c.RNG,
		c.Config.Simulation.Workers, c.Config.Simulation.SensitivityTrials, c.Logger)
	c.SweepService = app.NewSweepService(c.SimulationService, c.Logger)
}
