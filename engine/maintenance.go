package engine

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/nathoo/brewcore/engine/speed"
)

// Maintenance runs the engine's periodic jobs: the pending effect sweep
// every second and the station override cleanup every hour.
type Maintenance struct {
	c *cron.Cron
}

// StartMaintenance schedules the periodic jobs and starts them.
func (e *Engine) StartMaintenance() (*Maintenance, error) {
	c := cron.New()
	if _, err := c.AddFunc("@every 1s", func() {
		if n := e.effects.Sweep(); n > 0 {
			e.log.Debugf("effect sweep fired %d effects", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling effect sweep: %w", err)
	}
	if _, err := c.AddFunc("@every 1h", func() {
		if n := e.speed.SweepExpired(speed.DefaultRetention); n > 0 {
			e.log.Debugf("removed %d stale station overrides", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling override cleanup: %w", err)
	}
	c.Start()
	return &Maintenance{c: c}, nil
}

// Stop halts the jobs and waits for a running job to finish.
func (m *Maintenance) Stop() {
	<-m.c.Stop().Done()
}
