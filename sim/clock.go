// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package sim

import "github.com/pkg/errors"

type clockConfig struct {
	phase Time
}

// A ClockOption configures an AddClock call.
//
type ClockOption func(*clockConfig)

// WithPhase delays the clock's first transition to the given offset from the
// time AddClock is called. The default phase is half a period, so the first
// active edge of a rising-edge domain lands a full period in.
//
func WithPhase(phase Time) ClockOption {
	return func(c *clockConfig) { c.phase = phase }
}

// AddClock drives the named domain's clock with a free-running square wave of
// the given period. The clock starts low and toggles every half period. Only
// one clock source per domain is allowed.
//
func (s *Simulator) AddClock(period Time, domain string, opts ...ClockOption) error {
	d, ok := s.nl.DomainByName(domain)
	if !ok {
		return errors.Errorf("unknown domain %q", domain)
	}
	half := period / 2
	if half == 0 {
		return errors.Errorf("clock period %d too short", period)
	}
	for i := range s.doms {
		if s.doms[i].info == d {
			if s.doms[i].clocked {
				return errors.Errorf("domain %q already has a clock", domain)
			}
			s.doms[i].clocked = true
		}
	}

	cfg := clockConfig{phase: half}
	for _, o := range opts {
		o(&cfg)
	}

	clk, next := d.Clk, uint64(1)
	var tick func()
	tick = func() {
		s.pendingWrite(clk, next)
		next ^= 1
		s.schedule(s.now+half, tick)
	}
	s.schedule(s.now+cfg.phase, tick)
	return nil
}
