// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

// Package lib provides a library of reusable parts. A part is a struct of
// signals implementing hdl.Elaboratable; instantiate it with its constructor,
// register it as a submodule and wire its signal fields into the surrounding
// design.
//
package lib

import "github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"

// A Counter is a synchronous up counter.
//
//	Inputs: En
//	Outputs: Count[width], Ovf
//	Function: Count increments every enabled edge, wrapping modulo 2^width.
//	          Ovf is high during the cycle whose edge wraps.
//
type Counter struct {
	En    *hdl.Signal
	Count *hdl.Signal
	Ovf   *hdl.Signal

	domain string
}

// NewCounter returns a counter of the given width clocked by domain.
//
func NewCounter(width int, domain string) *Counter {
	return &Counter{
		En:     hdl.NewSignal("en", hdl.Unsigned(1)),
		Count:  hdl.NewSignal("count", hdl.Unsigned(width)),
		Ovf:    hdl.NewSignal("ovf", hdl.Unsigned(1)),
		domain: domain,
	}
}

// Elaborate implements hdl.Elaboratable.
//
func (c *Counter) Elaborate(ctx *hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	m.Sync(c.domain,
		hdl.When(hdl.Bool(c.En),
			hdl.Set(c.Count, hdl.Add(c.Count, hdl.C(1))),
		),
	)
	m.Comb(hdl.Set(c.Ovf, hdl.AndV(c.En, hdl.All(c.Count))))
	return m
}
