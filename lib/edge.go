// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package lib

import "github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"

// An EdgeDetector reports single-cycle transitions of a level signal.
//
//	Inputs: In
//	Outputs: Rose, Fell
//	Function: Rose is high while In is high but its registered copy is not
//	          yet; Fell is the mirror image. Each pulse lasts until the next
//	          active edge.
//
type EdgeDetector struct {
	In   *hdl.Signal
	Rose *hdl.Signal
	Fell *hdl.Signal

	domain string
}

// NewEdgeDetector returns an edge detector clocked by domain.
//
func NewEdgeDetector(domain string) *EdgeDetector {
	return &EdgeDetector{
		In:     hdl.NewSignal("in", hdl.Unsigned(1)),
		Rose:   hdl.NewSignal("rose", hdl.Unsigned(1)),
		Fell:   hdl.NewSignal("fell", hdl.Unsigned(1)),
		domain: domain,
	}
}

// Elaborate implements hdl.Elaboratable.
//
func (d *EdgeDetector) Elaborate(ctx *hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	last := hdl.NewSignalLike("last", d.In)
	m.Sync(d.domain, hdl.Set(last, d.In))
	m.Comb(
		hdl.Set(d.Rose, hdl.AndV(d.In, hdl.Inv(last))),
		hdl.Set(d.Fell, hdl.AndV(hdl.Inv(d.In), last)),
	)
	return m
}
