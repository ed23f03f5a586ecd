// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package lib

import "github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"

// A ShiftReg is a serial-in parallel-out shift register.
//
//	Inputs: SI
//	Outputs: Q[depth]
//	Function: every edge SI enters at bit 0 and the contents shift toward
//	          the most significant bit.
//
type ShiftReg struct {
	SI *hdl.Signal
	Q  *hdl.Signal

	domain string
}

// NewShiftReg returns a shift register of the given depth clocked by domain.
//
func NewShiftReg(depth int, domain string) *ShiftReg {
	return &ShiftReg{
		SI:     hdl.NewSignal("si", hdl.Unsigned(1)),
		Q:      hdl.NewSignal("q", hdl.Unsigned(depth)),
		domain: domain,
	}
}

// Elaborate implements hdl.Elaboratable.
//
func (r *ShiftReg) Elaborate(ctx *hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	depth := r.Q.Shape().Width
	next := hdl.Value(r.SI)
	if depth > 1 {
		next = hdl.CatV(r.SI, hdl.SliceV(r.Q, 0, depth-1))
	}
	m.Sync(r.domain, hdl.Set(r.Q, next))
	return m
}
