// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package lib

import "github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"

// A Decoder is a one-hot decoder.
//
//	Inputs: Sel[n]
//	Outputs: Out[2^n]
//	Function: Out = 1 << Sel
//
type Decoder struct {
	Sel *hdl.Signal
	Out *hdl.Signal
}

// NewDecoder returns a decoder for an n-bit select, n at most 6.
//
func NewDecoder(n int) *Decoder {
	return &Decoder{
		Sel: hdl.NewSignal("sel", hdl.Unsigned(n)),
		Out: hdl.NewSignal("out", hdl.Unsigned(1<<uint(n))),
	}
}

// Elaborate implements hdl.Elaboratable.
//
func (d *Decoder) Elaborate(ctx *hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	m.Comb(hdl.Set(d.Out, hdl.Shl(hdl.C(1, hdl.Unsigned(1)), d.Sel)))
	return m
}

// A PriorityEncoder reports the position of the lowest set bit.
//
//	Inputs: In[width]
//	Outputs: Idx, Valid
//	Function: Idx is the index of the least significant set bit of In, 0 when
//	          none is set; Valid reports whether any bit is set.
//
type PriorityEncoder struct {
	In    *hdl.Signal
	Idx   *hdl.Signal
	Valid *hdl.Signal
}

// NewPriorityEncoder returns a priority encoder over width input bits.
//
func NewPriorityEncoder(width int) *PriorityEncoder {
	return &PriorityEncoder{
		In:    hdl.NewSignal("in", hdl.Unsigned(width)),
		Idx:   hdl.NewSignal("idx", hdl.Unsigned(hdl.BitsFor(int64(width-1)))),
		Valid: hdl.NewSignal("valid", hdl.Unsigned(1)),
	}
}

// Elaborate implements hdl.Elaboratable.
//
func (e *PriorityEncoder) Elaborate(ctx *hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	w := e.In.Shape().Width
	shape := e.Idx.Shape()
	// fold from the top so that lower bits take priority
	idx := hdl.Value(hdl.C(0, shape))
	for i := w - 1; i >= 0; i-- {
		idx = hdl.Mux(hdl.SliceV(e.In, i, i+1), hdl.C(int64(i), shape), idx)
	}
	m.Comb(
		hdl.Set(e.Idx, idx),
		hdl.Set(e.Valid, hdl.Any(e.In)),
	)
	return m
}
