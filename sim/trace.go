// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package sim

import "github.com/shrine-maiden-heavy-industries/torii-hdl/netlist"

// A TraceSink observes every committed value change, in the order the kernel
// applies them. Intermediate values of a settling pass are reported too;
// sinks that only care about stable values should coalesce by time.
//
// Waveform writers implement this interface against the simulator, which
// stays unaware of any dump format.
//
type TraceSink interface {
	OnChange(id netlist.SigID, t Time, val uint64)
}

// TraceFunc adapts a plain function to the TraceSink interface.
//
type TraceFunc func(id netlist.SigID, t Time, val uint64)

func (f TraceFunc) OnChange(id netlist.SigID, t Time, val uint64) { f(id, t, val) }

// A Change is one recorded value change.
//
type Change struct {
	ID  netlist.SigID
	T   Time
	Val uint64
}

// A Recorder is a TraceSink that keeps the full change history in memory.
// Back-to-back changes of the same signal at the same time collapse to the
// final value.
//
type Recorder struct {
	Changes []Change
}

func (r *Recorder) OnChange(id netlist.SigID, t Time, val uint64) {
	if n := len(r.Changes); n > 0 {
		if c := &r.Changes[n-1]; c.ID == id && c.T == t {
			c.Val = val
			return
		}
	}
	r.Changes = append(r.Changes, Change{ID: id, T: t, Val: val})
}

// Of returns the changes recorded for one signal.
//
func (r *Recorder) Of(id netlist.SigID) []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.ID == id {
			out = append(out, c)
		}
	}
	return out
}
