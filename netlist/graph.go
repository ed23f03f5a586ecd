// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package netlist

import "github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"

// topoOrder computes an evaluation order over the combinational signals such
// that every signal comes after the combinational signals its driver reads.
// Returns nil when the graph has a cycle.
//
func (nl *Netlist) topoOrder() []SigID {
	var comb []SigID
	for id := range nl.Signals {
		if nl.Signals[id].Domain == hdl.Comb && nl.Drivers[id] != nil {
			comb = append(comb, SigID(id))
		}
	}

	// in-degree of each comb signal: number of comb dependencies
	indeg := make(map[SigID]int, len(comb))
	users := make(map[SigID][]SigID, len(comb))
	for _, id := range comb {
		n := 0
		for _, d := range nl.Deps[id] {
			if nl.IsComb(d) && nl.Drivers[d] != nil {
				n++
				users[d] = append(users[d], id)
			}
		}
		indeg[id] = n
	}

	// Kahn's algorithm with a sorted ready queue keeps the order stable
	// across runs. Ids are allocated deterministically, so ordering by id
	// is enough.
	var ready []SigID
	for _, id := range comb {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}
	order := make([]SigID, 0, len(comb))
	for len(ready) > 0 {
		min := 0
		for i := range ready {
			if ready[i] < ready[min] {
				min = i
			}
		}
		id := ready[min]
		ready = append(ready[:min], ready[min+1:]...)
		order = append(order, id)
		for _, u := range users[id] {
			if indeg[u]--; indeg[u] == 0 {
				ready = append(ready, u)
			}
		}
	}
	if len(order) != len(comb) {
		return nil
	}
	return order
}
