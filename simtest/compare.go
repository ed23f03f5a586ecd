// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

// Package simtest provides utility functions for testing designs.
//
package simtest

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/netlist"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/sim"
)

func maskOf(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

// CompareEval elaborates top, lowers it and drives the given input signals
// with random stimulus, checking after every settling pass that each
// combinationally driven signal holds exactly the value the reference
// evaluator computes for its driver expression. This pins the ahead-of-time
// compiled closures to the tree-walking semantics bit for bit.
//
// The all-zeros and all-ones patterns are always tried before the random
// rounds.
//
func CompareEval(t *testing.T, top hdl.Elaboratable, inputs []*hdl.Signal, rounds int) {
	t.Helper()

	frag, err := hdl.Build(top, inputs...)
	if err != nil {
		t.Fatal(err)
	}
	nl, err := netlist.Lower(frag)
	if err != nil {
		t.Fatal(err)
	}
	sm, err := sim.New(nl)
	if err != nil {
		t.Fatal(err)
	}
	defer sm.Close()

	get := func(sig *hdl.Signal) uint64 {
		id, ok := nl.SigOf(sig)
		if !ok {
			t.Fatalf("driver reads signal %q not in netlist", sig.Name())
		}
		return sm.PeekID(id)
	}

	check := func() {
		t.Helper()
		for id := range nl.Signals {
			sid := netlist.SigID(id)
			if !nl.IsComb(sid) || nl.Drivers[id] == nil {
				continue
			}
			want := hdl.Eval(nl.Drivers[id], get)
			if got := sm.PeekID(sid); got != want {
				t.Fatalf("signal %s: compiled %#x, reference %#x\ndriver: %v",
					nl.Signals[id].Name, got, want, nl.Drivers[id])
			}
		}
	}

	apply := func(pat func(*hdl.Signal) uint64) {
		t.Helper()
		for _, in := range inputs {
			if err := sm.Poke(in, pat(in)); err != nil {
				t.Fatal(err)
			}
		}
		check()
	}

	apply(func(*hdl.Signal) uint64 { return 0 })
	apply(func(in *hdl.Signal) uint64 { return maskOf(in.Shape().Width) })

	seed := time.Now().UnixNano()
	rnd := rand.New(rand.NewSource(seed))
	t.Logf("random stimulus seed %d", seed)
	for i := 0; i < rounds; i++ {
		apply(func(in *hdl.Signal) uint64 {
			return rnd.Uint64() & maskOf(in.Shape().Width)
		})
	}
}
