// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package netlist

import (
	"strconv"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
)

// build assembles the final Netlist from the lowerer's resolved drivers:
// signal arena, domain table, dependency graph and evaluation order.
//
func (lo *lowerer) build(f *hdl.Fragment) (*Netlist, error) {
	nl := &Netlist{
		ids:      make(map[*hdl.Signal]SigID),
		domains:  make(map[string]int),
		byName:   make(map[string]SigID),
		Warnings: lo.warnings,
	}

	// Bind each driven signal to its single driving domain. Driving the
	// same signal from two domains, even disjoint bits of it, is a hard
	// error.
	domainOf := make(map[*hdl.Signal]string)
	driven := make(map[string][]*hdl.Signal, len(lo.usedOrder))
	for _, d := range lo.usedOrder {
		seen := make(map[*hdl.Signal]bool)
		for _, s := range lo.sigOrder[d] {
			if seen[s] {
				continue
			}
			seen[s] = true
			if prev, ok := domainOf[s]; ok {
				panic(&hdl.DesignError{Msg: "signal " + strconv.Quote(s.Name()) +
					" driven from both domain " + strconv.Quote(prev) +
					" and domain " + strconv.Quote(d)})
			}
			domainOf[s] = d
			driven[d] = append(driven[d], s)
		}
	}

	// Ports get the first ids so that design inputs have stable, early
	// slots.
	for _, p := range f.Ports() {
		nl.addSignal(p)
	}

	// Driven signals next, then every signal their drivers read.
	for _, d := range lo.usedOrder {
		for _, s := range driven[d] {
			nl.addSignal(s)
		}
	}
	resolved := make(map[*hdl.Signal]hdl.Value, len(domainOf))
	for _, d := range lo.usedOrder {
		for _, s := range driven[d] {
			drv := lo.resolveRefs(lo.next[d][s])
			resolved[s] = drv
			for _, r := range readSignals(drv) {
				nl.addSignal(r)
			}
		}
	}

	// Domain table, in definition order. Clocks and resets live in the
	// arena like any other signal.
	for _, name := range lo.domainOrder {
		cd := lo.domains[name]
		rst := None
		if cd.Rst() != nil {
			rst = nl.addSignal(cd.Rst())
		}
		nl.domains[name] = len(nl.Domains)
		nl.Domains = append(nl.Domains, DomainInfo{
			CD:   cd,
			Name: name,
			Clk:  nl.addSignal(cd.Clk()),
			Rst:  rst,
		})
	}

	// Fill per-signal driver and domain columns.
	nl.Drivers = make([]hdl.Value, len(nl.Signals))
	nl.Deps = make([][]SigID, len(nl.Signals))
	for s, d := range domainOf {
		id := nl.ids[s]
		nl.Signals[id].Domain = d
		nl.Drivers[id] = resolved[s]
	}

	// Combinational dependency graph: edges from a signal's driver to the
	// signals it reads.
	for id := range nl.Signals {
		if nl.Signals[id].Domain != hdl.Comb {
			continue
		}
		reads := readSignals(nl.Drivers[id])
		deps := make([]SigID, 0, len(reads))
		for _, r := range reads {
			deps = append(deps, nl.ids[r])
		}
		nl.Deps[id] = deps
	}
	nl.Order = nl.topoOrder()

	for _, p := range f.Ports() {
		nl.Ports = append(nl.Ports, nl.ids[p])
	}
	return nl, nil
}

// addSignal allocates an arena slot for s, disambiguating its name against
// earlier signals, and returns its id. Adding the same signal twice returns
// the existing id.
//
func (nl *Netlist) addSignal(s *hdl.Signal) SigID {
	if id, ok := nl.ids[s]; ok {
		return id
	}
	name := s.Name()
	if _, taken := nl.byName[name]; taken {
		for i := 1; ; i++ {
			n := name + "$" + strconv.Itoa(i)
			if _, taken := nl.byName[n]; !taken {
				name = n
				break
			}
		}
	}
	id := SigID(len(nl.Signals))
	nl.Signals = append(nl.Signals, SigInfo{
		Signal:    s,
		Name:      name,
		Shape:     s.Shape(),
		Init:      s.Init(),
		ResetLess: s.IsResetLess(),
	})
	nl.ids[s] = id
	nl.byName[name] = id
	return id
}

// resolveRefs replaces late-bound clock/reset references with the actual
// clock and reset signals of their domains, sharing unchanged subtrees.
//
func (lo *lowerer) resolveRefs(v hdl.Value) hdl.Value {
	switch t := v.(type) {
	case *hdl.ClockSignalRef:
		return lo.domain(t.Domain()).Clk()
	case *hdl.ResetSignalRef:
		cd := lo.domain(t.Domain())
		if cd.Rst() == nil {
			panic(&hdl.DesignError{Msg: "domain " + strconv.Quote(t.Domain()) + " has no reset signal"})
		}
		return cd.Rst()
	case *hdl.Operator:
		ops := t.Operands()
		n := make([]hdl.Value, len(ops))
		changed := false
		for i, o := range ops {
			n[i] = lo.resolveRefs(o)
			changed = changed || n[i] != o
		}
		if !changed {
			return t
		}
		return rebuildOp(t, n)
	case *hdl.Slice:
		if inner := lo.resolveRefs(t.Value()); inner != t.Value() {
			start, stop := t.Bounds()
			return hdl.SliceV(inner, start, stop)
		}
		return t
	case *hdl.Part:
		inner, off := lo.resolveRefs(t.Value()), lo.resolveRefs(t.Offset())
		if inner != t.Value() || off != t.Offset() {
			if t.Stride() == 1 {
				return hdl.BitSelect(inner, off, t.Width())
			}
			return hdl.WordSelect(inner, off, t.Width())
		}
		return t
	case *hdl.Cat:
		parts := t.Parts()
		n := make([]hdl.Value, len(parts))
		changed := false
		for i, p := range parts {
			n[i] = lo.resolveRefs(p)
			changed = changed || n[i] != p
		}
		if !changed {
			return t
		}
		return hdl.CatV(n...)
	case *hdl.Repl:
		if inner := lo.resolveRefs(t.Value()); inner != t.Value() {
			return hdl.ReplV(inner, t.Count())
		}
		return t
	default:
		return v
	}
}

// rebuildOp reconstructs an operator node with new operands, keeping the
// original result shape.
//
func rebuildOp(o *hdl.Operator, operands []hdl.Value) hdl.Value {
	switch o.Op() {
	case hdl.OpAdd:
		return hdl.Add(operands[0], operands[1])
	case hdl.OpSub:
		return hdl.Sub(operands[0], operands[1])
	case hdl.OpMul:
		return hdl.Mul(operands[0], operands[1])
	case hdl.OpDiv:
		return hdl.Div(operands[0], operands[1])
	case hdl.OpMod:
		return hdl.Mod(operands[0], operands[1])
	case hdl.OpNeg:
		return hdl.Neg(operands[0])
	case hdl.OpInv:
		return hdl.Inv(operands[0])
	case hdl.OpAnd:
		return hdl.AndV(operands[0], operands[1])
	case hdl.OpOr:
		return hdl.OrV(operands[0], operands[1])
	case hdl.OpXor:
		return hdl.XorV(operands[0], operands[1])
	case hdl.OpShl:
		return hdl.Shl(operands[0], operands[1])
	case hdl.OpShr:
		return hdl.Shr(operands[0], operands[1])
	case hdl.OpEq:
		return hdl.Eq(operands[0], operands[1])
	case hdl.OpNe:
		return hdl.Ne(operands[0], operands[1])
	case hdl.OpLt:
		return hdl.Lt(operands[0], operands[1])
	case hdl.OpLe:
		return hdl.Le(operands[0], operands[1])
	case hdl.OpGt:
		return hdl.Gt(operands[0], operands[1])
	case hdl.OpGe:
		return hdl.Ge(operands[0], operands[1])
	case hdl.OpBool:
		return hdl.Bool(operands[0])
	case hdl.OpAny:
		return hdl.Any(operands[0])
	case hdl.OpAll:
		return hdl.All(operands[0])
	case hdl.OpPar:
		return hdl.Parity(operands[0])
	case hdl.OpUns:
		return hdl.AsUnsigned(operands[0])
	case hdl.OpSgn:
		return hdl.AsSigned(operands[0])
	case hdl.OpMux:
		return hdl.Mux(operands[0], operands[1], operands[2])
	default:
		panic(&hdl.DesignError{Msg: "cannot rebuild operator " + o.Op().String()})
	}
}

// readSignals returns the signals v reads, deduplicated, in first-read
// order.
//
func readSignals(v hdl.Value) []*hdl.Signal {
	var out []*hdl.Signal
	seen := make(map[*hdl.Signal]bool)
	var walk func(hdl.Value)
	walk = func(v hdl.Value) {
		switch t := v.(type) {
		case *hdl.Signal:
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		case *hdl.Operator:
			for _, o := range t.Operands() {
				walk(o)
			}
		case *hdl.Slice:
			walk(t.Value())
		case *hdl.Part:
			walk(t.Value())
			walk(t.Offset())
		case *hdl.Cat:
			for _, p := range t.Parts() {
				walk(p)
			}
		case *hdl.Repl:
			walk(t.Value())
		}
	}
	walk(v)
	return out
}
