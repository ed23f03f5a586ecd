// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

// Package netlist flattens an elaborated fragment hierarchy into a single
// table of signals with fully resolved driver expressions. The flattened
// Netlist is the shared artifact consumed by the simulator and by external
// code generation backends.
//
package netlist

import (
	"github.com/pkg/errors"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
)

// A SigID is a stable dense index into a Netlist's signal table. Signals are
// referenced by identity, never by ownership.
//
type SigID int

// None marks the absence of a signal reference.
//
const None SigID = -1

// SigInfo is one row of the signal table.
//
type SigInfo struct {
	Signal    *hdl.Signal
	Name      string // disambiguated name, unique within the netlist
	Shape     hdl.Shape
	Init      int64
	ResetLess bool
	// Domain is the name of the single domain driving the signal, or ""
	// for undriven signals (design inputs).
	Domain string
}

// DomainInfo is one row of the domain table.
//
type DomainInfo struct {
	CD   *hdl.ClockDomain
	Name string
	Clk  SigID
	Rst  SigID // None for reset-less domains
}

// A Netlist is the flattened, fully resolved view of a design: the signal
// arena, one resolved driver expression per driven signal, the domain table
// and the combinational dependency graph.
//
type Netlist struct {
	Signals []SigInfo
	// Drivers holds the resolved driver expression per signal, nil for
	// undriven signals. For combinational signals the expression yields the
	// signal's value; for synchronous signals it yields the next value to
	// latch at the domain's active edge.
	Drivers []hdl.Value
	Domains []DomainInfo
	// Deps lists, per combinational driven signal, the signals its driver
	// reads. Signals driven in other domains have a nil entry.
	Deps [][]SigID
	// Order is a topological evaluation order over the combinational
	// signals, or nil if the dependency graph has a cycle. Lowering does
	// not reject cyclic designs; see the package documentation of sim for
	// how they are handled.
	Order []SigID
	Ports []SigID
	// Warnings collects advisory diagnostics produced during lowering.
	Warnings []hdl.Warning

	ids     map[*hdl.Signal]SigID
	domains map[string]int
	byName  map[string]SigID
}

// SigOf returns the id allocated to s.
//
func (nl *Netlist) SigOf(s *hdl.Signal) (SigID, bool) {
	id, ok := nl.ids[s]
	return id, ok
}

// ByName returns the id of the signal with the given netlist name.
//
func (nl *Netlist) ByName(name string) (SigID, bool) {
	id, ok := nl.byName[name]
	return id, ok
}

// DomainByName returns the domain table row for the named domain.
//
func (nl *Netlist) DomainByName(name string) (*DomainInfo, bool) {
	i, ok := nl.domains[name]
	if !ok {
		return nil, false
	}
	return &nl.Domains[i], true
}

// IsComb reports whether id is driven combinationally.
//
func (nl *Netlist) IsComb(id SigID) bool {
	return nl.Signals[id].Domain == hdl.Comb
}

// lowerer carries the state of one lowering pass.
//
type lowerer struct {
	domains     map[string]*hdl.ClockDomain
	domainOrder []string

	// driver resolution state, per domain
	next      map[string]map[*hdl.Signal]hdl.Value
	sigOrder  map[string][]*hdl.Signal
	usedOrder []string

	warnings []hdl.Warning
}

// Lower flattens the fragment tree rooted at f. It merges per-domain
// statement lists into one resolved driver expression per signal, resolves
// late-bound clock/reset references, checks the single-driving-domain
// invariant, and builds the combinational dependency graph.
//
func Lower(f *hdl.Fragment) (nl *Netlist, err error) {
	defer func() {
		r := recover()
		switch e := r.(type) {
		case nil:
		case *hdl.ShapeError:
			err = errors.Wrap(e, "lowering")
		case *hdl.DesignError:
			err = errors.Wrap(e, "lowering")
		default:
			panic(r)
		}
	}()

	lo := &lowerer{
		domains:  make(map[string]*hdl.ClockDomain),
		next:     make(map[string]map[*hdl.Signal]hdl.Value),
		sigOrder: make(map[string][]*hdl.Signal),
	}
	lo.collectDomains(f)
	lo.lowerFragment(f)
	return lo.build(f)
}

// collectDomains walks the tree gathering clock domain definitions. Two
// distinct definitions under the same name are an error; the same domain
// object reachable through several fragments is fine.
//
func (lo *lowerer) collectDomains(f *hdl.Fragment) {
	for name, cd := range f.Domains() {
		if prev, ok := lo.domains[name]; ok {
			if prev != cd {
				panic(&hdl.DesignError{Msg: "domain \"" + name + "\" defined more than once"})
			}
			continue
		}
		lo.domains[name] = cd
		lo.domainOrder = append(lo.domainOrder, name)
	}
	for _, sub := range f.Subs() {
		lo.collectDomains(sub.Frag)
	}
}

// domain returns the definition of the named domain, creating a default one
// on first use if the design never defined it.
//
func (lo *lowerer) domain(name string) *hdl.ClockDomain {
	if cd, ok := lo.domains[name]; ok {
		return cd
	}
	cd := hdl.NewClockDomain(name)
	lo.domains[name] = cd
	lo.domainOrder = append(lo.domainOrder, name)
	return cd
}

// lowerFragment resolves the drivers contributed by f and its children, in
// pre-order, so that statement order across the hierarchy is deterministic.
//
func (lo *lowerer) lowerFragment(f *hdl.Fragment) {
	for _, d := range f.DomainOrder() {
		if d != hdl.Comb {
			lo.domain(d)
		}
		nx, ok := lo.next[d]
		if !ok {
			nx = make(map[*hdl.Signal]hdl.Value)
			lo.next[d] = nx
			lo.usedOrder = append(lo.usedOrder, d)
		}
		lo.lowerBlock(d, f.Stmts(d), nx)
	}
	for _, sub := range f.Subs() {
		lo.lowerFragment(sub.Frag)
	}
}

// defaultOf returns the value a signal has when no assignment is active: its
// initial value in the combinational domain, its own current value in a
// synchronous domain.
//
func defaultOf(s *hdl.Signal, domain string) hdl.Value {
	if domain == hdl.Comb {
		return hdl.C(s.Init(), s.Shape())
	}
	return s
}

// cur returns the running "value so far" of a target expression: the pending
// driver if one exists, the domain default otherwise.
//
func (lo *lowerer) cur(t hdl.Value, domain string, nx map[*hdl.Signal]hdl.Value) hdl.Value {
	switch v := t.(type) {
	case *hdl.Signal:
		if e, ok := nx[v]; ok {
			return e
		}
		return defaultOf(v, domain)
	case *hdl.Slice:
		start, stop := v.Bounds()
		return hdl.SliceV(lo.cur(v.Value(), domain, nx), start, stop)
	case *hdl.Part:
		p := lo.cur(v.Value(), domain, nx)
		if v.Stride() == 1 {
			return hdl.BitSelect(p, v.Offset(), v.Width())
		}
		return hdl.WordSelect(p, v.Offset(), v.Width())
	case *hdl.Cat:
		parts := make([]hdl.Value, len(v.Parts()))
		for i, p := range v.Parts() {
			parts[i] = lo.cur(p, domain, nx)
		}
		return hdl.CatV(parts...)
	default:
		panic(&hdl.DesignError{Msg: "cannot assign to " + t.String()})
	}
}

func (lo *lowerer) lowerBlock(domain string, stmts []hdl.Statement, nx map[*hdl.Signal]hdl.Value) {
	for _, s := range stmts {
		switch t := s.(type) {
		case *hdl.Assign:
			lo.assign(domain, t.Target(), t.Source(), nx)
		case *hdl.Cond:
			arms := t.Arms()
			conds := make([]hdl.Value, len(arms))
			for i, a := range arms {
				if a.Cond != nil {
					conds[i] = hdl.Bool(a.Cond)
				}
			}
			lo.lowerArms(domain, condArms(arms), conds, nx)
		case *hdl.Switch:
			cases := t.Cases()
			conds := make([]hdl.Value, len(cases))
			for i, c := range cases {
				if !c.Default {
					conds[i] = matchExpr(t.Test(), c.Pattern)
				}
			}
			lo.lowerArms(domain, caseArms(cases), conds, nx)
		default:
			panic(&hdl.DesignError{Msg: "unexpected statement kind during lowering (unresolved FSM transition?)"})
		}
	}
}

func condArms(arms []hdl.Arm) [][]hdl.Statement {
	out := make([][]hdl.Statement, len(arms))
	for i, a := range arms {
		out[i] = a.Body
	}
	return out
}

func caseArms(cases []hdl.SwitchCase) [][]hdl.Statement {
	out := make([][]hdl.Statement, len(cases))
	for i, c := range cases {
		out[i] = c.Body
	}
	return out
}

// matchExpr builds the 1-bit condition for a switch pattern match.
//
func matchExpr(test hdl.Value, p hdl.Pattern) hdl.Value {
	w := test.Shape().Width
	u := hdl.AsUnsigned(test)
	if p.Mask == maskOf(w) {
		return hdl.Eq(u, hdl.C(int64(p.Bits), hdl.Unsigned(w)))
	}
	return hdl.Eq(
		hdl.AndV(u, hdl.C(int64(p.Mask), hdl.Unsigned(w))),
		hdl.C(int64(p.Bits), hdl.Unsigned(w)),
	)
}

func maskOf(w int) uint64 {
	if w <= 0 {
		return 0
	}
	return ^uint64(0) >> uint(64-w)
}

// lowerArms compiles a guarded arm list into chained multiplexers. Arms are
// in priority order; conds[i] == nil marks a default arm. Signals assigned
// in any arm get a new driver selecting among the per-arm final values, with
// the pre-existing value as fallback.
//
func (lo *lowerer) lowerArms(domain string, bodies [][]hdl.Statement, conds []hdl.Value, nx map[*hdl.Signal]hdl.Value) {
	type armResult struct {
		nx map[*hdl.Signal]hdl.Value
	}
	results := make([]armResult, len(bodies))
	var assignedOrder []*hdl.Signal
	seen := make(map[*hdl.Signal]bool)

	for i, body := range bodies {
		work := make(map[*hdl.Signal]hdl.Value, len(nx))
		for k, v := range nx {
			work[k] = v
		}
		before := make(map[*hdl.Signal]hdl.Value, len(work))
		for k, v := range work {
			before[k] = v
		}
		lo.lowerBlock(domain, body, work)
		results[i] = armResult{nx: work}
		for _, s := range lo.sigOrder[domain] {
			if work[s] != before[s] && !seen[s] {
				seen[s] = true
				assignedOrder = append(assignedOrder, s)
			}
		}
	}

	for _, s := range assignedOrder {
		// fallback: value the signal keeps when no arm is active
		val := lo.cur(s, domain, nx)
		for i := len(bodies) - 1; i >= 0; i-- {
			armVal, ok := results[i].nx[s]
			if !ok {
				armVal = defaultOf(s, domain)
			}
			if conds[i] == nil {
				val = armVal
			} else {
				val = castTo(hdl.Mux(conds[i], armVal, val), s.Shape())
			}
		}
		nx[s] = val
	}
}

// assign resolves one assignment into the pending driver map, splicing
// through slice, part and concatenation targets down to the signals
// underneath.
//
func (lo *lowerer) assign(domain string, target, source hdl.Value, nx map[*hdl.Signal]hdl.Value) {
	switch t := target.(type) {
	case *hdl.Signal:
		if c, ok := source.(*hdl.Const); ok {
			if _, lost := constFits(c, t.Shape()); lost {
				lo.warnings = append(lo.warnings, hdl.Warning{
					Msg: "constant " + c.String() + " truncated when assigned to " + t.String(),
				})
			}
		}
		if _, ok := nx[t]; !ok {
			lo.sigOrder[domain] = append(lo.sigOrder[domain], t)
		}
		nx[t] = castTo(source, t.Shape())

	case *hdl.Slice:
		start, stop := t.Bounds()
		inner := lo.cur(t.Value(), domain, nx)
		w := inner.Shape().Width
		spliced := hdl.CatV(
			hdl.SliceV(inner, 0, start),
			castTo(source, hdl.Unsigned(stop-start)),
			hdl.SliceV(inner, stop, w),
		)
		lo.assign(domain, t.Value(), spliced, nx)

	case *hdl.Part:
		// A part write has a runtime offset, so it lowers to a decoder: one
		// statically spliced variant per reachable offset, selected by a mux
		// chain. Out-of-range offsets write nothing.
		inner := lo.cur(t.Value(), domain, nx)
		w := inner.Shape().Width
		off := t.Offset()
		src := castTo(source, hdl.Unsigned(t.Width()))
		val := castTo(inner, hdl.Unsigned(w))
		if w > 0 && t.Width() > 0 {
			for i := (w - 1) / t.Stride(); i >= 0; i-- {
				start := i * t.Stride()
				stop := start + t.Width()
				if stop > w {
					stop = w
				}
				spliced := hdl.CatV(
					hdl.SliceV(inner, 0, start),
					hdl.SliceV(src, 0, stop-start),
					hdl.SliceV(inner, stop, w),
				)
				val = castTo(hdl.Mux(hdl.Eq(hdl.AsUnsigned(off), hdl.C(int64(i))), spliced, val), hdl.Unsigned(w))
			}
		}
		lo.assign(domain, t.Value(), val, nx)

	case *hdl.Cat:
		w := 0
		for _, p := range t.Parts() {
			w += p.Shape().Width
		}
		src := castTo(source, hdl.Unsigned(w))
		o := 0
		for _, p := range t.Parts() {
			pw := p.Shape().Width
			lo.assign(domain, p, hdl.SliceV(src, o, o+pw), nx)
			o += pw
		}

	default:
		panic(&hdl.DesignError{Msg: "cannot assign to " + target.String()})
	}
}

// castTo adjusts v to the given shape: truncating from above, extending
// with zero or sign bits from below, reinterpreting signedness as needed.
//
func castTo(v hdl.Value, s hdl.Shape) hdl.Value {
	vs := v.Shape()
	if vs == s {
		return v
	}
	switch {
	case vs.Width > s.Width:
		v = hdl.SliceV(v, 0, s.Width)
	case vs.Width < s.Width:
		d := s.Width - vs.Width
		if vs.Signed && vs.Width > 0 {
			v = hdl.CatV(hdl.AsUnsigned(v), hdl.ReplV(hdl.Bit(v, vs.Width-1), d))
		} else {
			v = hdl.CatV(v, hdl.C(0, hdl.Unsigned(d)))
		}
	}
	if v.Shape().Signed != s.Signed {
		if s.Signed {
			return hdl.AsSigned(v)
		}
		return hdl.AsUnsigned(v)
	}
	return v
}

// constFits reports whether c is representable in shape s.
//
func constFits(c *hdl.Const, s hdl.Shape) (int64, bool) {
	v := c.Value()
	clipped := hdl.C(v, s).Value()
	return clipped, clipped != v
}
