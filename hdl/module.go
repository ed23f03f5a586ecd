// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

// A Module accumulates statements per domain, clock domain definitions and
// submodules while a design component elaborates. It is the only mutable
// construction object and is threaded explicitly through construction code;
// there is no ambient "current module".
//
type Module struct {
	domains []*ClockDomain
	stmts   map[string][]Statement
	order   []string
	subs    []submodule
}

type submodule struct {
	name string
	elab Elaboratable
}

// NewModule returns an empty module.
//
func NewModule() *Module {
	return &Module{stmts: make(map[string][]Statement)}
}

func (m *Module) add(domain string, stmts []Statement) {
	if _, ok := m.stmts[domain]; !ok {
		m.order = append(m.order, domain)
	}
	m.stmts[domain] = append(m.stmts[domain], stmts...)
}

// Comb adds statements to the combinational domain.
//
func (m *Module) Comb(stmts ...Statement) {
	m.add(Comb, stmts)
}

// Sync adds statements to the named synchronous domain. Targets take their
// next value on the domain's active clock edge.
//
func (m *Module) Sync(domain string, stmts ...Statement) {
	if domain == Comb {
		panic(designErrorf("use Comb for the combinational domain"))
	}
	if domain == "" {
		panic(designErrorf("synchronous statements need a domain name"))
	}
	m.add(domain, stmts)
}

// AddDomain declares a clock domain in this module's scope.
//
func (m *Module) AddDomain(cd *ClockDomain) {
	for _, d := range m.domains {
		if d.Name() == cd.Name() {
			panic(designErrorf("domain %q defined twice", cd.Name()))
		}
	}
	m.domains = append(m.domains, cd)
}

// Submodule registers a child design component elaborated under the given
// instance name.
//
func (m *Module) Submodule(name string, e Elaboratable) {
	m.subs = append(m.subs, submodule{name: name, elab: e})
}

// An FSM is a finite-state machine description compiled to a switch over an
// automatically created state register. The first declared state is the
// reset state.
//
type FSM struct {
	name   string
	domain string
	state  *Signal
	names  []string
	index  map[string]int
	bodies [][]Statement
}

// NewFSM creates a finite-state machine clocked by the named domain, with
// the given states. The state register is named "<name>_state" and resets to
// the first state.
//
func NewFSM(name, domain string, states ...string) *FSM {
	if domain == Comb {
		panic(designErrorf("an FSM state register cannot live in the combinational domain"))
	}
	if len(states) == 0 {
		panic(designErrorf("FSM %q has no states", name))
	}
	f := &FSM{
		name:   name,
		domain: domain,
		names:  states,
		index:  make(map[string]int, len(states)),
		bodies: make([][]Statement, len(states)),
	}
	for i, s := range states {
		if _, ok := f.index[s]; ok {
			panic(designErrorf("FSM %q declares state %q twice", name, s))
		}
		f.index[s] = i
	}
	f.state = NewSignal(name+"_state", Unsigned(bitsFor(int64(len(states)-1))))
	return f
}

func (f *FSM) stateIndex(state string) int {
	i, ok := f.index[state]
	if !ok {
		panic(designErrorf("FSM %q has no state %q", f.name, state))
	}
	return i
}

// State adds statements to the body of the named state. Goto statements in
// the body transition the machine.
//
func (f *FSM) State(state string, stmts ...Statement) *FSM {
	i := f.stateIndex(state)
	f.bodies[i] = append(f.bodies[i], stmts...)
	return f
}

// Ongoing returns the 1-bit value asserted while the machine is in the named
// state.
//
func (f *FSM) Ongoing(state string) Value {
	return Eq(f.state, C(int64(f.stateIndex(state))))
}

// StateSignal returns the machine's state register.
//
func (f *FSM) StateSignal() *Signal { return f.state }

// AddFSM compiles the machine into the module: a switch over the state
// register in the FSM's domain, with Goto pseudo-statements rewritten into
// state register assignments.
//
func (m *Module) AddFSM(f *FSM) {
	sw := NewSwitch(f.state)
	for i, body := range f.bodies {
		sw.Case(i, f.resolve(body)...)
	}
	m.Sync(f.domain, sw)
}

// resolve rewrites Goto pseudo-statements into state register assignments,
// recursing through conditional bodies. Statements without transitions are
// shared, not copied.
//
func (f *FSM) resolve(stmts []Statement) []Statement {
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		switch t := s.(type) {
		case *gotoStmt:
			out[i] = Set(f.state, C(int64(f.stateIndex(t.state))))
		case *Cond:
			n := &Cond{arms: make([]Arm, len(t.arms)), closed: t.closed}
			for j, a := range t.arms {
				n.arms[j] = Arm{Cond: a.Cond, Body: f.resolve(a.Body)}
			}
			out[i] = n
		case *Switch:
			n := &Switch{test: t.test, cases: make([]SwitchCase, len(t.cases)), hasDefault: t.hasDefault}
			for j, c := range t.cases {
				n.cases[j] = SwitchCase{Pattern: c.Pattern, Default: c.Default, Body: f.resolve(c.Body)}
			}
			out[i] = n
		default:
			out[i] = s
		}
	}
	return out
}
