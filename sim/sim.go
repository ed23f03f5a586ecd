// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

// Package sim provides an event-driven simulator for lowered designs. The
// driver expression of every signal is compiled ahead of time into a closure
// over dense signal ids, so stepping the simulation performs no tree walking.
//
// Simulation time is unitless. A simulation alternates between an idle phase,
// where the timeline decides what happens next, and reaction phases, where
// combinational signals settle to a fixpoint and clock edges latch new
// synchronous values. Designs whose combinational part is acyclic settle in
// one pass; cyclic designs are iterated and rejected with a DivergenceError
// if they fail to converge.
//
package sim

import (
	"container/heap"
	"fmt"

	"github.com/pkg/errors"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/netlist"
)

// Time is a point on the simulation timeline.
//
type Time uint64

// DefaultMaxDeltas bounds the number of delta cycles spent reacting to a
// single timeline event before the simulation is declared divergent.
//
const DefaultMaxDeltas = 1000

// A DivergenceError reports a simulation step that failed to reach a
// fixpoint, usually caused by an oscillating combinational loop.
//
type DivergenceError struct {
	Time   Time
	Deltas int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("no fixpoint after %d delta cycles at time %d", e.Deltas, e.Time)
}

// A ProcessError aborts a run when a testbench process fails or panics.
//
type ProcessError struct {
	Name string
	Err  error
}

func (e *ProcessError) Error() string { return "process " + e.Name + ": " + e.Err.Error() }
func (e *ProcessError) Unwrap() error { return e.Err }

type event struct {
	t   Time
	seq int
	fn  func()
}

// eventHeap is a min-heap over (time, insertion order).
//
type eventHeap []*event

func (h eventHeap) Len() int      { return len(h) }
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h eventHeap) Less(i, j int) bool {
	if h[i].t != h[j].t {
		return h[i].t < h[j].t
	}
	return h[i].seq < h[j].seq
}
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old) - 1
	e := old[n]
	old[n] = nil
	*h = old[:n]
	return e
}

type write struct {
	id  netlist.SigID
	val uint64
}

// domState is the per-domain runtime state: the compiled next-value functions
// of its synchronous signals and the last observed clock level.
//
type domState struct {
	info    *netlist.DomainInfo
	sync    []netlist.SigID
	next    []evalFn
	scratch []uint64
	lastClk uint64
	clocked bool
}

// A Simulator owns the runtime state of one lowered design: the signal value
// frame, the compiled drivers, the timeline and the testbench processes.
// A Simulator is not safe for concurrent use.
//
type Simulator struct {
	nl *netlist.Netlist
	st []uint64

	drivers   []evalFn // comb drivers, indexed by SigID
	combOrder []netlist.SigID
	combAll   []netlist.SigID
	doms      []domState

	now       Time
	events    eventHeap
	seq       int
	maxDeltas int

	pending   []write
	changed   []netlist.SigID
	inChanged []bool

	procs       []*Proc
	edgeWaiters map[string][]*Proc
	sigWaiters  map[netlist.SigID][]*Proc

	sinks   []TraceSink
	failure error
}

// An Option configures a Simulator at construction time.
//
type Option func(*Simulator)

// WithMaxDeltas overrides the delta cycle bound used to detect divergence.
//
func WithMaxDeltas(n int) Option {
	return func(s *Simulator) { s.maxDeltas = n }
}

// WithSink attaches a trace sink before the initial settling pass, so that
// the sink also observes power-on value changes.
//
func WithSink(ts TraceSink) Option {
	return func(s *Simulator) { s.sinks = append(s.sinks, ts) }
}

// New compiles the drivers of nl and returns a simulator with every signal at
// its initial value and the combinational part settled.
//
func New(nl *netlist.Netlist, opts ...Option) (sm *Simulator, err error) {
	defer func() {
		switch e := recover().(type) {
		case nil:
		case *hdl.DesignError:
			err = errors.Wrap(e, "compiling")
		case *hdl.ShapeError:
			err = errors.Wrap(e, "compiling")
		default:
			if e != nil {
				panic(e)
			}
		}
	}()

	s := &Simulator{
		nl:          nl,
		st:          make([]uint64, len(nl.Signals)),
		drivers:     make([]evalFn, len(nl.Signals)),
		combOrder:   nl.Order,
		maxDeltas:   DefaultMaxDeltas,
		inChanged:   make([]bool, len(nl.Signals)),
		edgeWaiters: make(map[string][]*Proc),
		sigWaiters:  make(map[netlist.SigID][]*Proc),
	}
	for id := range nl.Signals {
		s.st[id] = uint64(nl.Signals[id].Init) & mask(nl.Signals[id].Shape.Width)
	}
	for id, drv := range nl.Drivers {
		if drv != nil && nl.IsComb(netlist.SigID(id)) {
			s.drivers[id] = compile(nl, drv)
			s.combAll = append(s.combAll, netlist.SigID(id))
		}
	}
	for i := range nl.Domains {
		d := domState{info: &nl.Domains[i]}
		for id := range nl.Signals {
			if nl.Signals[id].Domain == d.info.Name && nl.Drivers[id] != nil {
				d.sync = append(d.sync, netlist.SigID(id))
				d.next = append(d.next, compile(nl, nl.Drivers[id]))
			}
		}
		d.scratch = make([]uint64, len(d.sync))
		s.doms = append(s.doms, d)
	}
	for _, o := range opts {
		o(s)
	}

	if _, err := s.settle(); err != nil {
		return nil, err
	}
	for i := range s.doms {
		s.doms[i].lastClk = s.st[s.doms[i].info.Clk]
	}
	// power-on changes predate every waiter
	for _, id := range s.changed {
		s.inChanged[id] = false
	}
	s.changed = s.changed[:0]
	return s, nil
}

// Now returns the current simulation time.
//
func (s *Simulator) Now() Time { return s.now }

// Netlist returns the lowered design this simulator runs.
//
func (s *Simulator) Netlist() *netlist.Netlist { return s.nl }

// Peek returns the current bit pattern of sig.
//
func (s *Simulator) Peek(sig *hdl.Signal) uint64 {
	id, ok := s.nl.SigOf(sig)
	if !ok {
		panic(errors.Errorf("signal %q not in netlist", sig.Name()))
	}
	return s.st[id]
}

// PeekID returns the current bit pattern of the signal with the given id.
//
func (s *Simulator) PeekID(id netlist.SigID) uint64 { return s.st[id] }

// PeekSigned returns the current value of sig interpreted per its shape.
//
func (s *Simulator) PeekSigned(sig *hdl.Signal) int64 {
	return int64(sext(s.Peek(sig), sig.Shape()))
}

// Poke sets sig to val and reacts immediately: combinational fanout settles
// and any resulting clock edge commits before Poke returns. Poking a
// combinationally driven signal is rejected, its driver would overwrite the
// value in the same delta cycle.
//
func (s *Simulator) Poke(sig *hdl.Signal, val uint64) error {
	id, ok := s.nl.SigOf(sig)
	if !ok {
		return errors.Errorf("signal %q not in netlist", sig.Name())
	}
	if s.drivers[id] != nil {
		return errors.Errorf("signal %q is combinationally driven", sig.Name())
	}
	s.update(id, val)
	return s.react()
}

// schedule queues fn to run at time t. Events at equal times run in
// scheduling order.
//
func (s *Simulator) schedule(t Time, fn func()) {
	s.seq++
	heap.Push(&s.events, &event{t: t, seq: s.seq, fn: fn})
}

func (s *Simulator) pendingWrite(id netlist.SigID, val uint64) {
	s.pending = append(s.pending, write{id: id, val: val})
}

// update writes a masked value into the frame, notifies trace sinks and
// records the change for waiter wakeup. Reports whether the value changed.
//
func (s *Simulator) update(id netlist.SigID, v uint64) bool {
	v &= mask(s.nl.Signals[id].Shape.Width)
	if s.st[id] == v {
		return false
	}
	s.st[id] = v
	if !s.inChanged[id] {
		s.inChanged[id] = true
		s.changed = append(s.changed, id)
	}
	for _, snk := range s.sinks {
		snk.OnChange(id, s.now, v)
	}
	return true
}

// applyPending drains the deferred write queue into the frame. Later writes
// to the same signal win.
//
func (s *Simulator) applyPending() bool {
	any := false
	for _, w := range s.pending {
		if s.update(w.id, w.val) {
			any = true
		}
	}
	s.pending = s.pending[:0]
	return any
}

// settle brings every combinational signal in line with its driver. With an
// acyclic dependency graph a single ordered pass is exact; otherwise the
// drivers are iterated to a fixpoint.
//
func (s *Simulator) settle() (bool, error) {
	if s.combOrder != nil {
		any := false
		for _, id := range s.combOrder {
			if s.update(id, s.drivers[id](s.st)) {
				any = true
			}
		}
		return any, nil
	}
	any := false
	for i := 0; ; i++ {
		if i > s.maxDeltas {
			return any, &DivergenceError{Time: s.now, Deltas: i}
		}
		ch := false
		for _, id := range s.combAll {
			if s.update(id, s.drivers[id](s.st)) {
				ch = true
			}
		}
		if !ch {
			return any, nil
		}
		any = true
	}
}

// detectEdges latches the clock level of every domain and returns the indices
// of domains whose clock just took its active edge.
//
func (s *Simulator) detectEdges() []int {
	var out []int
	for i := range s.doms {
		d := &s.doms[i]
		clk := s.st[d.info.Clk]
		if clk == d.lastClk {
			continue
		}
		d.lastClk = clk
		rising := clk != 0
		if (d.info.CD.ActiveEdge() == hdl.Rising) == rising {
			out = append(out, i)
		}
	}
	return out
}

// commitEdge latches the synchronous signals of one domain. All next values
// are computed from the pre-edge frame before any of them is stored, so
// signals observe each other's old values.
//
func (s *Simulator) commitEdge(di int) {
	d := &s.doms[di]
	for j := range d.sync {
		d.scratch[j] = d.next[j](s.st)
	}
	reset := d.info.CD.ResetKind() == hdl.ResetSync &&
		d.info.Rst != netlist.None && s.st[d.info.Rst] != 0
	for j, id := range d.sync {
		v := d.scratch[j]
		if reset && !s.nl.Signals[id].ResetLess {
			v = uint64(s.nl.Signals[id].Init)
		}
		s.update(id, v)
	}
}

// applyAsyncResets forces the reset value onto every domain with an asserted
// asynchronous reset, independent of its clock.
//
func (s *Simulator) applyAsyncResets() bool {
	any := false
	for i := range s.doms {
		d := &s.doms[i]
		if d.info.CD.ResetKind() != hdl.ResetAsync || d.info.Rst == netlist.None {
			continue
		}
		if s.st[d.info.Rst] == 0 {
			continue
		}
		for _, id := range d.sync {
			if s.nl.Signals[id].ResetLess {
				continue
			}
			if s.update(id, uint64(s.nl.Signals[id].Init)) {
				any = true
			}
		}
	}
	return any
}

// wakeWaiters resumes the processes waiting on an edge that fired or a signal
// that changed during this round, in registration order.
//
func (s *Simulator) wakeWaiters(edges []int) bool {
	var run []*Proc
	for _, di := range edges {
		name := s.doms[di].info.Name
		run = append(run, s.edgeWaiters[name]...)
		delete(s.edgeWaiters, name)
	}
	for _, id := range s.changed {
		s.inChanged[id] = false
		if ws := s.sigWaiters[id]; len(ws) > 0 {
			run = append(run, ws...)
			delete(s.sigWaiters, id)
		}
	}
	s.changed = s.changed[:0]
	for _, p := range run {
		s.resumeProc(p)
	}
	return len(run) > 0
}

// react runs delta cycles until the design is quiescent: deferred writes are
// applied, combinational logic settles, clock edges commit, and woken
// processes get to respond, over and over until nothing moves.
//
func (s *Simulator) react() error {
	for round := 0; ; round++ {
		if round > s.maxDeltas {
			return s.fail(&DivergenceError{Time: s.now, Deltas: round})
		}
		changed := s.applyPending()
		c, err := s.settle()
		if err != nil {
			return s.fail(err)
		}
		changed = changed || c
		edges := s.detectEdges()
		if len(edges) > 0 {
			for _, di := range edges {
				s.commitEdge(di)
			}
			if _, err := s.settle(); err != nil {
				return s.fail(err)
			}
			changed = true
		}
		if s.applyAsyncResets() {
			if _, err := s.settle(); err != nil {
				return s.fail(err)
			}
			changed = true
		}
		woke := s.wakeWaiters(edges)
		if s.failure != nil {
			return s.failure
		}
		if !changed && !woke && len(s.pending) == 0 {
			return nil
		}
	}
}

func (s *Simulator) fail(err error) error {
	if s.failure == nil {
		s.failure = err
	}
	return s.failure
}

// Step advances the timeline to the next event time and reacts to everything
// scheduled there. Reports whether an event was processed.
//
func (s *Simulator) Step() (bool, error) {
	if s.failure != nil {
		return false, s.failure
	}
	if s.events.Len() == 0 {
		return false, nil
	}
	t := s.events[0].t
	s.now = t
	for s.events.Len() > 0 && s.events[0].t == t {
		ev := heap.Pop(&s.events).(*event)
		ev.fn()
	}
	if err := s.react(); err != nil {
		return false, err
	}
	return true, nil
}

// Run processes timeline events until none remain. With a free-running clock
// attached the timeline never drains; bound the run with RunFor or RunUntil,
// or rely on a process failure to stop it.
//
func (s *Simulator) Run() error {
	for {
		ok, err := s.Step()
		if err != nil {
			return err
		}
		if !ok {
			return s.failure
		}
	}
}

// RunUntil processes timeline events up to and including time t, then
// advances the clock to t.
//
func (s *Simulator) RunUntil(t Time) error {
	for s.events.Len() > 0 && s.events[0].t <= t {
		if _, err := s.Step(); err != nil {
			return err
		}
	}
	if s.now < t {
		s.now = t
	}
	return s.failure
}

// RunFor advances the simulation by d time units.
//
func (s *Simulator) RunFor(d Time) error {
	return s.RunUntil(s.now + d)
}

// Close terminates all testbench processes and releases their goroutines.
// The simulator must not be used afterwards.
//
func (s *Simulator) Close() {
	for _, p := range s.procs {
		p.kill()
	}
}
