// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package sim

import (
	"github.com/pkg/errors"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
)

// A ProcFn is the body of a testbench process. It runs on its own goroutine
// but in strict alternation with the simulation kernel: while the body runs,
// the kernel is parked, so the body may freely inspect simulator state
// through its Proc. Returning a non-nil error aborts the run.
//
type ProcFn func(p *Proc) error

type resumeMsg struct {
	kill bool
}

// errKilled unwinds a process goroutine that is terminated from outside.
//
var errKilled = errors.New("process killed")

// A Proc is the handle a testbench process uses to interact with the
// simulation: reading and writing signals, waiting for time to pass or for
// clock edges. All methods must be called from the process's own body.
//
type Proc struct {
	name   string
	domain string
	s      *Simulator

	resume chan resumeMsg
	yield  chan struct{}
	done   bool
	err    error
}

// AddProcess registers a testbench process. The body starts suspended and is
// first resumed at the current simulation time.
//
func (s *Simulator) AddProcess(name string, fn ProcFn) {
	s.addProc(name, "", fn)
}

// AddSyncProcess registers a process bound to a clock domain: its Tick method
// waits for that domain's active edge. The body is first resumed at the
// current simulation time, before any edge.
//
func (s *Simulator) AddSyncProcess(name, domain string, fn ProcFn) {
	s.addProc(name, domain, fn)
}

func (s *Simulator) addProc(name, domain string, fn ProcFn) {
	p := &Proc{
		name:   name,
		domain: domain,
		s:      s,
		resume: make(chan resumeMsg),
		yield:  make(chan struct{}),
	}
	s.procs = append(s.procs, p)
	go p.run(fn)
	s.schedule(s.now, func() { s.resumeProc(p) })
}

func (p *Proc) run(fn ProcFn) {
	msg := <-p.resume
	if !msg.kill {
		func() {
			defer func() {
				switch r := recover(); {
				case r == nil:
				case r == errKilled:
				default:
					p.err = errors.Errorf("panic: %v", r)
				}
			}()
			p.err = fn(p)
		}()
	}
	p.done = true
	p.yield <- struct{}{}
}

// resumeProc hands control to p and blocks until it suspends again or
// finishes. A process failure is latched as the simulation failure.
//
func (s *Simulator) resumeProc(p *Proc) {
	if p.done {
		return
	}
	p.resume <- resumeMsg{}
	<-p.yield
	if p.err != nil && s.failure == nil {
		s.failure = &ProcessError{Name: p.name, Err: p.err}
	}
}

func (p *Proc) kill() {
	if p.done {
		return
	}
	p.resume <- resumeMsg{kill: true}
	<-p.yield
}

// suspend parks the body and hands control back to the kernel.
//
func (p *Proc) suspend() {
	p.yield <- struct{}{}
	msg := <-p.resume
	if msg.kill {
		panic(errKilled)
	}
}

// Name returns the process name given at registration.
//
func (p *Proc) Name() string { return p.name }

// Now returns the current simulation time.
//
func (p *Proc) Now() Time { return p.s.now }

// Peek returns the current bit pattern of sig.
//
func (p *Proc) Peek(sig *hdl.Signal) uint64 { return p.s.Peek(sig) }

// PeekSigned returns the current value of sig interpreted per its shape.
//
func (p *Proc) PeekSigned(sig *hdl.Signal) int64 { return p.s.PeekSigned(sig) }

// Set schedules a write of val to sig. The write is deferred: it takes effect
// in the next delta cycle, after the process suspends, so a value written
// just before an edge is latched by that edge but a value read back
// immediately is still the old one. Writes race with nothing; the last write
// to a signal in a round wins.
//
func (p *Proc) Set(sig *hdl.Signal, val uint64) error {
	id, ok := p.s.nl.SigOf(sig)
	if !ok {
		return errors.Errorf("signal %q not in netlist", sig.Name())
	}
	if p.s.drivers[id] != nil {
		return errors.Errorf("signal %q is combinationally driven", sig.Name())
	}
	p.s.pendingWrite(id, val)
	return nil
}

// Delay suspends the process for d time units.
//
func (p *Proc) Delay(d Time) {
	s := p.s
	s.schedule(s.now+d, func() { s.resumeProc(p) })
	p.suspend()
}

// WaitEdge suspends the process until the named domain's next active clock
// edge has committed and settled.
//
func (p *Proc) WaitEdge(domain string) {
	p.s.edgeWaiters[domain] = append(p.s.edgeWaiters[domain], p)
	p.suspend()
}

// Tick waits one active edge of the process's bound domain.
//
func (p *Proc) Tick() {
	d := p.domain
	if d == "" {
		d = "sync"
	}
	p.WaitEdge(d)
}

// WaitChange suspends the process until sig next changes value.
//
func (p *Proc) WaitChange(sig *hdl.Signal) error {
	id, ok := p.s.nl.SigOf(sig)
	if !ok {
		return errors.Errorf("signal %q not in netlist", sig.Name())
	}
	p.s.sigWaiters[id] = append(p.s.sigWaiters[id], p)
	p.suspend()
	return nil
}

// WaitCond suspends the process until sig satisfies pred. The predicate is
// checked on the current value first, so a condition that already holds does
// not wait.
//
func (p *Proc) WaitCond(sig *hdl.Signal, pred func(uint64) bool) error {
	id, ok := p.s.nl.SigOf(sig)
	if !ok {
		return errors.Errorf("signal %q not in netlist", sig.Name())
	}
	for !pred(p.s.st[id]) {
		p.s.sigWaiters[id] = append(p.s.sigWaiters[id], p)
		p.suspend()
	}
	return nil
}
