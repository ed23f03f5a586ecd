// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package sim_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/netlist"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/sim"
)

// lowerModule builds and lowers a single module for simulation.
//
func lowerModule(t *testing.T, fn func(m *hdl.Module), ports ...*hdl.Signal) *netlist.Netlist {
	t.Helper()
	f, err := hdl.Build(hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module {
		m := hdl.NewModule()
		fn(m)
		return m
	}), ports...)
	if err != nil {
		t.Fatal(err)
	}
	nl, err := netlist.Lower(f)
	if err != nil {
		t.Fatal(err)
	}
	return nl
}

func newSim(t *testing.T, nl *netlist.Netlist, opts ...sim.Option) *sim.Simulator {
	t.Helper()
	s, err := sim.New(nl, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// TestTimer drives a reloading down-counter and samples it around every
// active edge: the initial value, then the post-edge values wrapping through
// the reload.
//
func TestTimer(t *testing.T) {
	timer := hdl.NewSignal("timer", hdl.Unsigned(4))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Sync("sync",
			hdl.Set(timer, hdl.Sub(timer, hdl.C(1))),
			hdl.When(hdl.Eq(timer, hdl.C(0)),
				hdl.Set(timer, hdl.C(10)),
			),
		)
	})
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(10, "sync"); err != nil {
		t.Fatal(err)
	}

	var got []uint64
	s.AddSyncProcess("sampler", "sync", func(p *sim.Proc) error {
		got = append(got, p.Peek(timer))
		for i := 0; i < 13; i++ {
			p.Tick()
			got = append(got, p.Peek(timer))
		}
		return nil
	})

	if err := s.RunFor(200); err != nil {
		t.Fatal(err)
	}
	want := []uint64{0, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 10, 9}
	if len(got) != len(want) {
		t.Fatalf("sampled %d values, expected %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, expected %d (all: %v)", i, got[i], want[i], got)
		}
	}
}

// TestSwap checks that synchronous signals observe each other's pre-edge
// values: two registers assigned to each other swap cleanly.
//
func TestSwap(t *testing.T) {
	a := hdl.NewSignal("a", hdl.Unsigned(4), hdl.WithInit(3))
	b := hdl.NewSignal("b", hdl.Unsigned(4), hdl.WithInit(12))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Sync("sync",
			hdl.Set(a, b),
			hdl.Set(b, a),
		)
	})
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(2, "sync"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := s.RunFor(2); err != nil {
			t.Fatal(err)
		}
		wa, wb := uint64(3), uint64(12)
		if i%2 == 0 {
			wa, wb = wb, wa
		}
		if s.Peek(a) != wa || s.Peek(b) != wb {
			t.Fatalf("after edge %d: a=%d b=%d, expected a=%d b=%d",
				i+1, s.Peek(a), s.Peek(b), wa, wb)
		}
	}
}

// TestDeferredWrites checks testbench write semantics: a write is invisible
// until the process suspends, then takes effect in the next delta cycle.
//
func TestDeferredWrites(t *testing.T) {
	d := hdl.NewSignal("d", hdl.Unsigned(8))
	q := hdl.NewSignal("q", hdl.Unsigned(8))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(q, hdl.Add(d, hdl.C(0, hdl.Unsigned(8)))))
	})
	s := newSim(t, nl)
	defer s.Close()

	s.AddProcess("tb", func(p *sim.Proc) error {
		if err := p.Set(d, 5); err != nil {
			return err
		}
		if v := p.Peek(d); v != 0 {
			return errors.Errorf("write visible before suspending: d = %d", v)
		}
		p.Delay(1)
		if v := p.Peek(d); v != 5 {
			return errors.Errorf("write lost: d = %d", v)
		}
		if v := p.Peek(q); v != 5 {
			return errors.Errorf("comb fanout not settled: q = %d", v)
		}
		return nil
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncReset(t *testing.T) {
	q := hdl.NewSignal("q", hdl.Unsigned(8), hdl.WithInit(3))
	free := hdl.NewSignal("free", hdl.Unsigned(8), hdl.ResetLess())
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Sync("sync",
			hdl.Set(q, hdl.Add(q, hdl.C(1))),
			hdl.Set(free, hdl.Add(free, hdl.C(1))),
		)
	})
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(2, "sync"); err != nil {
		t.Fatal(err)
	}

	if err := s.RunFor(6); err != nil { // three edges
		t.Fatal(err)
	}
	if s.Peek(q) != 6 || s.Peek(free) != 3 {
		t.Fatalf("q=%d free=%d after 3 edges", s.Peek(q), s.Peek(free))
	}

	rst := nl.Domains[0].CD.Rst()
	if err := s.Poke(rst, 1); err != nil {
		t.Fatal(err)
	}
	// reset is synchronous: nothing happens until the next edge
	if s.Peek(q) != 6 {
		t.Fatalf("q = %d immediately after asserting reset", s.Peek(q))
	}
	if err := s.RunFor(2); err != nil {
		t.Fatal(err)
	}
	if s.Peek(q) != 3 {
		t.Fatalf("q = %d after reset edge, expected the initial value 3", s.Peek(q))
	}
	// reset-less signals keep counting
	if s.Peek(free) != 4 {
		t.Fatalf("free = %d after reset edge, expected 4", s.Peek(free))
	}
}

func TestAsyncReset(t *testing.T) {
	q := hdl.NewSignal("q", hdl.Unsigned(8), hdl.WithInit(7))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.AddDomain(hdl.NewClockDomain("fast", hdl.WithAsyncReset()))
		m.Sync("fast", hdl.Set(q, hdl.Add(q, hdl.C(1))))
	})
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(2, "fast"); err != nil {
		t.Fatal(err)
	}
	if err := s.RunFor(4); err != nil {
		t.Fatal(err)
	}
	if s.Peek(q) != 9 {
		t.Fatalf("q = %d after 2 edges", s.Peek(q))
	}

	d, _ := nl.DomainByName("fast")
	if err := s.Poke(d.CD.Rst(), 1); err != nil {
		t.Fatal(err)
	}
	// no clock edge needed
	if s.Peek(q) != 7 {
		t.Fatalf("q = %d right after asserting an async reset, expected 7", s.Peek(q))
	}
}

func TestFallingEdgeDomain(t *testing.T) {
	q := hdl.NewSignal("q", hdl.Unsigned(8))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.AddDomain(hdl.NewClockDomain("neg", hdl.WithFallingEdge()))
		m.Sync("neg", hdl.Set(q, hdl.Add(q, hdl.C(1))))
	})
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(10, "neg"); err != nil {
		t.Fatal(err)
	}
	// clock rises at t=5: not the active edge
	if err := s.RunFor(6); err != nil {
		t.Fatal(err)
	}
	if s.Peek(q) != 0 {
		t.Fatalf("q = %d after the rising edge of a falling-edge domain", s.Peek(q))
	}
	// falls at t=10: commits
	if err := s.RunFor(5); err != nil {
		t.Fatal(err)
	}
	if s.Peek(q) != 1 {
		t.Fatalf("q = %d after the falling edge, expected 1", s.Peek(q))
	}
}

func TestDivergence(t *testing.T) {
	a := hdl.NewSignal("a", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(a, hdl.Inv(a))) // oscillates forever
	})
	_, err := sim.New(nl, sim.WithMaxDeltas(50))
	if err == nil {
		t.Fatal("expected a divergence error")
	}
	var derr *sim.DivergenceError
	if !errors.As(err, &derr) {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestStableCycle(t *testing.T) {
	// cyclic in the dependency graph but immediately consistent
	a := hdl.NewSignal("a", hdl.Unsigned(1))
	b := hdl.NewSignal("b", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(
			hdl.Set(a, b),
			hdl.Set(b, a),
		)
	})
	if nl.Order != nil {
		t.Fatal("expected no static order for a cycle")
	}
	s := newSim(t, nl)
	defer s.Close()
	if s.Peek(a) != 0 || s.Peek(b) != 0 {
		t.Error("stable cycle did not settle")
	}
}

func TestPoke(t *testing.T) {
	in := hdl.NewSignal("in", hdl.Unsigned(8))
	out := hdl.NewSignal("out", hdl.Unsigned(8))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(out, hdl.Inv(in)))
	}, in, out)
	s := newSim(t, nl)
	defer s.Close()

	if err := s.Poke(in, 0x0f); err != nil {
		t.Fatal(err)
	}
	if s.Peek(out) != 0xf0 {
		t.Fatalf("out = %#x, expected 0xf0", s.Peek(out))
	}
	// driven signals cannot be forced
	if err := s.Poke(out, 0); err == nil {
		t.Fatal("expected an error poking a combinationally driven signal")
	}
}

func TestProcessFailure(t *testing.T) {
	a := hdl.NewSignal("a", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(a, hdl.C(1)))
	})
	s := newSim(t, nl)
	defer s.Close()
	s.AddProcess("boom", func(p *sim.Proc) error {
		return errors.New("exploded")
	})
	err := s.Run()
	var perr *sim.ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("got %T: %v", err, err)
	}
	if perr.Name != "boom" {
		t.Errorf("failing process = %q", perr.Name)
	}
}

func TestProcessPanicBecomesFailure(t *testing.T) {
	a := hdl.NewSignal("a", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(a, hdl.C(1)))
	})
	s := newSim(t, nl)
	defer s.Close()
	s.AddProcess("panicky", func(p *sim.Proc) error {
		panic("oops")
	})
	var perr *sim.ProcessError
	if err := s.Run(); !errors.As(err, &perr) {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestWaitChange(t *testing.T) {
	d := hdl.NewSignal("d", hdl.Unsigned(8))
	var seen uint64
	nl := lowerModule(t, func(m *hdl.Module) {
		q := hdl.NewSignal("q", hdl.Unsigned(8))
		m.Comb(hdl.Set(q, d))
	})
	s := newSim(t, nl)
	defer s.Close()

	s.AddProcess("watcher", func(p *sim.Proc) error {
		if err := p.WaitChange(d); err != nil {
			return err
		}
		seen = p.Peek(d)
		return nil
	})
	s.AddProcess("driver", func(p *sim.Proc) error {
		p.Delay(3)
		return p.Set(d, 42)
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if seen != 42 {
		t.Errorf("watcher saw %d, expected 42", seen)
	}
	if s.Now() != 3 {
		t.Errorf("now = %d, expected 3", s.Now())
	}
}

// A change committed while settling the power-on state must not satisfy a
// wait registered afterwards.
//
func TestWaitChange_ignoresPowerOnSettle(t *testing.T) {
	z := hdl.NewSignal("z", hdl.Unsigned(1))
	q := hdl.NewSignal("q", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(q, hdl.Inv(z))) // settles 0 -> 1 at power-on
	})
	s := newSim(t, nl)
	defer s.Close()

	woken := false
	s.AddProcess("watcher", func(p *sim.Proc) error {
		if err := p.WaitChange(q); err != nil {
			return err
		}
		woken = true
		return nil
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if woken {
		t.Fatal("woken by a change that predates the wait")
	}
	if err := s.Poke(z, 1); err != nil { // q goes 1 -> 0
		t.Fatal(err)
	}
	if !woken {
		t.Fatal("not woken by a change after the wait")
	}
}

func TestWaitCond(t *testing.T) {
	d := hdl.NewSignal("d", hdl.Unsigned(8))
	nl := lowerModule(t, func(m *hdl.Module) {
		q := hdl.NewSignal("q", hdl.Unsigned(8))
		m.Comb(hdl.Set(q, d))
	})
	s := newSim(t, nl)
	defer s.Close()

	var at sim.Time
	s.AddProcess("watcher", func(p *sim.Proc) error {
		if err := p.WaitCond(d, func(v uint64) bool { return v >= 3 }); err != nil {
			return err
		}
		at = p.Now()
		// a condition that already holds does not wait
		if err := p.WaitCond(d, func(v uint64) bool { return v != 0 }); err != nil {
			return err
		}
		if p.Now() != at {
			return errors.New("waited for a condition that already held")
		}
		return nil
	})
	s.AddProcess("driver", func(p *sim.Proc) error {
		for i := uint64(1); i <= 5; i++ {
			p.Delay(2)
			if err := p.Set(d, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if at != 6 {
		t.Errorf("condition met at %d, expected 6", at)
	}
}

func TestPeekSigned(t *testing.T) {
	a := hdl.NewSignal("a", hdl.Signed(4))
	nl := lowerModule(t, func(m *hdl.Module) {
		b := hdl.NewSignal("b", hdl.Signed(4))
		m.Comb(hdl.Set(b, a))
	}, a)
	s := newSim(t, nl)
	defer s.Close()
	if err := s.Poke(a, 0xf); err != nil {
		t.Fatal(err)
	}
	if got := s.PeekSigned(a); got != -1 {
		t.Errorf("PeekSigned = %d, expected -1", got)
	}
}

func TestRecorder(t *testing.T) {
	timer := hdl.NewSignal("timer", hdl.Unsigned(3))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Sync("sync", hdl.Set(timer, hdl.Add(timer, hdl.C(1)))) // wraps at 8
	})
	rec := &sim.Recorder{}
	s := newSim(t, nl, sim.WithSink(rec))
	defer s.Close()
	if err := s.AddClock(2, "sync"); err != nil {
		t.Fatal(err)
	}
	if err := s.RunFor(6); err != nil {
		t.Fatal(err)
	}

	id, _ := nl.SigOf(timer)
	ch := rec.Of(id)
	want := []struct {
		t sim.Time
		v uint64
	}{{1, 1}, {3, 2}, {5, 3}}
	if len(ch) != len(want) {
		t.Fatalf("recorded %d changes, expected %d: %v", len(ch), len(want), ch)
	}
	for i, w := range want {
		if ch[i].T != w.t || ch[i].Val != w.v {
			t.Errorf("change %d = %+v, expected t=%d val=%d", i, ch[i], w.t, w.v)
		}
	}
}

func TestClockPhase(t *testing.T) {
	q := hdl.NewSignal("q", hdl.Unsigned(4))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Sync("sync", hdl.Set(q, hdl.Add(q, hdl.C(1))))
	})
	s := newSim(t, nl)
	defer s.Close()
	// first rising edge lands at the phase offset instead of half a period
	if err := s.AddClock(10, "sync", sim.WithPhase(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.RunFor(2); err != nil {
		t.Fatal(err)
	}
	if s.Peek(q) != 1 {
		t.Fatalf("q = %d after the phase-shifted first edge", s.Peek(q))
	}
}

func TestAddClock_errors(t *testing.T) {
	q := hdl.NewSignal("q", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Sync("sync", hdl.Set(q, hdl.C(1)))
	})
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(10, "nope"); err == nil {
		t.Error("expected an error for an unknown domain")
	}
	if err := s.AddClock(1, "sync"); err == nil {
		t.Error("expected an error for a degenerate period")
	}
	if err := s.AddClock(10, "sync"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddClock(10, "sync"); err == nil {
		t.Error("expected an error for a second clock on the same domain")
	}
}

// TestFSM runs a two-state machine end to end: a strobe FSM that pulses its
// output every other cycle once started.
//
func TestFSM(t *testing.T) {
	start := hdl.NewSignal("start", hdl.Unsigned(1))
	led := hdl.NewSignal("led", hdl.Unsigned(1))

	f := hdl.NewFSM("ctrl", "sync", "OFF", "ON")
	f.State("OFF",
		hdl.When(hdl.Bool(start), hdl.Goto("ON")),
	)
	f.State("ON",
		hdl.Goto("OFF"),
	)

	frag, err := hdl.Build(hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module {
		m := hdl.NewModule()
		m.AddFSM(f)
		m.Comb(hdl.Set(led, f.Ongoing("ON")))
		return m
	}), start)
	if err != nil {
		t.Fatal(err)
	}
	nl, err := netlist.Lower(frag)
	if err != nil {
		t.Fatal(err)
	}
	s := newSim(t, nl)
	defer s.Close()
	if err := s.AddClock(2, "sync"); err != nil {
		t.Fatal(err)
	}
	if err := s.Poke(start, 1); err != nil {
		t.Fatal(err)
	}

	want := []uint64{1, 0, 1, 0, 1, 0}
	for i, w := range want {
		if err := s.RunFor(2); err != nil {
			t.Fatal(err)
		}
		if got := s.Peek(led); got != w {
			t.Fatalf("led = %d after edge %d, expected %d", got, i+1, w)
		}
	}
}

func TestStepAndRun(t *testing.T) {
	q := hdl.NewSignal("q", hdl.Unsigned(1))
	nl := lowerModule(t, func(m *hdl.Module) {
		m.Comb(hdl.Set(q, hdl.C(1)))
	})
	s := newSim(t, nl)
	defer s.Close()

	// empty timeline
	if ok, err := s.Step(); ok || err != nil {
		t.Fatalf("Step on an empty timeline = %v, %v", ok, err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	// RunUntil advances time even with nothing scheduled
	if err := s.RunUntil(100); err != nil {
		t.Fatal(err)
	}
	if s.Now() != 100 {
		t.Errorf("now = %d", s.Now())
	}
}
