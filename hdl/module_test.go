// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl_test

import (
	"testing"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
)

func TestModule_domains(t *testing.T) {
	m := hdl.NewModule()
	a := hdl.NewSignal("a", hdl.Unsigned(1))
	m.Comb(hdl.Set(a, hdl.C(1)))
	m.Sync("sync", hdl.Set(a, hdl.C(0)))

	mustPanicDesign(t, func() { m.Sync(hdl.Comb, hdl.Set(a, hdl.C(0))) })
	mustPanicDesign(t, func() { m.Sync("", hdl.Set(a, hdl.C(0))) })

	cd := hdl.NewClockDomain("px")
	m.AddDomain(cd)
	mustPanicDesign(t, func() { m.AddDomain(hdl.NewClockDomain("px")) })
}

func TestNewClockDomain(t *testing.T) {
	cd := hdl.NewClockDomain("video")
	if cd.Clk() == nil || cd.Clk().Name() != "video_clk" {
		t.Errorf("clk = %v", cd.Clk())
	}
	if !cd.Clk().IsResetLess() {
		t.Error("the clock signal must not be affected by reset")
	}
	if cd.Rst() == nil || cd.Rst().Name() != "video_rst" {
		t.Errorf("rst = %v", cd.Rst())
	}
	if cd.ResetKind() != hdl.ResetSync || cd.ActiveEdge() != hdl.Rising {
		t.Error("unexpected defaults")
	}

	nr := hdl.NewClockDomain("nr", hdl.WithoutReset())
	if nr.Rst() != nil || nr.ResetKind() != hdl.ResetNone {
		t.Error("reset-less domain still has a reset")
	}
	fe := hdl.NewClockDomain("fe", hdl.WithFallingEdge(), hdl.WithAsyncReset())
	if fe.ActiveEdge() != hdl.Falling || fe.ResetKind() != hdl.ResetAsync {
		t.Error("options not applied")
	}

	mustPanicDesign(t, func() { hdl.NewClockDomain(hdl.Comb) })
	mustPanicDesign(t, func() { hdl.NewClockDomain("") })
}

func TestFSM(t *testing.T) {
	idle, run := "IDLE", "RUN"
	f := hdl.NewFSM("ctrl", "sync", idle, run)
	if f.StateSignal().Shape() != hdl.Unsigned(1) {
		t.Errorf("state shape = %v", f.StateSignal().Shape())
	}

	start := hdl.NewSignal("start", hdl.Unsigned(1))
	busy := hdl.NewSignal("busy", hdl.Unsigned(1))
	f.State(idle,
		hdl.When(hdl.Bool(start), hdl.Goto(run)),
	)
	f.State(run,
		hdl.Set(busy, hdl.C(1)),
		hdl.Goto(idle),
	)

	m := hdl.NewModule()
	m.AddFSM(f)

	// the FSM compiles to one switch in its domain with transitions rewritten
	frag, err := hdl.Build(hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module { return m }))
	if err != nil {
		t.Fatal(err)
	}
	stmts := frag.Stmts("sync")
	if len(stmts) != 1 {
		t.Fatalf("got %d statements", len(stmts))
	}
	sw, ok := stmts[0].(*hdl.Switch)
	if !ok {
		t.Fatalf("got %T, expected a switch", stmts[0])
	}
	if len(sw.Cases()) != 2 {
		t.Fatalf("got %d cases", len(sw.Cases()))
	}
	// transition in a nested conditional
	cond, ok := sw.Cases()[0].Body[0].(*hdl.Cond)
	if !ok {
		t.Fatalf("got %T, expected a conditional", sw.Cases()[0].Body[0])
	}
	asn, ok := cond.Arms()[0].Body[0].(*hdl.Assign)
	if !ok {
		t.Fatalf("transition not rewritten to an assignment: %T", cond.Arms()[0].Body[0])
	}
	if asn.Target() != f.StateSignal() {
		t.Error("rewritten transition does not target the state register")
	}

	// Ongoing compares against the state index
	if _, ok := f.Ongoing(run).(*hdl.Operator); !ok {
		t.Error("Ongoing should compare the state register at runtime")
	}
}

func TestFSM_errors(t *testing.T) {
	mustPanicDesign(t, func() { hdl.NewFSM("f", hdl.Comb, "A") })
	mustPanicDesign(t, func() { hdl.NewFSM("f", "sync") })
	mustPanicDesign(t, func() { hdl.NewFSM("f", "sync", "A", "A") })
	f := hdl.NewFSM("f", "sync", "A")
	mustPanicDesign(t, func() { f.State("B") })
	mustPanicDesign(t, func() { f.Ongoing("B") })
}
