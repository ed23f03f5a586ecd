// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl_test

import (
	"reflect"
	"testing"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
)

// leaf is a trivially elaboratable component driving one signal.
//
type leaf struct {
	out *hdl.Signal
}

func (l *leaf) Elaborate(*hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	m.Comb(hdl.Set(l.out, hdl.C(1)))
	return m
}

func TestBuild(t *testing.T) {
	out := hdl.NewSignal("out", hdl.Unsigned(1))
	f, err := hdl.Build(&leaf{out: out}, out)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Ports(); len(got) != 1 || got[0] != out {
		t.Errorf("ports = %v", got)
	}
	if f.PathString() != "top" {
		t.Errorf("path = %q", f.PathString())
	}
	if len(f.Stmts(hdl.Comb)) != 1 {
		t.Errorf("got %d comb statements", len(f.Stmts(hdl.Comb)))
	}
}

func TestBuild_errorsAreRecovered(t *testing.T) {
	bad := hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module {
		m := hdl.NewModule()
		m.Comb(hdl.Set(hdl.C(1), hdl.C(2))) // not a valid target, panics
		return m
	})
	if _, err := hdl.Build(bad); err == nil {
		t.Fatal("expected an error")
	}
	nilMod := hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module { return nil })
	if _, err := hdl.Build(nilMod); err == nil {
		t.Fatal("expected an error for a nil module")
	}
}

func TestBuild_hierarchy(t *testing.T) {
	a := hdl.NewSignal("a", hdl.Unsigned(1))
	b := hdl.NewSignal("b", hdl.Unsigned(1))
	c := hdl.NewSignal("c", hdl.Unsigned(1))

	var leafPaths [][]string
	child := func(out *hdl.Signal) hdl.ElaborateFunc {
		return func(ctx *hdl.Context) *hdl.Module {
			leafPaths = append(leafPaths, ctx.Path())
			m := hdl.NewModule()
			m.Comb(hdl.Set(out, hdl.C(1)))
			return m
		}
	}
	top := hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module {
		m := hdl.NewModule()
		m.Submodule("u", child(a))
		m.Submodule("u", child(b)) // same instance name on purpose
		m.Submodule("v", child(c))
		return m
	})

	f, err := hdl.Build(top)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, sub := range f.Subs() {
		names = append(names, sub.Name)
	}
	want := []string{"u", "u$1", "v"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("sub names = %v, expected %v", names, want)
	}
	if got := f.Subs()[1].Frag.PathString(); got != "top.u$1" {
		t.Errorf("path = %q", got)
	}
	wantPaths := [][]string{{"u"}, {"u$1"}, {"v"}}
	if !reflect.DeepEqual(leafPaths, wantPaths) {
		t.Errorf("leaf paths = %v", leafPaths)
	}
}

func TestDomainRenamer(t *testing.T) {
	d := hdl.NewSignal("d", hdl.Unsigned(8))
	q := hdl.NewSignal("q", hdl.Unsigned(8))
	gated := hdl.NewSignal("gated", hdl.Unsigned(1))

	top := hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module {
		m := hdl.NewModule()
		m.Sync("sync", hdl.Set(q, d))
		m.Comb(hdl.Set(gated, hdl.AndV(hdl.ClockSignal("sync"), hdl.ResetSignal("sync"))))
		return m
	})
	f, err := hdl.Build(top)
	if err != nil {
		t.Fatal(err)
	}

	n := hdl.DomainRenamer{"sync": "video"}.Apply(f)

	if got := n.Stmts("video"); len(got) != 1 {
		t.Fatalf("renamed domain has %d statements", len(got))
	}
	if got := n.Stmts("sync"); len(got) != 0 {
		t.Fatalf("old domain still has %d statements", len(got))
	}
	// the original is untouched
	if got := f.Stmts("sync"); len(got) != 1 {
		t.Fatal("original fragment modified")
	}
	// unreferenced statements are shared, not copied
	if f.Stmts("sync")[0] != n.Stmts("video")[0] {
		t.Error("unchanged statement was copied")
	}

	// clock/reset references follow the rename
	asn := n.Stmts(hdl.Comb)[0].(*hdl.Assign)
	op := asn.Source().(*hdl.Operator)
	if ref, ok := op.Operands()[0].(*hdl.ClockSignalRef); !ok || ref.Domain() != "video" {
		t.Errorf("clock ref = %v", op.Operands()[0])
	}
	if ref, ok := op.Operands()[1].(*hdl.ResetSignalRef); !ok || ref.Domain() != "video" {
		t.Errorf("reset ref = %v", op.Operands()[1])
	}

	mustPanicDesign(t, func() { hdl.DomainRenamer{hdl.Comb: "x"}.Apply(f) })
	mustPanicDesign(t, func() { hdl.DomainRenamer{"sync": hdl.Comb}.Apply(f) })
}

// Renaming a domain onto one that already has statements merges the two
// lists instead of replacing one with the other.
//
func TestDomainRenamer_mergesDomains(t *testing.T) {
	x := hdl.NewSignal("x", hdl.Unsigned(1))
	y := hdl.NewSignal("y", hdl.Unsigned(1))

	cdB := hdl.NewClockDomain("b", hdl.WithAsyncReset())
	top := hdl.ElaborateFunc(func(*hdl.Context) *hdl.Module {
		m := hdl.NewModule()
		m.AddDomain(cdB)
		m.Sync("a", hdl.Set(x, hdl.C(1)))
		m.Sync("b", hdl.Set(y, hdl.C(1)))
		return m
	})
	f, err := hdl.Build(top)
	if err != nil {
		t.Fatal(err)
	}

	n := hdl.DomainRenamer{"a": "b"}.Apply(f)

	got := n.Stmts("b")
	if len(got) != 2 {
		t.Fatalf("merged domain has %d statements, expected 2", len(got))
	}
	// first-use order: a's statement was added first
	if got[0] != f.Stmts("a")[0] || got[1] != f.Stmts("b")[0] {
		t.Error("merged statements out of order")
	}
	if len(n.Stmts("a")) != 0 {
		t.Error("old domain still has statements")
	}
	if order := n.DomainOrder(); len(order) != 1 || order[0] != "b" {
		t.Errorf("domain order = %v", order)
	}
	// the target domain keeps its own definition
	if n.Domains()["b"] != cdB {
		t.Error("merged domain lost the target's definition")
	}
	if len(f.Stmts("a")) != 1 || len(f.Stmts("b")) != 1 {
		t.Fatal("original fragment modified")
	}
}
