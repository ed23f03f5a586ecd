// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package sim

import (
	"math/bits"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/netlist"
)

// An evalFn computes the value of one expression from the current signal
// frame, returning a bit pattern masked to the expression's width.
//
type evalFn func(st []uint64) uint64

func mask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

// sext widens a masked bit pattern of the given shape to a 64-bit
// two's-complement pattern.
//
func sext(b uint64, s hdl.Shape) uint64 {
	if s.Signed && s.Width < 64 && b&(1<<uint(s.Width-1)) != 0 {
		return b | ^mask(s.Width)
	}
	return b
}

// compile translates a driver expression into a closure over signal ids.
// Stored frame values are always masked to their signal's width, so the
// closures never re-mask reads. The closures must agree bit for bit with
// hdl.Eval; the equivalence is checked by the tests in simtest.
//
func compile(nl *netlist.Netlist, v hdl.Value) evalFn {
	s := v.Shape()
	switch t := v.(type) {
	case *hdl.Const:
		c := t.Bits()
		return func([]uint64) uint64 { return c }
	case *hdl.Signal:
		id, ok := nl.SigOf(t)
		if !ok {
			panic(&hdl.DesignError{Msg: "signal " + t.Name() + " not in netlist"})
		}
		return func(st []uint64) uint64 { return st[id] }
	case *hdl.Slice:
		inner := compile(nl, t.Value())
		start, _ := t.Bounds()
		shift, m := uint(start), mask(s.Width)
		return func(st []uint64) uint64 { return (inner(st) >> shift) & m }
	case *hdl.Part:
		inner, offset := compile(nl, t.Value()), compile(nl, t.Offset())
		stride, m := uint64(t.Stride()), mask(t.Width())
		return func(st []uint64) uint64 {
			off := offset(st)
			if off >= 64 {
				return 0
			}
			if off *= stride; off >= 64 {
				return 0
			}
			return (inner(st) >> off) & m
		}
	case *hdl.Cat:
		parts := make([]evalFn, len(t.Parts()))
		shifts := make([]uint, len(t.Parts()))
		shift := uint(0)
		for i, p := range t.Parts() {
			parts[i] = compile(nl, p)
			shifts[i] = shift
			shift += uint(p.Shape().Width)
		}
		return func(st []uint64) uint64 {
			var r uint64
			for i, p := range parts {
				r |= p(st) << shifts[i]
			}
			return r
		}
	case *hdl.Repl:
		inner := compile(nl, t.Value())
		w, n := uint(t.Value().Shape().Width), t.Count()
		return func(st []uint64) uint64 {
			b := inner(st)
			var r uint64
			for i := 0; i < n; i++ {
				r |= b << (uint(i) * w)
			}
			return r
		}
	case *hdl.Operator:
		f := compileOp(nl, t)
		m := mask(s.Width)
		return func(st []uint64) uint64 { return f(st) & m }
	default:
		panic(&hdl.DesignError{Msg: "cannot compile value " + v.String()})
	}
}

// compileOp builds the closure for one operator node. Operands are widened to
// 64-bit two's-complement patterns up front so that one 64-bit operation is
// exact for every operator.
//
func compileOp(nl *netlist.Netlist, o *hdl.Operator) evalFn {
	ops := o.Operands()
	x := make([]evalFn, len(ops))
	signedCmp := false
	for i, op := range ops {
		f, s := compile(nl, op), op.Shape()
		if s.Signed && s.Width < 64 {
			sign, m := uint64(1)<<uint(s.Width-1), mask(s.Width)
			x[i] = func(st []uint64) uint64 {
				b := f(st)
				if b&sign != 0 {
					return b | ^m
				}
				return b
			}
		} else {
			x[i] = f
		}
		if s.Signed {
			signedCmp = true
		}
	}
	b2u := func(c bool) uint64 {
		if c {
			return 1
		}
		return 0
	}

	switch o.Op() {
	case hdl.OpAdd:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return a(st) + b(st) }
	case hdl.OpSub:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return a(st) - b(st) }
	case hdl.OpMul:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return a(st) * b(st) }
	case hdl.OpDiv:
		a, b := x[0], x[1]
		if signedCmp {
			return func(st []uint64) uint64 {
				d := b(st)
				if d == 0 {
					return 0
				}
				return uint64(floorDiv(int64(a(st)), int64(d)))
			}
		}
		return func(st []uint64) uint64 {
			d := b(st)
			if d == 0 {
				return 0
			}
			return a(st) / d
		}
	case hdl.OpMod:
		a, b := x[0], x[1]
		if signedCmp {
			return func(st []uint64) uint64 {
				d := b(st)
				if d == 0 {
					return 0
				}
				return uint64(floorMod(int64(a(st)), int64(d)))
			}
		}
		return func(st []uint64) uint64 {
			d := b(st)
			if d == 0 {
				return 0
			}
			return a(st) % d
		}
	case hdl.OpNeg:
		a := x[0]
		return func(st []uint64) uint64 { return -a(st) }
	case hdl.OpInv:
		a := x[0]
		return func(st []uint64) uint64 { return ^a(st) }
	case hdl.OpAnd:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return a(st) & b(st) }
	case hdl.OpOr:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return a(st) | b(st) }
	case hdl.OpXor:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return a(st) ^ b(st) }
	case hdl.OpShl:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 {
			n := b(st)
			if n >= 64 {
				return 0
			}
			return a(st) << n
		}
	case hdl.OpShr:
		a, b := x[0], x[1]
		if ops[0].Shape().Signed {
			return func(st []uint64) uint64 {
				n := b(st)
				if n >= 64 {
					return uint64(int64(a(st)) >> 63)
				}
				return uint64(int64(a(st)) >> n)
			}
		}
		return func(st []uint64) uint64 {
			n := b(st)
			if n >= 64 {
				return 0
			}
			return a(st) >> n
		}
	case hdl.OpEq:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return b2u(a(st) == b(st)) }
	case hdl.OpNe:
		a, b := x[0], x[1]
		return func(st []uint64) uint64 { return b2u(a(st) != b(st)) }
	case hdl.OpLt:
		a, b := x[0], x[1]
		if signedCmp {
			return func(st []uint64) uint64 { return b2u(int64(a(st)) < int64(b(st))) }
		}
		return func(st []uint64) uint64 { return b2u(a(st) < b(st)) }
	case hdl.OpLe:
		a, b := x[0], x[1]
		if signedCmp {
			return func(st []uint64) uint64 { return b2u(int64(a(st)) <= int64(b(st))) }
		}
		return func(st []uint64) uint64 { return b2u(a(st) <= b(st)) }
	case hdl.OpGt:
		a, b := x[0], x[1]
		if signedCmp {
			return func(st []uint64) uint64 { return b2u(int64(a(st)) > int64(b(st))) }
		}
		return func(st []uint64) uint64 { return b2u(a(st) > b(st)) }
	case hdl.OpGe:
		a, b := x[0], x[1]
		if signedCmp {
			return func(st []uint64) uint64 { return b2u(int64(a(st)) >= int64(b(st))) }
		}
		return func(st []uint64) uint64 { return b2u(a(st) >= b(st)) }
	case hdl.OpBool, hdl.OpAny:
		a, m := x[0], mask(ops[0].Shape().Width)
		return func(st []uint64) uint64 { return b2u(a(st)&m != 0) }
	case hdl.OpAll:
		a, m := x[0], mask(ops[0].Shape().Width)
		return func(st []uint64) uint64 { return b2u(a(st)&m == m) }
	case hdl.OpPar:
		a, m := x[0], mask(ops[0].Shape().Width)
		return func(st []uint64) uint64 { return uint64(bits.OnesCount64(a(st)&m) & 1) }
	case hdl.OpUns, hdl.OpSgn:
		return x[0]
	case hdl.OpMux:
		sel, a, b := x[0], x[1], x[2]
		m := mask(ops[0].Shape().Width)
		return func(st []uint64) uint64 {
			if sel(st)&m != 0 {
				return a(st)
			}
			return b(st)
		}
	default:
		panic(&hdl.DesignError{Msg: "cannot compile operator " + o.Op().String()})
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}
