// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import "math/bits"

// allConst reports whether v is built purely from constants, concatenations
// and operators, with no signal or domain reference anywhere in the tree.
//
func allConst(v Value) bool {
	switch t := v.(type) {
	case *Const:
		return true
	case *Operator:
		for _, o := range t.operands {
			if !allConst(o) {
				return false
			}
		}
		return true
	case *Slice:
		return allConst(t.value)
	case *Part:
		return allConst(t.value) && allConst(t.offset)
	case *Cat:
		for _, p := range t.parts {
			if !allConst(p) {
				return false
			}
		}
		return true
	case *Repl:
		return allConst(t.value)
	default:
		return false
	}
}

func evalConst(v Value) uint64 {
	return Eval(v, nil)
}

// ext returns the bit pattern b of shape s widened to 64 bits: sign-extended
// for signed shapes, zero-extended otherwise.
//
func ext(b uint64, s Shape) uint64 {
	return uint64(fromBits(b, s))
}

// Eval evaluates the expression tree v, reading signal bits through get, and
// returns the result as a bit pattern masked to v's shape. It is the
// reference semantics the ahead-of-time compiler must reproduce bit for bit.
//
// Unresolved domain clock/reset references cannot be evaluated and panic
// with a DesignError; they only survive until lowering.
//
func Eval(v Value, get func(*Signal) uint64) uint64 {
	s := v.Shape()
	switch t := v.(type) {
	case *Const:
		return t.bits
	case *Signal:
		if get == nil {
			panic(designErrorf("cannot evaluate signal %q without a signal reader", t.name))
		}
		return get(t) & mask(t.shape.Width)
	case *Slice:
		return (Eval(t.value, get) >> uint(t.start)) & mask(s.Width)
	case *Part:
		off := Eval(t.offset, get)
		if off >= 64 {
			return 0
		}
		if off *= uint64(t.stride); off >= 64 {
			return 0
		}
		return (Eval(t.value, get) >> off) & mask(t.width)
	case *Cat:
		var r uint64
		shift := uint(0)
		for _, p := range t.parts {
			r |= Eval(p, get) << shift
			shift += uint(p.Shape().Width)
		}
		return r
	case *Repl:
		b := Eval(t.value, get)
		w := uint(t.value.Shape().Width)
		var r uint64
		for i := 0; i < t.count; i++ {
			r |= b << (uint(i) * w)
		}
		return r
	case *Operator:
		return evalOp(t, get) & mask(s.Width)
	case *ClockSignalRef:
		panic(designErrorf("unresolved clock reference for domain %q", t.domain))
	case *ResetSignalRef:
		panic(designErrorf("unresolved reset reference for domain %q", t.domain))
	default:
		panic(designErrorf("cannot evaluate value %v", v))
	}
}

func evalOp(o *Operator, get func(*Signal) uint64) uint64 {
	// Widen each operand to a 64-bit two's-complement pattern first. With
	// every result shape bounded by MaxWidth, 64-bit arithmetic is exact for
	// all operators below.
	x := make([]uint64, len(o.operands))
	for i, op := range o.operands {
		x[i] = ext(Eval(op, get), op.Shape())
	}
	signedCmp := false
	for _, op := range o.operands {
		if op.Shape().Signed {
			signedCmp = true
		}
	}

	b2u := func(c bool) uint64 {
		if c {
			return 1
		}
		return 0
	}

	switch o.op {
	case OpAdd:
		return x[0] + x[1]
	case OpSub:
		return x[0] - x[1]
	case OpMul:
		return x[0] * x[1]
	case OpDiv:
		if x[1] == 0 {
			return 0
		}
		if signedCmp {
			return uint64(floorDiv(int64(x[0]), int64(x[1])))
		}
		return x[0] / x[1]
	case OpMod:
		if x[1] == 0 {
			return 0
		}
		if signedCmp {
			return uint64(floorMod(int64(x[0]), int64(x[1])))
		}
		return x[0] % x[1]
	case OpNeg:
		return -x[0]
	case OpInv:
		return ^x[0]
	case OpAnd:
		return x[0] & x[1]
	case OpOr:
		return x[0] | x[1]
	case OpXor:
		return x[0] ^ x[1]
	case OpShl:
		if x[1] >= 64 {
			return 0
		}
		return x[0] << x[1]
	case OpShr:
		if o.operands[0].Shape().Signed {
			if x[1] >= 64 {
				return uint64(int64(x[0]) >> 63)
			}
			return uint64(int64(x[0]) >> x[1])
		}
		if x[1] >= 64 {
			return 0
		}
		return x[0] >> x[1]
	case OpEq:
		return b2u(x[0] == x[1])
	case OpNe:
		return b2u(x[0] != x[1])
	case OpLt:
		if signedCmp {
			return b2u(int64(x[0]) < int64(x[1]))
		}
		return b2u(x[0] < x[1])
	case OpLe:
		if signedCmp {
			return b2u(int64(x[0]) <= int64(x[1]))
		}
		return b2u(x[0] <= x[1])
	case OpGt:
		if signedCmp {
			return b2u(int64(x[0]) > int64(x[1]))
		}
		return b2u(x[0] > x[1])
	case OpGe:
		if signedCmp {
			return b2u(int64(x[0]) >= int64(x[1]))
		}
		return b2u(x[0] >= x[1])
	case OpBool, OpAny:
		return b2u(x[0]&mask(o.operands[0].Shape().Width) != 0)
	case OpAll:
		w := o.operands[0].Shape().Width
		return b2u(x[0]&mask(w) == mask(w))
	case OpPar:
		return uint64(bits.OnesCount64(x[0]&mask(o.operands[0].Shape().Width)) & 1)
	case OpUns, OpSgn:
		return x[0]
	case OpMux:
		if x[0]&mask(o.operands[0].Shape().Width) != 0 {
			return x[1]
		}
		return x[2]
	default:
		panic(designErrorf("cannot evaluate operator %v", o.op))
	}
}

// floorDiv rounds the quotient towards negative infinity, matching hardware
// division semantics rather than Go's truncating division.
//
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
