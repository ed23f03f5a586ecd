// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import (
	"fmt"
	"strings"
)

// A Value is a node in an immutable expression tree: a constant, a signal, or
// an operator applied to other Values. The set of implementations is closed;
// lowering and compilation dispatch on it exhaustively.
//
type Value interface {
	// Shape returns the width and signedness of the value, derived purely
	// from the shapes of its operands.
	Shape() Shape
	String() string

	isValue()
}

// Const is a compile-time constant.
//
type Const struct {
	bits  uint64
	shape Shape
}

// C returns a constant of the given value. With no explicit shape, the shape
// is inferred: minimal-width unsigned for v >= 0, minimal-width signed for
// v < 0. With a shape, v is wrapped to the representable range.
//
func C(v int64, shape ...Shape) *Const {
	s := constShape(v)
	if len(shape) > 0 {
		s = shape[0]
	}
	return &Const{bits: toBits(v, s), shape: s}
}

func (c *Const) isValue()     {}
func (c *Const) Shape() Shape { return c.shape }

// Value returns the constant interpreted according to its shape.
//
func (c *Const) Value() int64 { return fromBits(c.bits, c.shape) }

// Bits returns the constant's raw two's-complement bit pattern.
//
func (c *Const) Bits() uint64 { return c.bits }

func (c *Const) String() string {
	sign := ""
	if c.shape.Signed {
		sign = "s"
	}
	return fmt.Sprintf("(const %d'%sd%d)", c.shape.Width, sign, c.Value())
}

// A Signal is a named carrier of a shaped value. Signals have identity: two
// signals with equal names and shapes are still distinct design objects.
//
type Signal struct {
	name      string
	shape     Shape
	init      int64
	resetLess bool
}

// A SignalOption configures a Signal at creation.
//
type SignalOption func(*Signal)

// WithInit sets the signal's initial (reset) value.
//
func WithInit(v int64) SignalOption {
	return func(s *Signal) { s.init = v }
}

// ResetLess marks the signal as unaffected by its domain's reset.
//
func ResetLess() SignalOption {
	return func(s *Signal) { s.resetLess = true }
}

// NewSignal creates a signal with the given name and shape.
//
func NewSignal(name string, shape Shape, opts ...SignalOption) *Signal {
	checkWidth(shape.Width)
	s := &Signal{name: name, shape: shape}
	for _, o := range opts {
		o(s)
	}
	if v, lost := truncate(s.init, shape); lost {
		panic(shapeErrorf("initial value %d of signal %q does not fit %v", s.init, name, shape))
	} else {
		s.init = v
	}
	return s
}

// NewSignalLike creates a signal with the same shape and options as s.
//
func NewSignalLike(name string, s *Signal) *Signal {
	n := *s
	n.name = name
	return &n
}

func (s *Signal) isValue()     {}
func (s *Signal) Shape() Shape { return s.shape }

// Name returns the human-readable name given at creation. Names need not be
// unique; lowering disambiguates collisions.
//
func (s *Signal) Name() string { return s.name }

// Init returns the signal's initial (reset) value.
//
func (s *Signal) Init() int64 { return s.init }

// IsResetLess reports whether the signal ignores its domain's reset.
//
func (s *Signal) IsResetLess() bool { return s.resetLess }

func (s *Signal) String() string { return "(sig " + s.name + ")" }

// Op identifies an operator kind.
//
type Op int

// Operator kinds.
const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv // floor division
	OpMod // floor modulo
	OpNeg
	OpInv // bitwise complement
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpBool // != 0
	OpAny  // or-reduction
	OpAll  // and-reduction
	OpPar  // xor-reduction
	OpUns  // reinterpret as unsigned
	OpSgn  // reinterpret as signed
	OpMux
)

var opNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "//", OpMod: "%",
	OpNeg: "-", OpInv: "~", OpAnd: "&", OpOr: "|", OpXor: "^",
	OpShl: "<<", OpShr: ">>", OpEq: "==", OpNe: "!=", OpLt: "<",
	OpLe: "<=", OpGt: ">", OpGe: ">=", OpBool: "b", OpAny: "r|",
	OpAll: "r&", OpPar: "r^", OpUns: "u", OpSgn: "s", OpMux: "m",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// An Operator applies an operator kind to one, two or three operands. Its
// shape is computed once, at construction.
//
type Operator struct {
	op       Op
	operands []Value
	shape    Shape
}

func (o *Operator) isValue()     {}
func (o *Operator) Shape() Shape { return o.shape }

// Op returns the operator kind.
//
func (o *Operator) Op() Op { return o.op }

// Operands returns the operand list. The returned slice must not be
// modified.
//
func (o *Operator) Operands() []Value { return o.operands }

func (o *Operator) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(o.op.String())
	for _, v := range o.operands {
		b.WriteByte(' ')
		b.WriteString(v.String())
	}
	b.WriteByte(')')
	return b.String()
}

// merge implements two's-complement widening for bitwise and additive
// operators: zero-extend unsigned operands, sign-extend signed ones, wide
// enough for either.
//
func merge(a, b Shape) Shape {
	switch {
	case !a.Signed && !b.Signed:
		return Shape{Width: max(a.Width, b.Width)}
	case a.Signed && b.Signed:
		return Shape{Width: max(a.Width, b.Width), Signed: true}
	case !a.Signed: // a unsigned, b signed: a needs a sign bit
		return Shape{Width: max(a.Width+1, b.Width), Signed: true}
	default: // a signed, b unsigned
		return Shape{Width: max(a.Width, b.Width+1), Signed: true}
	}
}

func max(a, b int) int {
	if a >= b {
		return a
	}
	return b
}

// newOp builds an operator node, checking the result shape bound and folding
// constant-only operand lists.
//
func newOp(op Op, shape Shape, operands ...Value) Value {
	if shape.Width > MaxWidth {
		panic(shapeErrorf("result of operator %v is %d bits wide, more than the maximum of %d",
			op, shape.Width, MaxWidth))
	}
	n := &Operator{op: op, operands: operands, shape: shape}
	if allConst(n) {
		return &Const{bits: evalConst(n), shape: shape}
	}
	return n
}

// Add returns a + b. The result is one bit wider than the wider operand, so
// it can never overflow.
//
func Add(a, b Value) Value {
	m := merge(a.Shape(), b.Shape())
	return newOp(OpAdd, Shape{Width: m.Width + 1, Signed: m.Signed}, a, b)
}

// Sub returns a - b. The result is signed and one bit wider than the wider
// operand.
//
func Sub(a, b Value) Value {
	m := merge(a.Shape(), b.Shape())
	return newOp(OpSub, Shape{Width: m.Width + 1, Signed: true}, a, b)
}

// Mul returns a * b, with the widths of both operands added up.
//
func Mul(a, b Value) Value {
	as, bs := a.Shape(), b.Shape()
	return newOp(OpMul, Shape{Width: as.Width + bs.Width, Signed: as.Signed || bs.Signed}, a, b)
}

// Div returns the floor division a / b.
//
func Div(a, b Value) Value {
	as, bs := a.Shape(), b.Shape()
	w := as.Width
	if bs.Signed {
		w++
	}
	return newOp(OpDiv, Shape{Width: w, Signed: as.Signed || bs.Signed}, a, b)
}

// Mod returns the floor modulo a % b. The result has the shape of b.
//
func Mod(a, b Value) Value {
	return newOp(OpMod, b.Shape(), a, b)
}

// Neg returns -a.
//
func Neg(a Value) Value {
	return newOp(OpNeg, Shape{Width: a.Shape().Width + 1, Signed: true}, a)
}

// Inv returns the bitwise complement of a.
//
func Inv(a Value) Value {
	return newOp(OpInv, a.Shape(), a)
}

// AndV returns the bitwise and of a and b.
//
func AndV(a, b Value) Value {
	return newOp(OpAnd, merge(a.Shape(), b.Shape()), a, b)
}

// OrV returns the bitwise or of a and b.
//
func OrV(a, b Value) Value {
	return newOp(OpOr, merge(a.Shape(), b.Shape()), a, b)
}

// XorV returns the bitwise exclusive or of a and b.
//
func XorV(a, b Value) Value {
	return newOp(OpXor, merge(a.Shape(), b.Shape()), a, b)
}

// Shl returns a shifted left by the runtime amount b, which must be
// unsigned. The result is wide enough for the largest possible amount, which
// bounds b to a handful of bits; use ShiftLeft for compile-time amounts.
//
func Shl(a, b Value) Value {
	as, bs := a.Shape(), b.Shape()
	if bs.Signed {
		panic(shapeErrorf("shift amount must be unsigned, not %v", bs))
	}
	if bs.Width > 6 { // 2**width - 1 extra bits would exceed MaxWidth anyway
		panic(shapeErrorf("%d-bit shift amount would widen the result beyond %d bits", bs.Width, MaxWidth))
	}
	w := as.Width + (1 << uint(bs.Width)) - 1
	return newOp(OpShl, Shape{Width: w, Signed: as.Signed}, a, b)
}

// Shr returns a shifted right by the runtime amount b, which must be
// unsigned. Signed values shift arithmetically.
//
func Shr(a, b Value) Value {
	as, bs := a.Shape(), b.Shape()
	if bs.Signed {
		panic(shapeErrorf("shift amount must be unsigned, not %v", bs))
	}
	return newOp(OpShr, as, a, b)
}

// ShiftLeft returns a shifted left by the compile-time amount n, exactly n
// bits wider than a.
//
func ShiftLeft(a Value, n int) Value {
	if n < 0 {
		return ShiftRight(a, -n)
	}
	as := a.Shape()
	return newOp(OpShl, Shape{Width: as.Width + n, Signed: as.Signed}, a, C(int64(n)))
}

// ShiftRight returns a shifted right by the compile-time amount n.
//
func ShiftRight(a Value, n int) Value {
	if n < 0 {
		return ShiftLeft(a, -n)
	}
	as := a.Shape()
	w := as.Width - n
	if w < 1 {
		w = 1
	}
	return newOp(OpShr, Shape{Width: w, Signed: as.Signed}, a, C(int64(n)))
}

// Rotl rotates a left by the compile-time amount n. Rotation desugars to a
// concatenation of slices, so only constant amounts are expressible.
//
func Rotl(a Value, n int) Value {
	w := a.Shape().Width
	if w == 0 {
		return AsUnsigned(a)
	}
	n %= w
	if n < 0 {
		n += w
	}
	if n == 0 {
		return AsUnsigned(a)
	}
	return CatV(SliceV(a, w-n, w), SliceV(a, 0, w-n))
}

// Rotr rotates a right by the compile-time amount n.
//
func Rotr(a Value, n int) Value {
	w := a.Shape().Width
	if w == 0 {
		return AsUnsigned(a)
	}
	n %= w
	if n < 0 {
		n += w
	}
	return Rotl(a, w-n)
}

func cmp(op Op, a, b Value) Value {
	return newOp(op, Shape{Width: 1}, a, b)
}

// Eq returns the 1-bit comparison a == b.
//
func Eq(a, b Value) Value { return cmp(OpEq, a, b) }

// Ne returns the 1-bit comparison a != b.
//
func Ne(a, b Value) Value { return cmp(OpNe, a, b) }

// Lt returns the 1-bit comparison a < b. The comparison is signed iff either
// operand is signed.
//
func Lt(a, b Value) Value { return cmp(OpLt, a, b) }

// Le returns the 1-bit comparison a <= b.
//
func Le(a, b Value) Value { return cmp(OpLe, a, b) }

// Gt returns the 1-bit comparison a > b.
//
func Gt(a, b Value) Value { return cmp(OpGt, a, b) }

// Ge returns the 1-bit comparison a >= b.
//
func Ge(a, b Value) Value { return cmp(OpGe, a, b) }

// Bool returns the 1-bit value a != 0.
//
func Bool(a Value) Value {
	return newOp(OpBool, Shape{Width: 1}, a)
}

// Any or-reduces a to a single bit.
//
func Any(a Value) Value {
	return newOp(OpAny, Shape{Width: 1}, a)
}

// All and-reduces a to a single bit.
//
func All(a Value) Value {
	return newOp(OpAll, Shape{Width: 1}, a)
}

// Parity xor-reduces a to a single bit.
//
func Parity(a Value) Value {
	return newOp(OpPar, Shape{Width: 1}, a)
}

// AsUnsigned reinterprets the bits of a as unsigned.
//
func AsUnsigned(a Value) Value {
	return newOp(OpUns, Shape{Width: a.Shape().Width}, a)
}

// AsSigned reinterprets the bits of a as signed.
//
func AsSigned(a Value) Value {
	return newOp(OpSgn, Shape{Width: a.Shape().Width, Signed: true}, a)
}

// Mux returns a if sel is non-zero, b otherwise.
//
func Mux(sel, a, b Value) Value {
	return newOp(OpMux, merge(a.Shape(), b.Shape()), sel, a, b)
}

// A Slice selects the constant bit range [start, stop) of a value. Bit 0 is
// the least-significant bit. Slices are unsigned.
//
type Slice struct {
	value       Value
	start, stop int
}

// SliceV returns the bits [start, stop) of a.
//
func SliceV(a Value, start, stop int) Value {
	w := a.Shape().Width
	if start < 0 || start > w {
		panic(shapeErrorf("cannot start slice %d bits into a %d-bit value", start, w))
	}
	if stop < start || stop > w {
		panic(shapeErrorf("cannot stop slice %d bits into a %d-bit value (start %d)", stop, w, start))
	}
	s := &Slice{value: a, start: start, stop: stop}
	if allConst(s) {
		return &Const{bits: evalConst(s), shape: s.Shape()}
	}
	return s
}

// Bit returns the single bit i of a.
//
func Bit(a Value, i int) Value { return SliceV(a, i, i+1) }

func (s *Slice) isValue()     {}
func (s *Slice) Shape() Shape { return Shape{Width: s.stop - s.start} }

// Value returns the sliced value.
//
func (s *Slice) Value() Value { return s.value }

// Bounds returns the slice's [start, stop) bit range.
//
func (s *Slice) Bounds() (start, stop int) { return s.start, s.stop }

func (s *Slice) String() string {
	return fmt.Sprintf("(slice %s %d:%d)", s.value, s.start, s.stop)
}

// A Part selects width bits of a value at a runtime offset scaled by a
// stride: stride 1 is an overlapping bit select, stride == width a
// non-overlapping word select. Parts are unsigned. Out-of-range bits read as
// zero.
//
type Part struct {
	value  Value
	offset Value
	width  int
	stride int
}

func newPart(a, offset Value, width, stride int) Value {
	if width < 0 || width > MaxWidth {
		panic(shapeErrorf("part width must be between 0 and %d, not %d", MaxWidth, width))
	}
	if offset.Shape().Signed {
		panic(shapeErrorf("part offset must be unsigned, not %v", offset.Shape()))
	}
	p := &Part{value: a, offset: offset, width: width, stride: stride}
	if allConst(p) {
		return &Const{bits: evalConst(p), shape: p.Shape()}
	}
	return p
}

// BitSelect returns width bits of a starting at the runtime bit offset.
// Successive offsets overlap.
//
func BitSelect(a, offset Value, width int) Value {
	return newPart(a, offset, width, 1)
}

// WordSelect returns the index-th width-bit word of a. Successive indices
// never overlap.
//
func WordSelect(a, index Value, width int) Value {
	return newPart(a, index, width, width)
}

func (p *Part) isValue()     {}
func (p *Part) Shape() Shape { return Shape{Width: p.width} }

// Value returns the selected value.
//
func (p *Part) Value() Value { return p.value }

// Offset returns the runtime offset, in stride units.
//
func (p *Part) Offset() Value { return p.offset }

// Width returns the number of selected bits.
//
func (p *Part) Width() int { return p.width }

// Stride returns the offset scale in bits.
//
func (p *Part) Stride() int { return p.stride }

func (p *Part) String() string {
	return fmt.Sprintf("(part %s %s %d %d)", p.value, p.offset, p.width, p.stride)
}

// A Cat concatenates values, first operand in the least-significant bits.
// The result is unsigned.
//
type Cat struct {
	parts []Value
}

// CatV concatenates the given values, the first in the least-significant
// position.
//
func CatV(parts ...Value) Value {
	w := 0
	for _, p := range parts {
		w += p.Shape().Width
	}
	if w > MaxWidth {
		panic(shapeErrorf("concatenation is %d bits wide, more than the maximum of %d", w, MaxWidth))
	}
	c := &Cat{parts: parts}
	if allConst(c) {
		return &Const{bits: evalConst(c), shape: c.Shape()}
	}
	return c
}

func (c *Cat) isValue() {}

func (c *Cat) Shape() Shape {
	w := 0
	for _, p := range c.parts {
		w += p.Shape().Width
	}
	return Shape{Width: w}
}

// Parts returns the concatenated values, least-significant first.
//
func (c *Cat) Parts() []Value { return c.parts }

func (c *Cat) String() string {
	var b strings.Builder
	b.WriteString("(cat")
	for _, p := range c.parts {
		b.WriteByte(' ')
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}

// A Repl replicates a value count times. The result is unsigned.
//
type Repl struct {
	value Value
	count int
}

// ReplV replicates a count times, as if a were concatenated with itself.
//
func ReplV(a Value, count int) Value {
	if count < 0 {
		panic(shapeErrorf("replication count must be non-negative, not %d", count))
	}
	if w := a.Shape().Width * count; w > MaxWidth {
		panic(shapeErrorf("replication is %d bits wide, more than the maximum of %d", w, MaxWidth))
	}
	r := &Repl{value: a, count: count}
	if allConst(r) {
		return &Const{bits: evalConst(r), shape: r.Shape()}
	}
	return r
}

func (r *Repl) isValue()     {}
func (r *Repl) Shape() Shape { return Shape{Width: r.value.Shape().Width * r.count} }

// Value returns the replicated value.
//
func (r *Repl) Value() Value { return r.value }

// Count returns the replication count.
//
func (r *Repl) Count() int { return r.count }

func (r *Repl) String() string {
	return fmt.Sprintf("(repl %s %d)", r.value, r.count)
}

// A ClockSignalRef is a late-bound reference to the clock of a named domain,
// resolved to the domain's actual clock signal during lowering.
//
type ClockSignalRef struct {
	domain string
}

// ClockSignal returns a reference to the clock signal of the named domain.
//
func ClockSignal(domain string) *ClockSignalRef {
	if domain == Comb {
		panic(designErrorf("the combinational domain has no clock"))
	}
	return &ClockSignalRef{domain: domain}
}

func (c *ClockSignalRef) isValue()     {}
func (c *ClockSignalRef) Shape() Shape { return Shape{Width: 1} }

// Domain returns the referenced domain name.
//
func (c *ClockSignalRef) Domain() string { return c.domain }

func (c *ClockSignalRef) String() string { return "(clk " + c.domain + ")" }

// A ResetSignalRef is a late-bound reference to the reset of a named domain.
//
type ResetSignalRef struct {
	domain string
}

// ResetSignal returns a reference to the reset signal of the named domain.
//
func ResetSignal(domain string) *ResetSignalRef {
	if domain == Comb {
		panic(designErrorf("the combinational domain has no reset"))
	}
	return &ResetSignalRef{domain: domain}
}

func (r *ResetSignalRef) isValue()     {}
func (r *ResetSignalRef) Shape() Shape { return Shape{Width: 1} }

// Domain returns the referenced domain name.
//
func (r *ResetSignalRef) Domain() string { return r.domain }

func (r *ResetSignalRef) String() string { return "(rst " + r.domain + ")" }
