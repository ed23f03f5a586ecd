// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import (
	"fmt"
	"reflect"
)

// MaxWidth is the widest shape the framework accepts. Runtime values are
// held in 64-bit two's-complement slots, so every expression, including
// intermediate widening results, must fit in 64 bits. Constructors reject
// anything wider with a ShapeError.
//
const MaxWidth = 64

// A Shape describes the bit width and signedness of a Value. The zero Shape
// is a 0-bit unsigned value.
//
type Shape struct {
	Width  int
	Signed bool
}

// Unsigned returns an unsigned Shape of the given width.
//
func Unsigned(width int) Shape {
	checkWidth(width)
	return Shape{Width: width}
}

// Signed returns a signed Shape of the given width.
//
func Signed(width int) Shape {
	checkWidth(width)
	return Shape{Width: width, Signed: true}
}

func checkWidth(width int) {
	if width < 0 {
		panic(shapeErrorf("width must be non-negative, not %d", width))
	}
	if width > MaxWidth {
		panic(shapeErrorf("width %d exceeds the maximum of %d bits", width, MaxWidth))
	}
}

func (s Shape) String() string {
	if s.Signed {
		return fmt.Sprintf("signed(%d)", s.Width)
	}
	return fmt.Sprintf("unsigned(%d)", s.Width)
}

// A Range is a half-open interval [Start, Stop) of integers, usable as a
// shape-castable bound on a signal's value.
//
type Range struct {
	Start, Stop int64
}

// bitsFor returns the number of bits needed to represent v, as the magnitude
// part only: signedness is decided by the caller.
//
func bitsFor(v int64) int {
	if v < 0 {
		v = -v - 1
	}
	n := 1
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// BitsFor returns the number of bits needed to hold any value in [0, v] when
// v is non-negative, or the magnitude bits of v when negative. The sign bit
// of signed shapes is not included.
//
func BitsFor(v int64) int {
	return bitsFor(v)
}

// constShape infers the shape of the literal v: minimal-width unsigned for
// non-negative values, minimal-width signed for negative ones. The literal 0
// is 1-bit unsigned.
//
func constShape(v int64) Shape {
	if v < 0 {
		return Shape{Width: bitsFor(v) + 1, Signed: true}
	}
	return Shape{Width: bitsFor(v)}
}

// shapeOfRange follows the casting rule for contiguous ranges: wide enough
// for both endpoints, signed iff the range contains a negative value.
//
func shapeOfRange(r Range) (Shape, []Warning) {
	var warns []Warning
	if r.Stop <= r.Start {
		// empty range, nothing to represent
		return Shape{Width: 1}, nil
	}
	lo, hi := r.Start, r.Stop-1
	if r.Start == 0 && r.Stop > 1 && r.Stop&(r.Stop-1) == 0 {
		warns = append(warns, warningf(
			"range [0, %d) only represents values up to %d; "+
				"an exact power-of-two bound may indicate an off-by-one",
			r.Stop, hi))
	}
	signed := lo < 0
	w := bitsFor(hi)
	if signed {
		w = bitsFor(hi) + 1
		if lw := bitsFor(lo) + 1; lw > w {
			w = lw
		}
	}
	if w > MaxWidth {
		panic(shapeErrorf("range [%d, %d) needs %d bits, more than the maximum of %d",
			r.Start, r.Stop, w, MaxWidth))
	}
	return Shape{Width: w, Signed: signed}, warns
}

// ShapeFor casts v to a Shape. Accepted kinds: a Shape (returned as is), any
// Go integer (cast as the shape of that literal), a Range, or a slice or
// array of integers treated as an enumeration (wide enough for its extreme
// members, signed iff any member is negative). Everything else is a
// ShapeError. Advisory diagnostics, if any, are returned alongside.
//
func ShapeFor(v interface{}) (Shape, []Warning, error) {
	switch t := v.(type) {
	case Shape:
		return t, nil, nil
	case Range:
		s, w := shapeOfRange(t)
		return s, w, nil
	case int:
		return constShape(int64(t)), nil, nil
	case int8:
		return constShape(int64(t)), nil, nil
	case int16:
		return constShape(int64(t)), nil, nil
	case int32:
		return constShape(int64(t)), nil, nil
	case int64:
		return constShape(t), nil, nil
	case uint:
		return constShape(int64(t)), nil, nil
	case uint8:
		return constShape(int64(t)), nil, nil
	case uint16:
		return constShape(int64(t)), nil, nil
	case uint32:
		return constShape(int64(t)), nil, nil
	}

	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return Shape{}, nil, shapeErrorf("cannot cast %T to a shape", v)
	}
	if rv.Len() == 0 {
		return Shape{}, nil, shapeErrorf("cannot cast an empty enumeration to a shape")
	}
	var lo, hi int64
	for i := 0; i < rv.Len(); i++ {
		m := rv.Index(i)
		for m.Kind() == reflect.Interface {
			m = m.Elem()
		}
		var mv int64
		switch m.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			mv = m.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			mv = int64(m.Uint())
		default:
			return Shape{}, nil, shapeErrorf("enumeration member %v is not an integer", m)
		}
		if i == 0 || mv < lo {
			lo = mv
		}
		if i == 0 || mv > hi {
			hi = mv
		}
	}
	signed := lo < 0
	w := bitsFor(hi)
	if signed {
		if w = bitsFor(hi) + 1; bitsFor(lo)+1 > w {
			w = bitsFor(lo) + 1
		}
	}
	return Shape{Width: w, Signed: signed}, nil, nil
}

// mask returns a bit mask covering width bits.
//
func mask(width int) uint64 {
	if width <= 0 {
		return 0
	}
	return ^uint64(0) >> uint(64-width)
}

// truncate wraps v to the representable range of s and reports whether any
// information was lost.
//
func truncate(v int64, s Shape) (int64, bool) {
	bits := uint64(v) & mask(s.Width)
	r := fromBits(bits, s)
	return r, r != v
}

// fromBits interprets the masked bit pattern b according to s.
//
func fromBits(b uint64, s Shape) int64 {
	b &= mask(s.Width)
	if s.Signed && s.Width > 0 && b&(uint64(1)<<uint(s.Width-1)) != 0 {
		return int64(b | ^mask(s.Width))
	}
	return int64(b)
}

// toBits returns the two's-complement bit pattern of v masked to s.
//
func toBits(v int64, s Shape) uint64 {
	return uint64(v) & mask(s.Width)
}
