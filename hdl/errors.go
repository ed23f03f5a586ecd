// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import "fmt"

// A ShapeError reports a malformed shape or an operator applied to operands
// of incompatible shapes.
//
type ShapeError struct {
	Msg string
}

func (e *ShapeError) Error() string { return "shape: " + e.Msg }

func shapeErrorf(format string, args ...interface{}) *ShapeError {
	return &ShapeError{Msg: fmt.Sprintf(format, args...)}
}

// A DesignError reports a structurally invalid design, such as a signal
// driven from two domains or an assignment to a non-assignable expression.
//
type DesignError struct {
	Msg string
}

func (e *DesignError) Error() string { return "design: " + e.Msg }

func designErrorf(format string, args ...interface{}) *DesignError {
	return &DesignError{Msg: fmt.Sprintf(format, args...)}
}

// A Warning is an advisory diagnostic. Warnings never abort elaboration;
// they accumulate on the builder or netlist that produced them.
//
type Warning struct {
	Msg string
}

func (w Warning) String() string { return "warning: " + w.Msg }

func warningf(format string, args ...interface{}) Warning {
	return Warning{Msg: fmt.Sprintf(format, args...)}
}
