// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import "fmt"

// A Statement is an assignment, possibly nested under conditional guards.
// Statements are immutable once built; builders produce new trees.
//
type Statement interface {
	isStmt()
}

// An Assign drives a target expression from a source expression within the
// domain the statement is added to.
//
type Assign struct {
	target Value
	source Value
}

// Set returns an assignment of source to target. The target must be a
// signal, a slice, a part select or a concatenation of such; anything else
// panics with a DesignError.
//
func Set(target, source Value) *Assign {
	checkTarget(target)
	return &Assign{target: target, source: source}
}

func checkTarget(v Value) {
	switch t := v.(type) {
	case *Signal:
	case *Slice:
		checkTarget(t.value)
	case *Part:
		checkTarget(t.value)
	case *Cat:
		for _, p := range t.parts {
			checkTarget(p)
		}
	default:
		panic(designErrorf("cannot assign to %v", v))
	}
}

func (a *Assign) isStmt() {}

// Target returns the assigned expression.
//
func (a *Assign) Target() Value { return a.target }

// Source returns the driving expression.
//
func (a *Assign) Source() Value { return a.source }

func (a *Assign) String() string {
	return fmt.Sprintf("(set %s %s)", a.target, a.source)
}

// An Arm is one guarded branch of a Cond. A nil Cond marks the final else
// branch.
//
type Arm struct {
	Cond Value
	Body []Statement
}

// A Cond guards statements behind a chain of conditions: the first arm whose
// condition holds is active, the optional else arm catches the rest.
//
type Cond struct {
	arms   []Arm
	closed bool
}

// When starts a conditional statement whose first arm is guarded by cond.
//
func When(cond Value, stmts ...Statement) *Cond {
	return &Cond{arms: []Arm{{Cond: cond, Body: stmts}}}
}

// ElseWhen adds an arm tried when no earlier arm matched.
//
func (c *Cond) ElseWhen(cond Value, stmts ...Statement) *Cond {
	if c.closed {
		panic(designErrorf("conditional arm after the final else branch"))
	}
	c.arms = append(c.arms, Arm{Cond: cond, Body: stmts})
	return c
}

// Else adds the final arm, active when no condition matched. Only one else
// branch is allowed.
//
func (c *Cond) Else(stmts ...Statement) *Cond {
	if c.closed {
		panic(designErrorf("conditional has more than one else branch"))
	}
	c.closed = true
	c.arms = append(c.arms, Arm{Cond: nil, Body: stmts})
	return c
}

func (c *Cond) isStmt() {}

// Arms returns the guard/body arms in priority order.
//
func (c *Cond) Arms() []Arm { return c.arms }

// A Pattern is a value-with-don't-cares match against a switch test: the
// test matches when test&Mask == Bits.
//
type Pattern struct {
	Mask uint64
	Bits uint64
}

// A SwitchCase pairs a pattern with the statements active when it matches.
//
type SwitchCase struct {
	Pattern Pattern
	Default bool
	Body    []Statement
}

// A Switch guards statements behind pattern matches on a test expression.
// Cases are tried in order; the optional default case catches the rest.
//
type Switch struct {
	test       Value
	cases      []SwitchCase
	hasDefault bool
}

// NewSwitch starts a switch statement over the given test expression.
//
func NewSwitch(test Value) *Switch {
	return &Switch{test: test}
}

// Case adds an arm matching the given pattern: an integer for an exact
// match, or a string of '0', '1' and '-' characters (most-significant bit
// first, '_' ignored) for a masked match. The pattern must cover the test's
// full width.
//
func (s *Switch) Case(pattern interface{}, stmts ...Statement) *Switch {
	if s.hasDefault {
		panic(designErrorf("switch case after the default branch"))
	}
	s.cases = append(s.cases, SwitchCase{
		Pattern: parsePattern(pattern, s.test.Shape().Width),
		Body:    stmts,
	})
	return s
}

// Default adds the arm active when no pattern matched. Only one default
// branch is allowed.
//
func (s *Switch) Default(stmts ...Statement) *Switch {
	if s.hasDefault {
		panic(designErrorf("switch has more than one default branch"))
	}
	s.hasDefault = true
	s.cases = append(s.cases, SwitchCase{Default: true, Body: stmts})
	return s
}

func (s *Switch) isStmt() {}

// Test returns the switched expression.
//
func (s *Switch) Test() Value { return s.test }

// Cases returns the case arms in match order.
//
func (s *Switch) Cases() []SwitchCase { return s.cases }

func parsePattern(p interface{}, width int) Pattern {
	switch t := p.(type) {
	case int:
		return intPattern(int64(t), width)
	case int64:
		return intPattern(t, width)
	case string:
		var m, b uint64
		n := 0
		for _, r := range t {
			if r == '_' {
				continue
			}
			m <<= 1
			b <<= 1
			switch r {
			case '0':
				m |= 1
			case '1':
				m |= 1
				b |= 1
			case '-':
			default:
				panic(designErrorf("invalid character %q in pattern %q", r, t))
			}
			n++
		}
		if n != width {
			panic(designErrorf("pattern %q is %d bits wide, the test is %d bits wide", t, n, width))
		}
		return Pattern{Mask: m, Bits: b}
	default:
		panic(designErrorf("invalid pattern %v (%T)", p, p))
	}
}

func intPattern(v int64, width int) Pattern {
	if _, lost := truncate(v, Shape{Width: width}); lost {
		panic(designErrorf("pattern %d does not fit a %d-bit test", v, width))
	}
	return Pattern{Mask: mask(width), Bits: uint64(v) & mask(width)}
}

// gotoStmt is the FSM state-transition pseudo-statement. It only exists
// inside FSM state bodies; Module.AddFSM rewrites it into an assignment of
// the state signal.
//
type gotoStmt struct {
	state string
}

// Goto requests a transition to the named FSM state at the next active edge
// of the FSM's domain.
//
func Goto(state string) Statement {
	return &gotoStmt{state: state}
}

func (g *gotoStmt) isStmt() {}
