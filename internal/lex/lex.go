// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

// Package lex implements a small state-function based lexer used by the
// signal specification parser in package hdl.
//
package lex

import (
	"bufio"
	"fmt"
	"io"
)

// EOF is returned by Lexer.Next at end of input. It is also the item type
// emitted once the input is exhausted.
//
const EOF = -1

// Pos is a rune offset in the input.
//
type Pos int

// Type is an item type. Values >= 0 are defined by the lexer's client.
//
type Type int

// An Item is a (type, position, value) triple emitted by a state function.
//
type Item struct {
	Type  Type
	Pos   Pos
	Value interface{}
}

func (i Item) String() string {
	switch v := i.Value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", i.Value)
}

// A StateFn scans a token and returns the next state function, or nil to
// return to the initial state.
//
type StateFn func(*Lexer) StateFn

// Interface is the client-facing side of a Lexer.
//
type Interface interface {
	Lex() Item
}

// A Lexer reads runes from an input stream and turns them into Items by
// running a client-provided state machine.
//
type Lexer struct {
	r     *bufio.Reader
	init  StateFn
	state StateFn
	queue []Item

	cur    rune // rune last returned by Next
	pos    Pos  // position of cur
	start  Pos  // position of the item being scanned
	atInit bool // next state call begins a new token
	backed bool
	eof    bool
}

// New returns a new Lexer reading from r with init as its initial state.
//
func New(r io.Reader, init StateFn) *Lexer {
	return &Lexer{r: bufio.NewReader(r), init: init, state: init, pos: -1, atInit: true}
}

// Lex runs the state machine until an item is emitted and returns it.
//
func (l *Lexer) Lex() Item {
	for len(l.queue) == 0 {
		if l.state == nil {
			l.state = l.init
		}
		// the start position only moves between tokens, not when a state
		// function chains into another to finish the current one
		if l.atInit {
			l.start = l.pos + 1
			if l.backed {
				l.start = l.pos
			}
		}
		next := l.state(l)
		l.atInit = next == nil
		l.state = next
	}
	i := l.queue[0]
	l.queue = l.queue[1:]
	return i
}

// Next returns the next rune in the input, or EOF.
//
func (l *Lexer) Next() rune {
	if l.backed {
		l.backed = false
		return l.cur
	}
	if l.eof {
		return EOF
	}
	r, _, err := l.r.ReadRune()
	if err != nil {
		l.eof = true
		l.cur = EOF
		return EOF
	}
	l.pos++
	l.cur = r
	return r
}

// Backup un-reads the rune last returned by Next. Only one rune of
// lookahead is supported.
//
func (l *Lexer) Backup() {
	if l.cur != EOF {
		l.backed = true
	}
}

// Current returns the rune last returned by Next.
//
func (l *Lexer) Current() rune {
	return l.cur
}

// Emit queues an item of the given type and value at the position of the
// token being scanned.
//
func (l *Lexer) Emit(t Type, value interface{}) {
	l.queue = append(l.queue, Item{Type: t, Pos: l.start, Value: value})
}

// AcceptWhile consumes runes while pred returns true.
//
func (l *Lexer) AcceptWhile(pred func(r rune) bool) {
	for r := l.Next(); r != EOF && pred(r); r = l.Next() {
	}
	l.Backup()
}
